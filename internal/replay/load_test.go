package replay

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/archive"
	"github.com/starford/diagreplay/internal/bundle"
	"github.com/starford/diagreplay/internal/models"
	"github.com/starford/diagreplay/internal/routeindex"
	"github.com/starford/diagreplay/internal/testutil"
	"github.com/starford/diagreplay/internal/version"
)

func TestTargetVersion(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)
	logger := testutil.Logger()

	t.Run("explicit wins", func(t *testing.T) {
		got := TargetVersion(Options{Dir: dir, Version: "7.17.0"}, logger)
		assert.Equal(t, version.Triple{Major: 7, Minor: 17}, got)
	})
	t.Run("malformed explicit is zero", func(t *testing.T) {
		got := TargetVersion(Options{Dir: dir, Version: "latest"}, logger)
		assert.Equal(t, version.Triple{}, got)
	})
	t.Run("version file", func(t *testing.T) {
		got := TargetVersion(Options{Dir: dir}, logger)
		assert.Equal(t, "8.11.1", got.String())
	})
	t.Run("missing file falls back", func(t *testing.T) {
		got := TargetVersion(Options{Dir: t.TempDir(), FallbackVersion: "6.8.0"}, logger)
		assert.Equal(t, "6.8.0", got.String())
	})
	t.Run("no inputs", func(t *testing.T) {
		got := TargetVersion(Options{FallbackVersion: "8.11.1"}, logger)
		assert.Equal(t, "8.11.1", got.String())
	})
}

func TestLoad_Directory(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)

	snap, err := Load(Options{Mode: ModeDirectory, Dir: dir}, testutil.Logger())
	require.NoError(t, err)

	assert.Equal(t, "8.11.1", snap.Version.String())
	assert.Equal(t, 5, snap.Catalog.Len())
	assert.Len(t, snap.Resolutions, 5)
	assert.Equal(t, 1, snap.Dropped, "missing_artifact has no file")
	assert.Equal(t, []string{"/_cat/aliases", "/_cluster/health", "/_license", "/_nodes/stats"}, snap.Index.Routes())

	e, kind, ok := snap.Index.Lookup("/_cat/aliases?v")
	require.True(t, ok)
	assert.Equal(t, routeindex.MatchExact, kind)
	assert.Equal(t, "cat_aliases.txt", e.File)
	assert.Equal(t, "/_cat/aliases?v&s=alias,index", e.Pattern)
	assert.Equal(t, models.ContentTypeText, e.ContentType)

	e, _, ok = snap.Index.Lookup("/_license")
	require.True(t, ok)
	assert.Equal(t, "commercial/licenses.json", e.File)
}

func TestLoad_DirectoryOlderVersion(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)

	snap, err := Load(Options{Mode: ModeDirectory, Dir: dir, Version: "7.10.2"}, testutil.Logger())
	require.NoError(t, err)

	_, _, ok := snap.Index.Lookup("/_license")
	assert.False(t, ok)
	e, _, ok := snap.Index.Lookup("/_xpack/license")
	require.True(t, ok)
	assert.Equal(t, "licenses", e.Name)
}

func TestLoad_DirectoryWithoutCatalog(t *testing.T) {
	_, err := Load(Options{Mode: ModeDirectory, Dir: t.TempDir()}, testutil.Logger())
	require.Error(t, err)
}

func TestLoad_DirectoryNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, DefaultCatalogFile), testutil.Catalog)

	_, err := Load(Options{Mode: ModeDirectory, Dir: dir}, testutil.Logger())
	require.ErrorIs(t, err, apperr.ErrNoRoutes)
}

func TestLoad_BundleWithoutCatalog(t *testing.T) {
	path := testutil.BundleFile(t, testutil.Bundle)

	snap, err := Load(Options{Mode: ModeBundle, Bundle: path}, testutil.Logger())
	require.NoError(t, err)

	assert.Nil(t, snap.Catalog)
	assert.Equal(t, 1, snap.Dropped)
	assert.Equal(t, 3, snap.Index.Len())

	e, _, ok := snap.Index.Lookup("/_cluster/health")
	require.True(t, ok)
	assert.JSONEq(t, `{"status":"green"}`, string(e.Payload))
	assert.Equal(t, "/_cluster/health", snap.Index.Entries()[0].Route, "replaced route keeps its position")
}

func TestLoad_BundleWithCatalog(t *testing.T) {
	path := testutil.BundleFile(t, testutil.Bundle)
	catPath := filepath.Join(t.TempDir(), "catalog.yml")
	testutil.WriteFile(t, catPath, testutil.Catalog)

	snap, err := Load(Options{Mode: ModeBundle, Bundle: path, Catalog: catPath, Version: "8.11.1"}, testutil.Logger())
	require.NoError(t, err)

	// One unrecoverable record plus two resolved routes with no capture.
	assert.Equal(t, 3, snap.Dropped)
	assert.Equal(t, []string{"/_cluster/health", "/_license", "/_nodes/stats"}, snap.Index.Routes())

	e, _, ok := snap.Index.Lookup("/_nodes/stats")
	require.True(t, ok)
	assert.Equal(t, "nodes_stats", e.Name)
	assert.JSONEq(t, `{"nodes":null}`, string(e.Payload))
}

func TestLoad_BundleMissingFile(t *testing.T) {
	_, err := Load(Options{Mode: ModeBundle}, testutil.Logger())
	require.ErrorIs(t, err, apperr.ErrInvalidSource)

	_, err = Load(Options{Mode: ModeBundle, Bundle: filepath.Join(t.TempDir(), "nope.txt")}, testutil.Logger())
	require.Error(t, err)
}

func TestLoad_Archive(t *testing.T) {
	res := bundle.Parse(testutil.Bundle, testutil.Logger())
	path := filepath.Join(t.TempDir(), "bundle.db")
	db, err := archive.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Save("bundle.txt", bundle.Dedupe(res.Records)))
	require.NoError(t, db.Close())

	var logs bytes.Buffer
	snap, err := Load(Options{Mode: ModeArchive, Archive: path}, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Index.Len())
	assert.Contains(t, logs.String(), "bundle=bundle.txt")

	e, _, ok := snap.Index.Lookup("/_license")
	require.True(t, ok)
	assert.JSONEq(t, `{"license":{"type":"basic"}}`, string(e.Payload))
}

func TestLoad_ArchiveMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := Load(Options{Mode: ModeArchive, Archive: path}, testutil.Logger())
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestLoad_UnknownMode(t *testing.T) {
	_, err := Load(Options{Mode: "tarball"}, testutil.Logger())
	require.ErrorIs(t, err, apperr.ErrInvalidSource)
}
