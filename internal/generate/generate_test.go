package generate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/diagreplay/internal/bundle"
	"github.com/starford/diagreplay/internal/catalog"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/storage"
	"github.com/starford/diagreplay/internal/testutil"
	"github.com/starford/diagreplay/internal/version"
)

func TestRender(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)
	cat, err := catalog.Parse([]byte(testutil.Catalog))
	require.NoError(t, err)
	store, err := storage.NewFS(dir)
	require.NoError(t, err)

	data, res := Render(cat, version.Parse("8.11.1"), store, testutil.Logger())

	want := "# 1: GET /_cluster/health 200 OK\n" + testutil.Artifacts["cluster_health.json"] + "\n" +
		"# 2: GET /_nodes/stats 200 OK\n" + testutil.Artifacts["nodes_stats.json"] + "\n" +
		"# 3: GET /_license 200 OK\n" + testutil.Artifacts["commercial/licenses.json"] + "\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Skipped, "text artifact and missing artifact")
}

func TestRender_BlankArtifactSkipped(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)
	testutil.WriteFile(t, filepath.Join(dir, "cluster_health.json"), "  \n\t\n")
	cat, err := catalog.Parse([]byte(testutil.Catalog))
	require.NoError(t, err)
	store, err := storage.NewFS(dir)
	require.NoError(t, err)

	data, res := Render(cat, version.Parse("8.11.1"), store, testutil.Logger())

	assert.True(t, strings.HasPrefix(string(data), "# 1: GET /_nodes/stats 200 OK\n"))
	assert.Equal(t, 2, res.Records)
}

func TestRender_KeepsQueryInHeader(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "shards.json"), `[{"index":"logs"}]`)
	cat, err := catalog.Parse([]byte(`shards:
  versions:
    ">= 0.0.0": "/_cat/shards?format=json"
`))
	require.NoError(t, err)
	store, err := storage.NewFS(dir)
	require.NoError(t, err)

	data, _ := Render(cat, version.Parse("8.0.0"), store, testutil.Logger())
	assert.Equal(t, "# 1: GET /_cat/shards?format=json 200 OK\n[{\"index\":\"logs\"}]\n", string(data))
}

func TestGenerate_RoundTrip(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)
	out := filepath.Join(t.TempDir(), "bundle.txt")

	res, err := Generate(replay.Options{Dir: dir}, out, testutil.Logger())
	require.NoError(t, err)
	assert.Equal(t, "8.11.1", res.Version.String())
	assert.Equal(t, 3, res.Records)

	parsed, err := bundle.ParseFile(out, testutil.Logger())
	require.NoError(t, err)
	assert.Zero(t, parsed.Dropped)
	require.Len(t, parsed.Records, 3)
	assert.Equal(t, "/_cluster/health", parsed.Records[0].Route)
	assert.JSONEq(t, testutil.Artifacts["cluster_health.json"], string(parsed.Records[0].Payload))
}

func TestGenerate_MissingCatalog(t *testing.T) {
	_, err := Generate(replay.Options{Dir: t.TempDir()}, filepath.Join(t.TempDir(), "out.txt"), testutil.Logger())
	require.Error(t, err)
}

func TestWatch_Regenerates(t *testing.T) {
	dir := testutil.DiagnosticsDir(t)
	out := filepath.Join(t.TempDir(), "bundle.txt")
	opts := replay.Options{Dir: dir}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, opts, out, testutil.Logger(), func(_ Result, err error) {
			if err == nil {
				runs.Add(1)
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, filepath.Join(dir, "cluster_health.json"), `{"status":"red"}`)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && strings.Contains(string(data), `{"status":"red"}`)
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
