package catalog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/diagreplay/internal/version"
)

const sampleCatalog = `
"# comment entry": "ignored"
cluster_health:
  versions:
    ">= 0.0.0": "/_cluster/health"
cat_aliases:
  versions:
    ">= 0.0.0": "/_cat/aliases?v&s=alias,index"
nodes_stats:
  versions:
    ">= 9.0.0": "/new"
    ">= 0.0.0": "/old"
licenses:
  extension: ".txt"
  subdir: "commercial/"
  versions:
    ">= 7.0.0 < 8.0.0": "/_xpack/license"
    ">= 8.0.0": "/_license"
ancient:
  versions:
    "< 2.0.0": "/_status"
broken_rule:
  versions:
    "latest": "/_never"
no_versions:
  extension: ".json"
scalar_entry: 42
`

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestParse_OrderAndDefaults(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	names := make([]string, 0, cat.Len())
	for _, api := range cat.APIs {
		names = append(names, api.Name)
	}
	assert.Equal(t, []string{"cluster_health", "cat_aliases", "nodes_stats", "licenses", "ancient", "broken_rule"}, names)

	ns, ok := cat.Lookup("nodes_stats")
	require.True(t, ok)
	require.Len(t, ns.Routes, 2)
	assert.Equal(t, ">= 9.0.0", ns.Routes[0].Rule.String())
	assert.Equal(t, "/new", ns.Routes[0].Pattern)
	assert.Equal(t, DefaultExtension, ns.Extension)

	lic, _ := cat.Lookup("licenses")
	assert.Equal(t, ".txt", lic.Extension)
	assert.Equal(t, "commercial", lic.Subdir)
	assert.Equal(t, "commercial/licenses.txt", lic.Locator())

	_, ok = cat.Lookup("no_versions")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("- a\n- b\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("x:\n  versions: [1, 2]\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("x: {versions: {\">=1.0.0\": \"/a\"}}\nx: {versions: {\">=1.0.0\": \"/b\"}}\n"))
	assert.Error(t, err)

	cat, err := Parse(nil)
	require.NoError(t, err)
	assert.Zero(t, cat.Len())
}

func TestResolve_FirstMatchWins(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	ns, _ := cat.Lookup("nodes_stats")

	res, ok := ns.Resolve(version.Triple{Major: 9, Minor: 1})
	require.True(t, ok)
	assert.Equal(t, "/new", res.Route)

	res, ok = ns.Resolve(version.Triple{Major: 8, Minor: 11, Patch: 1})
	require.True(t, ok)
	assert.Equal(t, "/old", res.Route)
}

func TestResolve_DeclaredOrderBeatsSpecificity(t *testing.T) {
	cat, err := Parse([]byte(`x:
  versions:
    ">= 0.0.0": "/broad"
    ">= 9.0.0": "/narrow"
`))
	require.NoError(t, err)
	x, _ := cat.Lookup("x")
	res, ok := x.Resolve(version.Triple{Major: 9})
	require.True(t, ok)
	assert.Equal(t, "/broad", res.Route)
}

func TestBuild(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	var logs bytes.Buffer
	out := Build(cat, version.Triple{Major: 8, Minor: 11, Patch: 1}, testLogger(&logs))

	byName := make(map[string]int)
	for i, r := range out {
		byName[r.Name] = i
	}
	require.Len(t, out, 4)
	assert.NotContains(t, byName, "ancient")
	assert.NotContains(t, byName, "broken_rule")

	aliases := out[byName["cat_aliases"]]
	assert.Equal(t, "/_cat/aliases", aliases.Route)
	assert.Equal(t, "/_cat/aliases?v&s=alias,index", aliases.Pattern)
	assert.Equal(t, "cat_aliases.json", aliases.Locator)

	lic := out[byName["licenses"]]
	assert.Equal(t, "/_license", lic.Route)
	assert.Equal(t, ">= 8.0.0", lic.Rule)
	assert.Equal(t, "commercial/licenses.txt", lic.Locator)

	assert.Contains(t, logs.String(), "never matches")
	assert.Contains(t, logs.String(), "broken_rule")
}

func TestBuild_WarnsMalformedRules(t *testing.T) {
	cat, err := Parse([]byte(`partial:
  versions:
    ">= 8.x.0 < 9.0.0": "/partial"
overflow:
  versions:
    ">= 99999999999999999999.0.0": "/overflow"
    ">= 0.0.0": "/fallback"
again:
  versions:
    ">= 8.x.0 < 9.0.0": "/again"
`))
	require.NoError(t, err)

	var logs bytes.Buffer
	out := Build(cat, version.Triple{Major: 7, Minor: 10, Patch: 2}, testLogger(&logs))

	routes := make(map[string]string)
	for _, r := range out {
		routes[r.Name] = r.Route
	}
	assert.Equal(t, "/partial", routes["partial"])
	assert.Equal(t, "/fallback", routes["overflow"])

	text := logs.String()
	assert.Contains(t, text, `rule=">= 8.x.0 < 9.0.0"`)
	assert.Contains(t, text, `conditions=<9.0.0`)
	assert.Contains(t, text, `rule=">= 99999999999999999999.0.0"`)
	assert.Equal(t, 1, strings.Count(text, `rule=">= 8.x.0 < 9.0.0"`))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elastic-rest.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))
	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cat.Len())

	_, err = Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
