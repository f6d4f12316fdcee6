// Package testutil provides shared test helpers for building diagnostics
// directories and bundle files.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// Catalog is a small catalog covering the interesting resolution cases:
// a query-string pattern, a version split with first-match order, a text
// artifact in a subdirectory and an API whose artifact is never written.
const Catalog = `cluster_health:
  versions:
    ">= 0.0.0": "/_cluster/health"
cat_aliases:
  extension: ".txt"
  versions:
    ">= 0.0.0": "/_cat/aliases?v&s=alias,index"
nodes_stats:
  versions:
    ">= 9.0.0": "/_nodes/stats/v9"
    ">= 0.0.0": "/_nodes/stats"
licenses:
  subdir: "commercial"
  versions:
    ">= 7.0.0 < 8.0.0": "/_xpack/license"
    ">= 8.0.0": "/_license"
missing_artifact:
  versions:
    ">= 0.0.0": "/_missing"
`

// Artifacts are the files written by DiagnosticsDir, keyed by path relative
// to the directory.
var Artifacts = map[string]string{
	"version.json":             `{"name":"es01","version":{"number":"8.11.1"}}`,
	"cluster_health.json":      `{"status":"green","number_of_nodes":3}`,
	"cat_aliases.txt":          "alias  index\nlogs   logs-000001\n",
	"nodes_stats.json":         `{"nodes":{"n1":{"name":"es01"}}}`,
	"commercial/licenses.json": `{"license":{"type":"platinum"}}`,
}

// Bundle is a bundle text with a recoverable trailing comma, an ellipsis,
// a comment line, one unrecoverable record and a repeated route.
const Bundle = `# 1: GET /_cluster/health 200 OK
{"status": "yellow",}
# 2: GET /_nodes/stats 200 OK
{"nodes": ...}
# 3: GET /_license 200 OK
// captured from the elected master
{"license": {"type": "basic"}}
# 4: GET /_broken 200 OK
{"unterminated": [
# 5: GET /_cluster/health 200 OK
{"status": "green"}
`

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DiagnosticsDir creates a temporary diagnostics directory holding the
// catalog and every artifact.
func DiagnosticsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, filepath.Join(dir, "elastic-rest.yml"), Catalog)
	for rel, content := range Artifacts {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(rel)), content)
	}
	return dir
}

// BundleFile writes content to a temporary file and returns its path.
func BundleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.txt")
	WriteFile(t, path, content)
	return path
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
