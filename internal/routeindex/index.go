// Package routeindex maps resolved route patterns to the artifacts that back
// them and implements request matching.
package routeindex

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/starford/diagreplay/internal/models"
)

// MatchKind tells how a lookup was satisfied.
type MatchKind string

// Match kinds.
const (
	MatchExact  MatchKind = "exact"
	MatchPrefix MatchKind = "prefix"
)

// Entry is one served route.
type Entry struct {
	// Route is the lookup key: the pattern without its query string.
	Route string `json:"route"`
	// Pattern is the route as declared, query string included.
	Pattern string `json:"pattern"`
	// Name is the catalog API name, empty for bundle-only routes.
	Name string `json:"name,omitempty"`
	// File is an artifact path relative to the bundle root. Empty when the
	// payload is held inline.
	File string `json:"file,omitempty"`
	// Payload is the inline artifact.
	Payload json.RawMessage `json:"-"`
	// ContentType is served with the artifact.
	ContentType string `json:"content_type"`
}

// Inline reports whether the entry holds its payload in memory.
func (e Entry) Inline() bool {
	return e.File == ""
}

// Source describes where the payload comes from.
func (e Entry) Source() string {
	if e.Inline() {
		return "inline"
	}
	return e.File
}

// Index is an insertion-ordered route table. It is filled during the load
// phase and only read afterwards, so lookups need no locking.
type Index struct {
	entries []Entry
	pos     map[string]int
	logger  *slog.Logger
}

// New returns an empty index. Replaced routes are reported to logger.
func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{pos: make(map[string]int), logger: logger}
}

// Add registers e under its normalized route. A second entry for the same
// route replaces the first in place.
func (idx *Index) Add(e Entry) {
	if e.Pattern == "" {
		e.Pattern = e.Route
	}
	e.Route = models.StripQuery(e.Route)
	if e.ContentType == "" {
		e.ContentType = models.ContentTypeJSON
	}
	if i, ok := idx.pos[e.Route]; ok {
		prev := idx.entries[i]
		idx.logger.Warn("index: route registered twice, keeping the later one",
			slog.String("route", e.Route),
			slog.String("previous", prev.Name+" "+prev.Source()),
			slog.String("current", e.Name+" "+e.Source()))
		idx.entries[i] = e
		return
	}
	idx.pos[e.Route] = len(idx.entries)
	idx.entries = append(idx.entries, e)
}

// Lookup resolves a request path. The query string is stripped once, then an
// exact match is tried, then the first entry in insertion order whose route
// (trailing "*" removed) is a prefix of the path.
func (idx *Index) Lookup(requestPath string) (Entry, MatchKind, bool) {
	p := models.StripQuery(requestPath)
	if i, ok := idx.pos[p]; ok {
		return idx.entries[i], MatchExact, true
	}
	for _, e := range idx.entries {
		if strings.HasPrefix(p, strings.TrimRight(e.Route, "*")) {
			return e, MatchPrefix, true
		}
	}
	return Entry{}, "", false
}

// Len returns the number of routes.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the entries in insertion order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Routes returns the sorted route keys.
func (idx *Index) Routes() []string {
	out := lo.Map(idx.entries, func(e Entry, _ int) string { return e.Route })
	sort.Strings(out)
	return out
}
