// Package models defines the domain types shared by the loaders and the
// serving layer.
package models

import (
	"encoding/json"
	"path"
	"strings"
)

// Content types served for artifacts.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Record is one captured response recovered from a bundle.
type Record struct {
	Route   string          `json:"route"`
	Body    string          `json:"-"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Recovered reports whether the record carries a usable payload.
func (r Record) Recovered() bool {
	return len(r.Payload) > 0
}

// Resolution is one catalog API resolved against a target version.
type Resolution struct {
	Name      string `json:"name"`
	Rule      string `json:"rule"`
	Pattern   string `json:"pattern"`
	Route     string `json:"route"`
	Locator   string `json:"locator"`
	Extension string `json:"extension"`
}

// StripQuery removes a query string suffix from a route pattern.
func StripQuery(pattern string) string {
	if i := strings.IndexByte(pattern, '?'); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// EnsureLeadingSlash prefixes p with "/" when it lacks one.
func EnsureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// ContentTypeFor maps an artifact file name or extension to a content type.
func ContentTypeFor(name string) string {
	ext := name
	if !strings.HasPrefix(name, ".") {
		ext = path.Ext(name)
	}
	if strings.EqualFold(ext, ".json") {
		return ContentTypeJSON
	}
	return ContentTypeText
}
