package replay

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/models"
	"github.com/starford/diagreplay/internal/routeindex"
)

// ServerName is reported by the catalog summary.
const ServerName = "Diagnostic Replay Server"

// summaryLimit caps the routes listed by Summary.
const summaryLimit = 20

// Response is a materialized replay payload.
type Response struct {
	Entry       routeindex.Entry
	Match       routeindex.MatchKind
	Body        []byte
	ContentType string
}

// Summary describes the loaded catalog.
type Summary struct {
	Server      string   `json:"server"`
	Version     string   `json:"version"`
	Mode        string   `json:"mode"`
	RoutesCount int      `json:"routes_count"`
	Routes      []string `json:"routes"`
	Note        string   `json:"note"`
}

// Service answers replay requests against a loaded snapshot.
type Service struct {
	snap *Snapshot
}

// NewService creates a new replay service.
func NewService(snap *Snapshot) *Service {
	return &Service{snap: snap}
}

// Snapshot returns the snapshot the service serves.
func (s *Service) Snapshot() *Snapshot {
	return s.snap
}

// Resolve matches path and materializes its payload. A miss returns
// apperr.ErrNotFound; any other error means the artifact could not be read.
func (s *Service) Resolve(_ context.Context, path string) (*Response, error) {
	e, kind, ok := s.snap.Index.Lookup(path)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	body, err := s.materialize(e)
	if err != nil {
		return nil, err
	}
	return &Response{Entry: e, Match: kind, Body: body, ContentType: e.ContentType}, nil
}

func (s *Service) materialize(e routeindex.Entry) ([]byte, error) {
	if e.Inline() {
		return e.Payload, nil
	}
	if s.snap.Store == nil {
		return nil, fmt.Errorf("replay: %s: no artifact store for file %s", e.Route, e.File)
	}
	data, err := s.snap.Store.Read(e.File)
	if err != nil {
		return nil, fmt.Errorf("replay: %s: %w", e.Route, err)
	}
	return data, nil
}

// Summary lists the first routes in sorted order.
func (s *Service) Summary() Summary {
	routes := s.snap.Index.Routes()
	return Summary{
		Server:      ServerName,
		Version:     s.snap.Version.String(),
		Mode:        s.snap.Mode,
		RoutesCount: len(routes),
		Routes:      lo.Slice(routes, 0, summaryLimit),
		Note:        fmt.Sprintf("Total %d routes available", len(routes)),
	}
}

// Entries returns every served route in index order.
func (s *Service) Entries() []routeindex.Entry {
	return s.snap.Index.Entries()
}

// ResolveAPI resolves one catalog API for the snapshot version.
func (s *Service) ResolveAPI(name string) (models.Resolution, error) {
	if s.snap.Catalog == nil {
		return models.Resolution{}, fmt.Errorf("replay: no catalog loaded: %w", apperr.ErrNotFound)
	}
	api, ok := s.snap.Catalog.Lookup(name)
	if !ok {
		return models.Resolution{}, fmt.Errorf("replay: api %q: %w", name, apperr.ErrNotFound)
	}
	res, ok := api.Resolve(s.snap.Version)
	if !ok {
		return models.Resolution{}, fmt.Errorf("replay: api %q has no rule for %s: %w", name, s.snap.Version, apperr.ErrNotFound)
	}
	return res, nil
}
