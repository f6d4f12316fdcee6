// Package replay builds the route index for a diagnostic bundle and
// materializes payloads for incoming requests.
package replay

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/archive"
	"github.com/starford/diagreplay/internal/bundle"
	"github.com/starford/diagreplay/internal/catalog"
	"github.com/starford/diagreplay/internal/models"
	"github.com/starford/diagreplay/internal/routeindex"
	"github.com/starford/diagreplay/internal/storage"
	"github.com/starford/diagreplay/internal/version"
)

// Source modes.
const (
	ModeDirectory = "directory"
	ModeBundle    = "bundle"
	ModeArchive   = "archive"
)

// Default file names inside a diagnostics directory.
const (
	DefaultCatalogFile = "elastic-rest.yml"
	DefaultVersionFile = "version.json"
)

// Options selects where routes and payloads come from.
type Options struct {
	Mode            string
	Dir             string
	Catalog         string
	Bundle          string
	Archive         string
	Version         string
	VersionFile     string
	VersionField    string
	FallbackVersion string
}

// CatalogPath returns the configured catalog or the default one inside Dir.
// It is empty when neither is available.
func (o Options) CatalogPath() string {
	if o.Catalog != "" {
		return o.Catalog
	}
	if o.Dir != "" && o.Mode == ModeDirectory {
		return filepath.Join(o.Dir, DefaultCatalogFile)
	}
	return ""
}

func (o Options) versionFilePath() string {
	if o.VersionFile != "" {
		return o.VersionFile
	}
	if o.Dir != "" {
		return filepath.Join(o.Dir, DefaultVersionFile)
	}
	return ""
}

// Snapshot is the result of the load phase. Nothing in it changes after Load
// returns, so it is shared by reference across concurrent requests.
type Snapshot struct {
	Mode        string
	Version     version.Triple
	Index       *routeindex.Index
	Catalog     *catalog.Catalog
	Resolutions []models.Resolution
	Store       storage.Provider
	Dropped     int
}

// TargetVersion determines the version routes are resolved for. An explicit
// version wins over the version file; malformed values fall back to 0.0.0
// or the fallback version and are logged.
func TargetVersion(opts Options, logger *slog.Logger) version.Triple {
	fallback, ok := version.ParseStrict(opts.FallbackVersion)
	if !ok && opts.FallbackVersion != "" {
		logger.Warn("version: malformed fallback version", slog.String("value", opts.FallbackVersion))
	}
	if opts.Version != "" {
		t, ok := version.ParseStrict(opts.Version)
		if !ok {
			logger.Warn("version: malformed target version, treating as 0.0.0", slog.String("value", opts.Version))
		}
		return t
	}
	if p := opts.versionFilePath(); p != "" {
		return version.FromFile(p, opts.VersionField, fallback, logger)
	}
	return fallback
}

// Load runs the load phase. Unreadable inputs and an empty result are fatal;
// individual unresolvable routes are logged and skipped.
func Load(opts Options, logger *slog.Logger) (*Snapshot, error) {
	snap := &Snapshot{
		Mode:    opts.Mode,
		Version: TargetVersion(opts, logger),
		Index:   routeindex.New(logger),
	}

	if p := opts.CatalogPath(); p != "" {
		cat, err := catalog.Load(p)
		if err != nil {
			return nil, err
		}
		snap.Catalog = cat
		snap.Resolutions = catalog.Build(cat, snap.Version, logger)
		logger.Info("catalog: resolved",
			slog.Int("apis", cat.Len()),
			slog.Int("resolved", len(snap.Resolutions)),
			slog.String("version", snap.Version.String()))
	}

	var err error
	switch opts.Mode {
	case ModeDirectory:
		err = loadDirectory(snap, opts, logger)
	case ModeBundle:
		err = loadBundle(snap, opts, logger)
	case ModeArchive:
		err = loadArchive(snap, opts, logger)
	default:
		err = fmt.Errorf("%w: unknown mode %q", apperr.ErrInvalidSource, opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	if snap.Index.Len() == 0 {
		return nil, fmt.Errorf("replay: %s source: %w", opts.Mode, apperr.ErrNoRoutes)
	}
	logger.Info("index: ready",
		slog.Int("routes", snap.Index.Len()),
		slog.Int("dropped", snap.Dropped))
	return snap, nil
}

func loadDirectory(snap *Snapshot, opts Options, logger *slog.Logger) error {
	if snap.Catalog == nil {
		return fmt.Errorf("%w: directory mode needs a catalog", apperr.ErrInvalidSource)
	}
	store, err := storage.NewFS(opts.Dir)
	if err != nil {
		return err
	}
	snap.Store = store

	for _, res := range snap.Resolutions {
		if !store.Exists(res.Locator) {
			snap.Dropped++
			logger.Warn("index: artifact missing",
				slog.String("api", res.Name),
				slog.String("route", res.Route),
				slog.String("file", res.Locator))
			continue
		}
		snap.Index.Add(routeindex.Entry{
			Route:       res.Route,
			Pattern:     res.Pattern,
			Name:        res.Name,
			File:        res.Locator,
			ContentType: models.ContentTypeFor(res.Extension),
		})
		logger.Debug("index: mapped", slog.String("route", res.Route), slog.String("file", res.Locator))
	}
	return nil
}

func loadBundle(snap *Snapshot, opts Options, logger *slog.Logger) error {
	if opts.Bundle == "" {
		return fmt.Errorf("%w: bundle mode needs a bundle file", apperr.ErrInvalidSource)
	}
	res, err := bundle.ParseFile(opts.Bundle, logger)
	if err != nil {
		return err
	}
	snap.Dropped += res.Dropped
	logger.Info("bundle: parsed",
		slog.String("path", opts.Bundle),
		slog.Int("records", len(res.Records)),
		slog.Int("dropped", res.Dropped))
	fillFromRecords(snap, bundle.Dedupe(res.Records), logger)
	return nil
}

func loadArchive(snap *Snapshot, opts Options, logger *slog.Logger) error {
	if opts.Archive == "" {
		return fmt.Errorf("%w: archive mode needs an archive file", apperr.ErrInvalidSource)
	}
	// sqlite would silently create a missing file.
	if _, err := os.Stat(opts.Archive); err != nil {
		return fmt.Errorf("replay: archive: %w", err)
	}
	db, err := archive.Open(opts.Archive)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Load()
	if err != nil {
		return err
	}
	source, err := db.Meta(archive.MetaSource)
	if err != nil {
		return err
	}
	logger.Info("archive: loaded",
		slog.String("path", opts.Archive),
		slog.String("bundle", source),
		slog.Int("records", len(records)))
	fillFromRecords(snap, records, logger)
	return nil
}

// fillFromRecords registers inline payloads. With a catalog only resolved
// routes are served, each filled by the record captured for the same
// normalized route; without one every record is served as captured.
func fillFromRecords(snap *Snapshot, records []models.Record, logger *slog.Logger) {
	if snap.Catalog == nil {
		for _, r := range records {
			snap.Index.Add(routeindex.Entry{Route: r.Route, Pattern: r.Route, Payload: r.Payload})
		}
		return
	}

	byRoute := make(map[string]models.Record, len(records))
	for _, r := range records {
		byRoute[models.StripQuery(r.Route)] = r
	}
	for _, res := range snap.Resolutions {
		r, ok := byRoute[res.Route]
		if !ok {
			snap.Dropped++
			logger.Warn("index: no captured record for route",
				slog.String("api", res.Name),
				slog.String("route", res.Route))
			continue
		}
		snap.Index.Add(routeindex.Entry{
			Route:   res.Route,
			Pattern: res.Pattern,
			Name:    res.Name,
			Payload: r.Payload,
		})
	}
}
