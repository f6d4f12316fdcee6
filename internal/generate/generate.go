// Package generate builds bundle text files from a diagnostics directory.
package generate

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/diagreplay/internal/catalog"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/storage"
	"github.com/starford/diagreplay/internal/version"
)

// Result summarizes one generation run.
type Result struct {
	Version version.Triple
	Records int
	Skipped int
}

// Render emits one bundle record per catalog API, in catalog order. Only
// JSON artifacts are included; APIs without a matching rule, a readable
// artifact or non-blank content are skipped.
func Render(cat *catalog.Catalog, target version.Triple, store storage.Provider, logger *slog.Logger) ([]byte, Result) {
	res := Result{Version: target}
	var buf bytes.Buffer
	for _, api := range cat.APIs {
		if api.Extension != catalog.DefaultExtension {
			res.Skipped++
			continue
		}
		r, ok := api.Resolve(target)
		if !ok {
			res.Skipped++
			continue
		}
		data, err := store.Read(r.Locator)
		if err != nil {
			res.Skipped++
			logger.Debug("generate: artifact unreadable",
				slog.String("api", api.Name),
				slog.String("file", r.Locator),
				slog.String("error", err.Error()))
			continue
		}
		content := bytes.TrimSpace(data)
		if len(content) == 0 {
			res.Skipped++
			continue
		}
		res.Records++
		fmt.Fprintf(&buf, "# %d: GET %s 200 OK\n", res.Records, r.Pattern)
		buf.Write(content)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), res
}

// Generate renders the bundle for the diagnostics directory opts.Dir and
// writes it atomically to out.
func Generate(opts replay.Options, out string, logger *slog.Logger) (Result, error) {
	opts.Mode = replay.ModeDirectory
	target := replay.TargetVersion(opts, logger)

	cat, err := catalog.Load(opts.CatalogPath())
	if err != nil {
		return Result{}, err
	}
	store, err := storage.NewFS(opts.Dir)
	if err != nil {
		return Result{}, err
	}

	data, res := Render(cat, target, store, logger)

	abs, err := filepath.Abs(out)
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}
	outStore, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return Result{}, err
	}
	if err := outStore.Write(filepath.Base(abs), data); err != nil {
		return Result{}, err
	}

	logger.Info("generate: bundle written",
		slog.String("dir", store.Root()),
		slog.String("out", abs),
		slog.String("version", target.String()),
		slog.Int("records", res.Records),
		slog.Int("skipped", res.Skipped))
	return res, nil
}
