package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/archive"
	"github.com/starford/diagreplay/internal/bundle"
	"github.com/starford/diagreplay/internal/catalog"
	"github.com/starford/diagreplay/internal/generate"
	"github.com/starford/diagreplay/internal/replay"
)

// Resolve prints the catalog resolved against the target version: one line
// per API with the rule that matched, the route pattern and the artifact.
func Resolve(w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	src := app.config.Source.Options()
	path := src.CatalogPath()
	if path == "" {
		return fmt.Errorf("resolve: no catalog configured")
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}
	target := replay.TargetVersion(src, logger)
	resolutions := catalog.Build(cat, target, logger)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# version %s, %d of %d APIs resolved\n", target, len(resolutions), cat.Len())
	fmt.Fprintln(tw, "NAME\tRULE\tPATTERN\tARTIFACT")
	for _, r := range resolutions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Rule, r.Pattern, r.Locator)
	}
	return tw.Flush()
}

// Generate writes a bundle text file for the configured diagnostics
// directory. With watch set it keeps regenerating on changes until ctx is
// cancelled or the process is interrupted.
func Generate(ctx context.Context, out string, watch bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)
	src := app.config.Source.Options()

	if _, err := generate.Generate(src, out, logger); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return generate.Watch(ctx, src, out, logger, nil)
}

// Archive parses a bundle text file and stores its recovered records in a
// SQLite archive at out, replacing any previous content.
func Archive(bundlePath, out string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	res, err := bundle.ParseFile(bundlePath, logger)
	if err != nil {
		return err
	}
	records := bundle.Dedupe(res.Records)
	if len(records) == 0 {
		return fmt.Errorf("archive: %s: %w", bundlePath, apperr.ErrNoRoutes)
	}

	db, err := archive.Open(out)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Save(bundlePath, records); err != nil {
		return err
	}
	n, err := db.Count()
	if err != nil {
		return err
	}
	logger.Info("archive: written",
		slog.String("bundle", bundlePath),
		slog.String("out", out),
		slog.Int("records", n),
		slog.Int("dropped", res.Dropped))
	return nil
}
