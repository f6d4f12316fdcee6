package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/diagreplay/internal"
	"github.com/starford/diagreplay/internal/replay"
	pkgconfig "github.com/starford/diagreplay/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the config file and applies source overrides from flags.
// The default config file is optional; an explicitly named one is not.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if configPath == defaultConfigPath {
		if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	src := &cfg.Source
	if cmd.IsSet("dir") {
		src.Dir = cmd.String("dir")
		src.Mode = replay.ModeDirectory
	}
	if cmd.IsSet("bundle") {
		src.Bundle = cmd.String("bundle")
		src.Mode = replay.ModeBundle
	}
	if cmd.IsSet("archive") {
		src.Archive = cmd.String("archive")
		src.Mode = replay.ModeArchive
	}
	if cmd.IsSet("catalog") {
		src.Catalog = cmd.String("catalog")
	}
	if cmd.IsSet("es-version") {
		src.Version = cmd.String("es-version")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func resolve(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Resolve(os.Stdout, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func generate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Generate(ctx, cmd.String("out"), cmd.Bool("watch"), internal.WithConfig(cfg))
}

func archiveBundle(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Archive(cmd.String("from"), cmd.String("out"), internal.WithConfig(cfg))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

// sourceFlags are declared on the root command and inherited by every
// subcommand.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Diagnostics directory (selects directory mode)",
			Sources: cli.EnvVars("APP_SOURCE_DIR"),
		},
		&cli.StringFlag{
			Name:    "bundle",
			Usage:   "Bundle text file (selects bundle mode)",
			Sources: cli.EnvVars("APP_SOURCE_BUNDLE"),
		},
		&cli.StringFlag{
			Name:    "archive",
			Usage:   "SQLite archive built by the archive command (selects archive mode)",
			Sources: cli.EnvVars("APP_SOURCE_ARCHIVE"),
		},
		&cli.StringFlag{
			Name:    "catalog",
			Usage:   "Route catalog, default {dir}/elastic-rest.yml",
			Sources: cli.EnvVars("APP_SOURCE_CATALOG"),
		},
		&cli.StringFlag{
			Name:    "es-version",
			Usage:   "Target version, overrides the version file",
			Sources: cli.EnvVars("APP_SOURCE_VERSION"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "diagreplay",
		Usage:   "Replay a captured Elasticsearch diagnostic bundle as a read-only REST API",
		Version: version,
		Action:  serve,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port",
				Sources: cli.EnvVars("APP_HTTP_PORT"),
			},
		}, sourceFlags()...),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Load the bundle and serve it over HTTP (default)",
				Action: serve,
			},
			{
				Name:   "resolve",
				Usage:  "Print the catalog resolved against the target version",
				Action: resolve,
			},
			{
				Name:   "generate",
				Usage:  "Build a bundle text file from a diagnostics directory",
				Action: generate,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output bundle file",
						Value:   "diagnostics_output.txt",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Regenerate whenever the directory changes",
					},
				},
			},
			{
				Name:   "archive",
				Usage:  "Parse a bundle text file into a SQLite archive",
				Action: archiveBundle,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Aliases:  []string{"f"},
						Usage:    "Bundle text file to parse",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Archive file to write",
						Value:   "bundle.db",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the bundle to an MCP client over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
