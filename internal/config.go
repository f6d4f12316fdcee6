package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/version"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var versionRe = regexp.MustCompile(`^\s*\d+\.\d+\.\d+`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Auth    AuthConfig        `yaml:"auth"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}

// RateLimitConfig limits requests per client IP. Requests == 0 disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Requests, validation.Min(0)),
		validation.Field(&c.Window, validation.When(c.Requests > 0, validation.Required, validation.Min(time.Second))),
	)
}

// SourceConfig selects the bundle the server replays.
//
// Mode is one of:
//   - "directory" (default): artifacts are files under Dir, mapped through the catalog.
//   - "bundle": records are recovered from the bundle text file Bundle.
//   - "archive": records are read from a SQLite archive built by the archive command.
type SourceConfig struct {
	Mode            string `yaml:"mode"`
	Dir             string `yaml:"dir"`
	Catalog         string `yaml:"catalog"`
	Bundle          string `yaml:"bundle"`
	Archive         string `yaml:"archive"`
	Version         string `yaml:"version"`
	VersionFile     string `yaml:"version_file"`
	VersionField    string `yaml:"version_field"`
	FallbackVersion string `yaml:"fallback_version"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = replay.ModeDirectory
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(replay.ModeDirectory, replay.ModeBundle, replay.ModeArchive)),
		validation.Field(&c.Dir, validation.When(c.Mode == replay.ModeDirectory, validation.Required)),
		validation.Field(&c.Bundle, validation.When(c.Mode == replay.ModeBundle, validation.Required)),
		validation.Field(&c.Archive, validation.When(c.Mode == replay.ModeArchive, validation.Required)),
		validation.Field(&c.FallbackVersion, validation.Match(versionRe)),
	)
}

// Options converts the source configuration into load options.
func (c *SourceConfig) Options() replay.Options {
	return replay.Options{
		Mode:            c.Mode,
		Dir:             c.Dir,
		Catalog:         c.Catalog,
		Bundle:          c.Bundle,
		Archive:         c.Archive,
		Version:         c.Version,
		VersionFile:     c.VersionFile,
		VersionField:    c.VersionField,
		FallbackVersion: c.FallbackVersion,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local replay.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
				RateLimit: RateLimitConfig{
					Window: time.Minute,
				},
			},
		},
		Source: SourceConfig{
			Mode:            replay.ModeDirectory,
			Dir:             "./diagnostics",
			VersionField:    version.DefaultField,
			FallbackVersion: "8.11.1",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
