package version

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/buger/jsonparser"
)

// DefaultField locates the version string in a cluster info document.
const DefaultField = "version.number"

// Extract reads the dotted field from a JSON document and parses it.
func Extract(data []byte, field string) (Triple, error) {
	if field == "" {
		field = DefaultField
	}
	raw, typ, _, err := jsonparser.Get(data, strings.Split(field, ".")...)
	if err != nil {
		return Triple{}, fmt.Errorf("version: field %q: %w", field, err)
	}
	if typ != jsonparser.String && typ != jsonparser.Number {
		return Triple{}, fmt.Errorf("version: field %q is %s, not a version string", field, typ)
	}
	t, ok := ParseStrict(string(raw))
	if !ok {
		return Triple{}, fmt.Errorf("version: field %q: malformed version %q", field, raw)
	}
	return t, nil
}

// FromFile reads the version from a JSON file. Any failure falls back to
// fallback and is logged; it is never fatal.
func FromFile(path, field string, fallback Triple, logger *slog.Logger) Triple {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("version: read failed, using fallback",
			slog.String("path", path),
			slog.String("fallback", fallback.String()),
			slog.String("error", err.Error()))
		return fallback
	}
	t, err := Extract(data, field)
	if err != nil {
		logger.Warn("version: extract failed, using fallback",
			slog.String("path", path),
			slog.String("fallback", fallback.String()),
			slog.String("error", err.Error()))
		return fallback
	}
	return t
}
