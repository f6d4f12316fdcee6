package catalog

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/diagreplay/internal/models"
	"github.com/starford/diagreplay/internal/version"
)

// Resolve picks the route of api for target. Rules are tried in declared
// order and the first match wins, even when a later rule is narrower.
func (api API) Resolve(target version.Triple) (models.Resolution, bool) {
	for _, vr := range api.Routes {
		if !vr.Rule.Matches(target) {
			continue
		}
		return models.Resolution{
			Name:      api.Name,
			Rule:      vr.Rule.String(),
			Pattern:   vr.Pattern,
			Route:     models.EnsureLeadingSlash(models.StripQuery(vr.Pattern)),
			Locator:   api.Locator(),
			Extension: api.Extension,
		}, true
	}
	return models.Resolution{}, false
}

// Locator is the artifact path relative to the bundle root.
func (api API) Locator() string {
	return path.Join(api.Subdir, api.Name+api.Extension)
}

// Build resolves every API in catalog order. APIs without a matching rule
// are logged and left out. Rules that carry no condition, or that hold text
// which is not a condition, are reported once per rule text.
func Build(cat *Catalog, target version.Triple, logger *slog.Logger) []models.Resolution {
	warned := make(map[string]struct{})
	out := make([]models.Resolution, 0, cat.Len())
	for _, api := range cat.APIs {
		for _, vr := range api.Routes {
			if !vr.Rule.Empty() && !vr.Rule.Malformed() {
				continue
			}
			if _, seen := warned[vr.Rule.String()]; seen {
				continue
			}
			warned[vr.Rule.String()] = struct{}{}
			if vr.Rule.Empty() {
				logger.Warn("catalog: rule has no version condition and never matches",
					slog.String("api", api.Name),
					slog.String("rule", vr.Rule.String()))
				continue
			}
			logger.Warn("catalog: malformed rule, evaluating the readable conditions only",
				slog.String("api", api.Name),
				slog.String("rule", vr.Rule.String()),
				slog.String("conditions", conditionText(vr.Rule)))
		}

		res, ok := api.Resolve(target)
		if !ok {
			logger.Info("catalog: no rule matches target version",
				slog.String("api", api.Name),
				slog.String("version", target.String()))
			continue
		}
		out = append(out, res)
	}
	return out
}

func conditionText(r version.Rule) string {
	conds := r.Conditions()
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
