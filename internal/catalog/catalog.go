// Package catalog loads the declarative API catalog and resolves every API to
// a single route for a target version.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/diagreplay/internal/version"
)

// DefaultExtension is used when an API does not declare one.
const DefaultExtension = ".json"

// VersionedRoute pairs a rule with the route it selects.
type VersionedRoute struct {
	Rule    version.Rule
	Pattern string
}

// API is one catalog entry. Routes keep the order they were declared in.
type API struct {
	Name      string
	Routes    []VersionedRoute
	Extension string
	Subdir    string
}

// Catalog is the ordered set of API definitions.
type Catalog struct {
	APIs   []API
	byName map[string]int
}

// Lookup returns the API called name.
func (c *Catalog) Lookup(name string) (API, bool) {
	i, ok := c.byName[name]
	if !ok {
		return API{}, false
	}
	return c.APIs[i], true
}

// Len returns the number of APIs.
func (c *Catalog) Len() int {
	return len(c.APIs)
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalog. The node API is used so that the order of
// every "versions" mapping survives decoding. Keys starting with "#" and
// entries without versions are ignored.
func Parse(data []byte) (*Catalog, error) {
	cat := &Catalog{byName: make(map[string]int)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return cat, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping of API names, line %d", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		name := key.Value
		if strings.HasPrefix(name, "#") || val.Kind != yaml.MappingNode {
			continue
		}
		api, err := decodeAPI(name, val)
		if err != nil {
			return nil, err
		}
		if len(api.Routes) == 0 {
			continue
		}
		if _, dup := cat.byName[name]; dup {
			return nil, fmt.Errorf("api %q declared twice, line %d", name, key.Line)
		}
		cat.byName[name] = len(cat.APIs)
		cat.APIs = append(cat.APIs, api)
	}
	return cat, nil
}

func decodeAPI(name string, node *yaml.Node) (API, error) {
	api := API{Name: name, Extension: DefaultExtension}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "versions":
			if val.Kind != yaml.MappingNode {
				return API{}, fmt.Errorf("api %q: versions must be a mapping, line %d", name, val.Line)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				rule, pattern := val.Content[j], val.Content[j+1]
				if pattern.Kind != yaml.ScalarNode {
					return API{}, fmt.Errorf("api %q: route for %q must be a string, line %d", name, rule.Value, pattern.Line)
				}
				api.Routes = append(api.Routes, VersionedRoute{
					Rule:    version.ParseRule(rule.Value),
					Pattern: pattern.Value,
				})
			}
		case "extension":
			if val.Value != "" {
				api.Extension = val.Value
			}
		case "subdir":
			api.Subdir = strings.Trim(val.Value, "/")
		}
	}
	return api, nil
}
