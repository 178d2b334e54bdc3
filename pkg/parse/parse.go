// Package parse turns Drupal YAML definition files into entities.
//
// A malformed file is never an error for the caller: it parses to an
// empty entity list and a log line, so indexing of the rest of the
// tree continues unaffected.
package parse

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
)

// File reads and parses one definition file.
func File(path string, kind index.Kind) []index.Entity {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("parse: skipping unreadable %s: %v", path, err)
		return nil
	}
	return Parse(content, path, kind)
}

// Parse parses definition file content. It is a pure function of
// (content, path): positions and tier are derived from nothing else.
func Parse(content []byte, path string, kind index.Kind) []index.Entity {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		log.Printf("parse: malformed %s: %v", path, err)
		return nil
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}

	tier := index.TierOf(path)

	switch kind {
	case index.KindService:
		return parseServices(root, path, tier)
	case index.KindRoute:
		return parseRoutes(root, path, tier)
	case index.KindLink:
		return parseLinks(root, path, tier)
	default:
		return nil
	}
}

// parseServices handles *.services.yml. Entries live under the top
// level "services" key; an entry whose value is a plain "@target"
// scalar is an alias.
func parseServices(root *yaml.Node, path string, tier index.Tier) []index.Entity {
	services := mappingValue(root, "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return nil
	}

	var out []index.Entity
	forEachEntry(services, func(key, val *yaml.Node) {
		name := key.Value
		if name == "" || strings.HasPrefix(name, "_") {
			// _defaults and friends configure the container, they
			// do not declare services.
			return
		}

		e := index.Entity{
			Kind:       index.KindService,
			Name:       name,
			SourceFile: path,
			SourceLine: key.Line,
			Tier:       tier,
		}

		if val.Kind == yaml.ScalarNode {
			e.Alias = strings.TrimPrefix(val.Value, "@")
			out = append(out, e)
			return
		}
		if val.Kind != yaml.MappingNode {
			return
		}

		forEachEntry(val, func(k, v *yaml.Node) {
			switch k.Value {
			case "class":
				e.Class = v.Value
			case "parent":
				e.Parent = v.Value
			case "factory":
				e.Factory = flatten(v)
			case "alias":
				e.Alias = strings.TrimPrefix(v.Value, "@")
			case "arguments":
				for _, item := range v.Content {
					e.Arguments = append(e.Arguments, item.Value)
				}
			default:
				addExtra(&e, k.Value, v)
			}
		})
		out = append(out, e)
	})
	return out
}

// parseRoutes handles *.routing.yml. Every top level entry is a route.
func parseRoutes(root *yaml.Node, path string, tier index.Tier) []index.Entity {
	var out []index.Entity
	forEachEntry(root, func(key, val *yaml.Node) {
		name := key.Value
		if name == "" || val.Kind != yaml.MappingNode {
			return
		}

		e := index.Entity{
			Kind:       index.KindRoute,
			Name:       name,
			SourceFile: path,
			SourceLine: key.Line,
			Tier:       tier,
		}

		forEachEntry(val, func(k, v *yaml.Node) {
			switch k.Value {
			case "path":
				e.Path = v.Value
			case "defaults":
				if c := mappingValue(v, "_controller"); c != nil {
					e.Controller = c.Value
				}
			case "requirements":
				if p := mappingValue(v, "_permission"); p != nil {
					e.Permission = p.Value
				}
			default:
				addExtra(&e, k.Value, v)
			}
		})
		out = append(out, e)
	})
	return out
}

// parseLinks handles the *.links.*.yml family.
func parseLinks(root *yaml.Node, path string, tier index.Tier) []index.Entity {
	var out []index.Entity
	forEachEntry(root, func(key, val *yaml.Node) {
		name := key.Value
		if name == "" || val.Kind != yaml.MappingNode {
			return
		}

		e := index.Entity{
			Kind:       index.KindLink,
			Name:       name,
			SourceFile: path,
			SourceLine: key.Line,
			Tier:       tier,
		}

		forEachEntry(val, func(k, v *yaml.Node) {
			switch k.Value {
			case "title":
				e.Title = v.Value
			case "parent":
				e.Parent = v.Value
			case "route_name":
				e.RouteName = v.Value
			case "appears_on":
				for _, item := range v.Content {
					e.AppearsOn = append(e.AppearsOn, item.Value)
				}
			default:
				addExtra(&e, k.Value, v)
			}
		})
		out = append(out, e)
	})
	return out
}

func forEachEntry(mapping *yaml.Node, fn func(key, val *yaml.Node)) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fn(mapping.Content[i], mapping.Content[i+1])
	}
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// addExtra records an attribute we do not interpret, verbatim, for
// display in hovers.
func addExtra(e *index.Entity, key string, val *yaml.Node) {
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}
	e.Extra[key] = flatten(val)
}

// flatten renders a YAML node as a one line string.
func flatten(n *yaml.Node) string {
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	raw, err := yaml.Marshal(n)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\n", " "))
}
