// Package reference locates entity name references in raw source text.
//
// Each call-site shape gets its own regexp with a single capture group
// for the identifier literal, so every "is the cursor inside this
// span" decision stays auditable per shape. The closing quote is
// always optional: extraction has to work while the literal is still
// being typed.
package reference

import (
	"regexp"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
)

// ident is the character class of Drupal machine names.
const ident = `[A-Za-z0-9_.\-]*`

// Shape is one textual pattern through which a reference may appear.
type Shape struct {
	Name string
	Kind index.Kind
	re   *regexp.Regexp
}

// Match is an identifier found on a line, with the span of the
// identifier literal itself (quotes excluded).
type Match struct {
	Identifier string
	Start, End int
	Shape      string
	Kind       index.Kind
}

// ServiceShapes covers identifier-by-name service lookups.
var ServiceShapes = []Shape{
	{
		// \Drupal::service('entity_type.manager')
		Name: "service-static",
		Kind: index.KindService,
		re:   regexp.MustCompile(`Drupal::service\(\s*['"](` + ident + `)`),
	},
	{
		// $container->get('entity_type.manager')
		Name: "container-get",
		Kind: index.KindService,
		re:   regexp.MustCompile(`->get\(\s*['"](` + ident + `)`),
	},
	{
		// arguments: ['@entity_type.manager']
		Name: "argument-sigil",
		Kind: index.KindService,
		re:   regexp.MustCompile(`['"]@(` + ident + `)`),
	},
}

// RouteShapes covers route name references.
var RouteShapes = []Shape{
	{
		// Url::fromRoute('my_module.settings')
		Name: "url-from-route",
		Kind: index.KindRoute,
		re:   regexp.MustCompile(`Url::fromRoute\(\s*['"](` + ident + `)`),
	},
	{
		// $this->redirect('my_module.settings')
		Name: "redirect",
		Kind: index.KindRoute,
		re:   regexp.MustCompile(`->redirect\(\s*['"](` + ident + `)`),
	},
	{
		// Link::createFromRoute($text, 'my_module.settings')
		Name: "link-create-from-route",
		Kind: index.KindRoute,
		re:   regexp.MustCompile(`Link::createFromRoute\([^,]*,\s*['"](` + ident + `)`),
	},
	{
		// route_name: my_module.settings  (links.*.yml)
		Name: "route-name-entry",
		Kind: index.KindRoute,
		re:   regexp.MustCompile(`route_name:\s*['"]?(` + ident + `)`),
	},
}

// LinkShapes covers references to other link names.
var LinkShapes = []Shape{
	{
		// parent: system.admin_config  (links.menu.yml)
		Name: "link-parent-entry",
		Kind: index.KindLink,
		re:   regexp.MustCompile(`parent:\s*['"]?(` + ident + `)`),
	},
}

// ServiceParentEntry matches the parent key of a service definition,
// which names another service (`parent: logger.channel_base`). The
// same key spells a link parent in links.*.yml, so this shape lives
// outside the grouped lists; diagnostics pick it per file family and
// cursor queries never see it.
var ServiceParentEntry = Shape{
	Name: "service-parent-entry",
	Kind: index.KindService,
	re:   regexp.MustCompile(`parent:\s*['"]?(` + ident + `)`),
}

var allShapes = concat(ServiceShapes, RouteShapes, LinkShapes)

func concat(groups ...[]Shape) []Shape {
	var out []Shape
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// at returns the match of this shape whose identifier span contains
// the cursor. When the same shape fires more than once on a line, the
// span under the cursor wins, not the first match.
func (s Shape) at(line string, offset int) (Match, bool) {
	for _, loc := range s.re.FindAllStringSubmatchIndex(line, -1) {
		start, end := loc[2], loc[3]
		if start < 0 {
			continue
		}
		if start <= offset && offset <= end {
			return Match{
				Identifier: line[start:end],
				Start:      start,
				End:        end,
				Shape:      s.Name,
				Kind:       s.Kind,
			}, true
		}
	}
	return Match{}, false
}

func firstAt(shapes []Shape, line string, offset int) (Match, bool) {
	for _, s := range shapes {
		if m, ok := s.at(line, offset); ok {
			return m, true
		}
	}
	return Match{}, false
}

// ServiceAt reports the service reference under the cursor, if any.
func ServiceAt(line string, offset int) (Match, bool) {
	return firstAt(ServiceShapes, line, offset)
}

// RouteAt reports the route reference under the cursor, if any.
func RouteAt(line string, offset int) (Match, bool) {
	return firstAt(RouteShapes, line, offset)
}

// LinkAt reports the link reference under the cursor, if any.
func LinkAt(line string, offset int) (Match, bool) {
	return firstAt(LinkShapes, line, offset)
}

// At checks every grammar, services first, then routes, then links.
func At(line string, offset int) (Match, bool) {
	return firstAt(allShapes, line, offset)
}

// TypedPrefix returns the text between the opening of the literal
// under the cursor and the cursor itself. It is what the user has
// typed so far, used for ranking and replacement ranges only; the full
// eventual token may differ.
func TypedPrefix(line string, offset int) (string, bool) {
	m, ok := At(line, offset)
	if !ok {
		return "", false
	}
	end := offset
	if end > m.End {
		end = m.End
	}
	return line[m.Start:end], true
}

// Scan returns every reference of the given shapes on a line, in
// textual order. Used by the validator, which diagnoses each
// occurrence independently of any cursor.
func Scan(shapes []Shape, line string) []Match {
	var out []Match
	for _, s := range shapes {
		for _, loc := range s.re.FindAllStringSubmatchIndex(line, -1) {
			start, end := loc[2], loc[3]
			if start < 0 {
				continue
			}
			out = append(out, Match{
				Identifier: line[start:end],
				Start:      start,
				End:        end,
				Shape:      s.Name,
				Kind:       s.Kind,
			})
		}
	}
	// Keep textual order even when several shape lists contributed.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Start < out[j-1].Start; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
