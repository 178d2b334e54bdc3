// Package resolver turns extracted identifiers into index hits,
// navigation targets, and validation problems.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
)

// Resolver answers name lookups against the index and the file system
// under one Drupal web root. All of its operations are read only.
type Resolver struct {
	idx           *index.Index
	root          string
	allowPrefixes []string
}

// New creates a resolver. allowPrefixes lists name prefixes that are
// generated at runtime and therefore legitimately absent from any
// definition file.
func New(idx *index.Index, root string, allowPrefixes []string) *Resolver {
	return &Resolver{idx: idx, root: root, allowPrefixes: allowPrefixes}
}

// Resolve looks one identifier up. A miss is a normal outcome.
func (r *Resolver) Resolve(kind index.Kind, name string) (index.Entity, bool) {
	return r.idx.GetByName(kind, name)
}

// FollowAlias chases service aliases to the concrete definition. Stops
// after a few hops so a cyclic alias chain cannot loop.
func (r *Resolver) FollowAlias(e index.Entity) index.Entity {
	for hops := 0; hops < 8 && e.Kind == index.KindService && e.Alias != ""; hops++ {
		target, ok := r.idx.GetByName(index.KindService, e.Alias)
		if !ok {
			break
		}
		e = target
	}
	return e
}

// classFileRoots lists, in precedence order, where an implementing
// class of a given module may live under the web root.
var classFileRoots = []string{
	"modules/custom",
	"modules/contrib",
	"core/modules",
}

// ClassFile maps a PHP class name like Drupal\my_module\Foo\Bar to the
// file that defines it, searching custom, then contrib, then the
// core-style location, and returning the first path that exists.
func (r *Resolver) ClassFile(class string) (string, bool) {
	parts := strings.Split(strings.Trim(class, "\\"), "\\")
	// Drupal\<module>\<Sub...>\<Class> maps onto <module>/src/<Sub...>/<Class>.php.
	if len(parts) < 3 || parts[0] != "Drupal" {
		return "", false
	}
	module := parts[1]
	rel := filepath.Join(parts[2:]...) + ".php"

	for _, root := range classFileRoots {
		candidate := filepath.Join(r.root, root, module, "src", rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Problem describes one invalid identifier occurrence.
type Problem struct {
	Message    string
	Suggestion string
}

// Validate checks one identifier. It returns nil when the identifier
// is known or its prefix is allowlisted as dynamic; index presence is
// checked first, so an indexed name never reaches the allowlist.
func (r *Resolver) Validate(kind index.Kind, name string) *Problem {
	if name == "" {
		return nil
	}
	if _, ok := r.idx.GetByName(kind, name); ok {
		return nil
	}
	for _, prefix := range r.allowPrefixes {
		if strings.HasPrefix(name, prefix) {
			return nil
		}
	}

	p := &Problem{Message: string(kind) + " '" + name + "' not found in any definition file"}
	if s := r.Suggest(kind, name); s != "" {
		p.Suggestion = s
		p.Message += ", did you mean '" + s + "'?"
	}
	return p
}

// Suggest returns the closest known name of the kind, or "" when
// nothing is close enough to be worth offering.
func (r *Resolver) Suggest(kind index.Kind, name string) string {
	const maxDistance = 3

	best := ""
	bestDist := maxDistance + 1
	for _, candidate := range r.idx.GetAllNames(kind) {
		d := levenshtein.Distance(name, candidate, nil)
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
