// Package rank orders candidate entities for presentation.
//
// Every candidate is reduced to one sortable key, so the output order
// is reproducible for the same input set no matter how the underlying
// index happened to iterate.
package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
)

// Match bands within a tier, strictly ordered.
const (
	bandExact = iota
	bandPrefix
	bandContains
	bandOther
)

// tierOrder maps tiers to their rank digit: custom entities sort
// before contrib, which sort before core, which sort before unknown.
func tierOrder(t index.Tier) int {
	switch t {
	case index.TierCustom:
		return 0
	case index.TierContrib:
		return 1
	case index.TierCore:
		return 2
	default:
		return 3
	}
}

// Key renders the full sort key of one candidate against the typed
// prefix: tier, then match band, then remaining-suffix length (prefix
// band only, shorter completions first), then the name as the final
// lexical tie break. Keys compare correctly as plain strings.
func Key(e index.Entity, typedPrefix string) string {
	band := bandOther
	suffix := 0
	switch {
	case e.Name == typedPrefix:
		band = bandExact
	case typedPrefix != "" && strings.HasPrefix(e.Name, typedPrefix):
		band = bandPrefix
		suffix = len(e.Name) - len(typedPrefix)
	case typedPrefix != "" && strings.Contains(e.Name, typedPrefix):
		band = bandContains
	case typedPrefix == "":
		// Nothing typed yet: every candidate matches trivially.
		band = bandPrefix
		suffix = len(e.Name)
	}
	return fmt.Sprintf("%d:%d:%06d:%s", tierOrder(e.Tier), band, suffix, e.Name)
}

// Rank sorts candidates into presentation order. The sort is total:
// the key ends with the name, so the order never depends on input
// order except for fully identical entries.
func Rank(candidates []index.Entity, typedPrefix string) []index.Entity {
	type keyed struct {
		key string
		e   index.Entity
	}
	items := make([]keyed, len(candidates))
	for i, e := range candidates {
		items[i] = keyed{key: Key(e, typedPrefix), e: e}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })

	out := make([]index.Entity, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}
