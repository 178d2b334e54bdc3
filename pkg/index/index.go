package index

import (
	"sort"
	"strings"
	"sync"
)

// Index is the authoritative store of parsed entities, keyed by the
// definition file that contributed them. Entries never expire; they are
// only replaced or purged explicitly. Derived data with a lifetime
// belongs in Memo, never here.
type Index struct {
	mu      sync.RWMutex
	files   map[string]*fileBucket
	byName  map[nameKey]map[string]*Entity // name -> file key -> entity
	nextSeq uint64
}

type fileBucket struct {
	key      string
	entities []Entity
	seq      uint64 // completion order of the scan that produced this bucket
}

type nameKey struct {
	kind Kind
	name string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		files:  make(map[string]*fileBucket),
		byName: make(map[nameKey]map[string]*Entity),
	}
}

// bucketKey encodes kind and path so pattern eviction can target a
// whole category ("service:*") without enumerating files.
func bucketKey(kind Kind, path string) string {
	return string(kind) + ":" + path
}

// ReplaceFile installs the given entities as the complete contribution
// of one definition file, discarding whatever that file contributed
// before. The bucket's sequence number records scan completion order,
// which is what makes duplicate-name lookups deterministic: the most
// recently completed scan wins.
func (ix *Index) ReplaceFile(kind Kind, path string, entities []Entity) {
	key := bucketKey(kind, path)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.dropBucketLocked(key)
	if len(entities) == 0 {
		return
	}

	ix.nextSeq++
	b := &fileBucket{key: key, entities: entities, seq: ix.nextSeq}
	ix.files[key] = b
	for i := range b.entities {
		e := &b.entities[i]
		nk := nameKey{kind: e.Kind, name: e.Name}
		m := ix.byName[nk]
		if m == nil {
			m = make(map[string]*Entity)
			ix.byName[nk] = m
		}
		m[key] = e
	}
}

// PurgeFile removes every entity the file contributed, for all kinds.
func (ix *Index) PurgeFile(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, kind := range []Kind{KindService, KindRoute, KindLink} {
		ix.dropBucketLocked(bucketKey(kind, path))
	}
}

// ClearAll empties the index, e.g. on a settings change broad enough to
// invalidate everything.
func (ix *Index) ClearAll() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files = make(map[string]*fileBucket)
	ix.byName = make(map[nameKey]map[string]*Entity)
}

// ClearMatching evicts every bucket whose internal key matches the
// pattern: "foo" exact, "foo*" prefix, "*foo*" substring.
func (ix *Index) ClearMatching(pattern string) {
	match := compilePattern(pattern)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for key := range ix.files {
		if match(key) {
			ix.dropBucketLocked(key)
		}
	}
}

func compilePattern(pattern string) func(string) bool {
	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) >= 2:
		needle := pattern[1 : len(pattern)-1]
		return func(key string) bool { return strings.Contains(key, needle) }
	case strings.HasSuffix(pattern, "*"):
		prefix := pattern[:len(pattern)-1]
		return func(key string) bool { return strings.HasPrefix(key, prefix) }
	default:
		return func(key string) bool { return key == pattern }
	}
}

func (ix *Index) dropBucketLocked(key string) {
	b, ok := ix.files[key]
	if !ok {
		return
	}
	delete(ix.files, key)
	for i := range b.entities {
		e := &b.entities[i]
		nk := nameKey{kind: e.Kind, name: e.Name}
		if m := ix.byName[nk]; m != nil {
			delete(m, key)
			if len(m) == 0 {
				delete(ix.byName, nk)
			}
		}
	}
}

// GetByName returns the entity for a name within one kind. When the
// same name is defined in several files, the definition from the most
// recently completed scan wins; purging that file falls back to the
// next most recent definition.
func (ix *Index) GetByName(kind Kind, name string) (Entity, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	m := ix.byName[nameKey{kind: kind, name: name}]
	if len(m) == 0 {
		return Entity{}, false
	}
	var best *Entity
	var bestSeq uint64
	for key, e := range m {
		if b := ix.files[key]; b != nil && (best == nil || b.seq > bestSeq) {
			best, bestSeq = e, b.seq
		}
	}
	if best == nil {
		return Entity{}, false
	}
	return *best, true
}

// GetAny looks a name up across kinds, services first, then routes,
// then links.
func (ix *Index) GetAny(name string) (Entity, bool) {
	for _, kind := range []Kind{KindService, KindRoute, KindLink} {
		if e, ok := ix.GetByName(kind, name); ok {
			return e, true
		}
	}
	return Entity{}, false
}

// GetAll returns a copy of every entity, optionally filtered by kind
// (empty kind means all). Order is by bucket key then source order,
// so repeated calls over unchanged state agree.
func (ix *Index) GetAll(kind Kind) []Entity {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := make([]string, 0, len(ix.files))
	for key := range ix.files {
		if kind != "" && !strings.HasPrefix(key, string(kind)+":") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Entity
	for _, key := range keys {
		out = append(out, ix.files[key].entities...)
	}
	return out
}

// GetAllNames returns the distinct names of one kind, sorted.
func (ix *Index) GetAllNames(kind Kind) []string {
	ix.mu.RLock()
	names := make([]string, 0, len(ix.byName))
	for nk := range ix.byName {
		if nk.kind == kind {
			names = append(names, nk.name)
		}
	}
	ix.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len reports the total number of entities currently indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, b := range ix.files {
		n += len(b.entities)
	}
	return n
}
