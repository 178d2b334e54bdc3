package index

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemoSize = 256
	DefaultMemoTTL  = 5 * time.Minute
)

// Memo caches derived, non-authoritative results (linter output and the
// like) with a finite TTL. It is a separate store from Index on
// purpose: authoritative entities must never be subject to time-based
// eviction, so the two can not share a backend. Expiry runs on the
// LRU's own ticker, independent of any in-flight reparse.
type Memo[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewMemo creates a memo cache. A zero ttl falls back to DefaultMemoTTL
// and a zero size to DefaultMemoSize.
func NewMemo[V any](size int, ttl time.Duration) *Memo[V] {
	if size <= 0 {
		size = DefaultMemoSize
	}
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	return &Memo[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (m *Memo[V]) Get(key string) (V, bool) {
	return m.lru.Get(key)
}

func (m *Memo[V]) Add(key string, value V) {
	m.lru.Add(key, value)
}

// Invalidate drops one key, e.g. when the document it derived from
// changes before the TTL runs out.
func (m *Memo[V]) Invalidate(key string) {
	m.lru.Remove(key)
}

func (m *Memo[V]) Purge() {
	m.lru.Purge()
}

func (m *Memo[V]) Len() int {
	return m.lru.Len()
}
