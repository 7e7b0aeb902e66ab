// Package treecache provides a caching decorator for tree resolvers.
//
// Group expansion resolves the same tree name once per call site; a
// caching resolver makes repeated lookups cheap and guarantees the
// backing loader is consulted at most once per name while an entry is
// cached.
package treecache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flatnode/flatnode/pkg/vtree"
)

// DefaultSize is the cache capacity used by NewDefault.
const DefaultSize = 128

// Resolver wraps a vtree.Resolver with an LRU cache of resolved trees
// keyed by name. Errors are not cached; a failed lookup is retried on
// the next call. Safe for concurrent use.
type Resolver struct {
	mu    sync.Mutex
	inner vtree.Resolver
	trees *lru.Cache[string, *vtree.Tree]

	hits   int
	misses int
}

// New wraps inner with an LRU cache holding up to size trees.
func New(inner vtree.Resolver, size int) (*Resolver, error) {
	trees, err := lru.New[string, *vtree.Tree](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{inner: inner, trees: trees}, nil
}

// NewDefault wraps inner with a cache of DefaultSize entries.
func NewDefault(inner vtree.Resolver) *Resolver {
	r, err := New(inner, DefaultSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return r
}

// Resolve returns the cached tree for name, consulting the backing
// resolver on a miss.
func (r *Resolver) Resolve(name string) (*vtree.Tree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tree, ok := r.trees.Get(name); ok {
		r.hits++
		return tree, nil
	}

	tree, err := r.inner.Resolve(name)
	if err != nil {
		return nil, err
	}
	r.misses++
	r.trees.Add(name, tree)
	return tree, nil
}

// Stats reports cache hits and misses since creation or the last Purge.
func (r *Resolver) Stats() (hits, misses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits, r.misses
}

// Len returns the number of cached trees.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trees.Len()
}

// Purge drops all cached trees and resets the counters.
func (r *Resolver) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trees.Purge()
	r.hits, r.misses = 0, 0
}
