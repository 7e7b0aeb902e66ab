package vtree

import "fmt"

// Resolver looks up a tree by its identity (name). The inlining builder
// uses it to reach the trees referenced by group nodes; implementations
// must return the same parsed tree for repeated lookups of one name
// during a build.
type Resolver interface {
	Resolve(name string) (*Tree, error)
}

// MapResolver resolves trees from an in-memory map.
type MapResolver map[string]*Tree

// Resolve returns the tree registered under name, or ErrUnknownTree.
func (m MapResolver) Resolve(name string) (*Tree, error) {
	t, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTree, name)
	}
	return t, nil
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (*Tree, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(name string) (*Tree, error) { return f(name) }
