// Package treedef parses tree-definition documents into virtual trees.
//
// A document is a bundle: a set of named trees plus the name of the root
// tree to inline. Two syntaxes are supported, TOML and HCL, selected by
// file extension; both decode into the same intermediate form and go
// through the same validation.
package treedef

import (
	"errors"
	"fmt"
	"path/filepath"

	apperrors "github.com/flatnode/flatnode/pkg/errors"
	"github.com/flatnode/flatnode/pkg/vtree"
)

var (
	// ErrEmptyBundle is returned when a document defines no trees.
	ErrEmptyBundle = errors.New("bundle defines no trees")

	// ErrDuplicateTree is returned when two trees share a name.
	ErrDuplicateTree = errors.New("duplicate tree name")

	// ErrUnknownRoot is returned when the declared root tree is not
	// defined in the bundle.
	ErrUnknownRoot = errors.New("root tree not defined in bundle")

	// ErrUnknownFormat is returned by ParseFile for unsupported
	// extensions.
	ErrUnknownFormat = errors.New("unknown tree definition format")
)

// Bundle is a parsed set of trees. Trees resolve each other's group
// references through the bundle's resolver.
type Bundle struct {
	// Root is the name of the tree to inline. Defaults to the first
	// declared tree when the document does not set one.
	Root string

	// Trees holds every tree of the bundle by name.
	Trees map[string]*vtree.Tree
}

// Resolver returns a resolver over the bundle's trees.
func (b *Bundle) Resolver() vtree.Resolver {
	return vtree.MapResolver(b.Trees)
}

// RootTree returns the bundle's root tree.
func (b *Bundle) RootTree() *vtree.Tree {
	return b.Trees[b.Root]
}

// ParseFile reads and parses a bundle file, choosing the syntax by
// extension: .toml, or .hcl.
func ParseFile(path string) (*Bundle, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return ParseTOMLFile(path)
	case ".hcl":
		return ParseHCLFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Intermediate document form shared by both syntaxes.

type docBundle struct {
	root  string
	trees []docTree
}

type docTree struct {
	name  string
	nodes []docNode
	links []docLink
}

type docNode struct {
	name    string
	typ     string
	tree    string // group reference; implies type "group"
	inputs  []string
	outputs []string
	params  map[string]any
}

type docLink struct {
	from string
	to   string
}

// assemble validates the intermediate form and builds the trees.
func assemble(doc docBundle) (*Bundle, error) {
	if len(doc.trees) == 0 {
		return nil, ErrEmptyBundle
	}

	bundle := &Bundle{Trees: make(map[string]*vtree.Tree, len(doc.trees))}
	for _, dt := range doc.trees {
		if _, exists := bundle.Trees[dt.name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTree, dt.name)
		}
		tree, err := assembleTree(dt)
		if err != nil {
			return nil, err
		}
		bundle.Trees[dt.name] = tree
	}

	bundle.Root = doc.root
	if bundle.Root == "" {
		bundle.Root = doc.trees[0].name
	}
	if _, ok := bundle.Trees[bundle.Root]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, bundle.Root)
	}
	return bundle, nil
}

func assembleTree(dt docTree) (*vtree.Tree, error) {
	tree := vtree.NewTree(dt.name)
	for _, dn := range dt.nodes {
		var (
			node *vtree.Node
			err  error
		)
		switch {
		case dn.tree != "":
			node, err = tree.AddGroupNode(dn.name, dn.tree, dn.inputs, dn.outputs)
		default:
			node, err = tree.AddNode(dn.name, dn.typ, dn.inputs, dn.outputs)
		}
		if err != nil {
			return nil, fmt.Errorf("tree %q: %w", dt.name, err)
		}
		for k, v := range dn.params {
			node.SetParam(k, v)
		}
	}
	for _, dl := range dt.links {
		if err := apperrors.ValidateSocketRef(dl.from); err != nil {
			return nil, fmt.Errorf("tree %q: link from: %w", dt.name, err)
		}
		if err := apperrors.ValidateSocketRef(dl.to); err != nil {
			return nil, fmt.Errorf("tree %q: link to: %w", dt.name, err)
		}
		if err := tree.LinkByName(dl.from, dl.to); err != nil {
			return nil, err
		}
	}
	return tree, nil
}
