// Package vtree models virtual node trees: named graphs of nodes with
// ordered input/output sockets, connected by directed links from outputs
// to inputs. A tree may reference other trees through group nodes, which
// stand in for the contents of the referenced tree.
//
// Trees are built once through the construction API and treated as
// immutable afterwards. The inlining builder in pkg/inlined only reads
// them, so a single tree may safely back any number of group call sites.
//
// # Interface nodes
//
// A tree that is meant to be used as a group declares its boundary with
// interface nodes: the outputs of a "group_input" node are the tree's
// external inputs, and the inputs of a "group_output" node are its
// external outputs. A tree may contain several interface nodes of the
// same direction (convenient for layout in editors); they must all agree
// on their socket lists.
package vtree

import (
	"errors"
	"fmt"
	"strings"
)

// Node type tags with special meaning to the inliner. Any other type tag
// is an opaque label for a plain node.
const (
	// TypeGroup marks a node that expands to the contents of another tree.
	TypeGroup = "group"
	// TypeGroupInput marks an interface node whose outputs define the
	// tree's external inputs.
	TypeGroupInput = "group_input"
	// TypeGroupOutput marks an interface node whose inputs define the
	// tree's external outputs.
	TypeGroupOutput = "group_output"
)

var (
	// ErrInvalidName is returned when a tree, node, or socket name is empty
	// or a node name contains a dot (dots separate node and socket in link
	// references).
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateNode is returned by AddNode when a node with the same
	// name already exists in the tree.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrUnknownNode is returned by LinkByName when a referenced node does
	// not exist in the tree.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSocket is returned by LinkByName when a referenced socket
	// does not exist on the node.
	ErrUnknownSocket = errors.New("unknown socket")

	// ErrForeignSocket is returned by Link when a socket belongs to a node
	// of a different tree.
	ErrForeignSocket = errors.New("socket belongs to another tree")

	// ErrUnknownTree is returned by resolvers when a tree identity cannot
	// be looked up.
	ErrUnknownTree = errors.New("unknown tree")
)

// Tree is one node graph definition: an ordered node list plus the links
// between their sockets. The node and link order is the declaration
// order, which downstream consumers rely on for deterministic output.
type Tree struct {
	name   string
	nodes  []*Node
	byName map[string]*Node
	links  []Link
}

// Node is a single vertex of a tree. Plain nodes carry an arbitrary type
// tag; group nodes additionally reference the tree they expand to.
type Node struct {
	tree    *Tree
	name    string
	typ     string
	treeRef string
	index   int
	params  map[string]any
	inputs  []*InputSocket
	outputs []*OutputSocket
}

// InputSocket is one ordered input of a node.
type InputSocket struct {
	node  *Node
	name  string
	index int
}

// OutputSocket is one ordered output of a node.
type OutputSocket struct {
	node  *Node
	name  string
	index int
}

// Link is a directed connection from an output socket to an input socket
// of the same tree.
type Link struct {
	From *OutputSocket
	To   *InputSocket
}

// NewTree creates an empty tree with the given name.
func NewTree(name string) *Tree {
	return &Tree{
		name:   name,
		byName: make(map[string]*Node),
	}
}

// Name returns the tree's name, which is also its resolver identity.
func (t *Tree) Name() string { return t.name }

// Nodes returns the tree's nodes in declaration order.
// The returned slice must not be modified.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Links returns the tree's links in declaration order.
// The returned slice must not be modified.
func (t *Tree) Links() []Link { return t.links }

// Node returns the node with the given name, or false if absent.
func (t *Tree) Node(name string) (*Node, bool) {
	n, ok := t.byName[name]
	return n, ok
}

// AddNode appends a plain node with the given ordered input and output
// socket names. Returns ErrInvalidName for empty or dotted names and
// ErrDuplicateNode when the name is taken.
func (t *Tree) AddNode(name, typ string, inputs, outputs []string) (*Node, error) {
	return t.addNode(name, typ, "", inputs, outputs)
}

// AddGroupNode appends a group node referencing the tree named treeRef.
// The declared sockets must match the referenced tree's interface; the
// inliner verifies this when the group is expanded.
func (t *Tree) AddGroupNode(name, treeRef string, inputs, outputs []string) (*Node, error) {
	if treeRef == "" {
		return nil, fmt.Errorf("group node %q: %w: empty tree reference", name, ErrInvalidName)
	}
	return t.addNode(name, TypeGroup, treeRef, inputs, outputs)
}

func (t *Tree) addNode(name, typ, treeRef string, inputs, outputs []string) (*Node, error) {
	if name == "" || strings.Contains(name, ".") {
		return nil, fmt.Errorf("%w: node name %q", ErrInvalidName, name)
	}
	if typ == "" {
		return nil, fmt.Errorf("node %q: %w: empty type", name, ErrInvalidName)
	}
	if _, exists := t.byName[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}

	n := &Node{
		tree:    t,
		name:    name,
		typ:     typ,
		treeRef: treeRef,
		index:   len(t.nodes),
	}
	for i, s := range inputs {
		if s == "" {
			return nil, fmt.Errorf("node %q: %w: empty input socket name", name, ErrInvalidName)
		}
		n.inputs = append(n.inputs, &InputSocket{node: n, name: s, index: i})
	}
	for i, s := range outputs {
		if s == "" {
			return nil, fmt.Errorf("node %q: %w: empty output socket name", name, ErrInvalidName)
		}
		n.outputs = append(n.outputs, &OutputSocket{node: n, name: s, index: i})
	}

	t.nodes = append(t.nodes, n)
	t.byName[name] = n
	return n, nil
}

// Link records a connection from an output socket to an input socket.
// Both sockets must belong to nodes of this tree.
func (t *Tree) Link(from *OutputSocket, to *InputSocket) error {
	if from.node.tree != t || to.node.tree != t {
		return ErrForeignSocket
	}
	t.links = append(t.links, Link{From: from, To: to})
	return nil
}

// LinkByName records a connection given "node.socket" references, e.g.
// LinkByName("add.result", "scale.value").
func (t *Tree) LinkByName(from, to string) error {
	out, err := t.outputRef(from)
	if err != nil {
		return err
	}
	in, err := t.inputRef(to)
	if err != nil {
		return err
	}
	return t.Link(out, in)
}

func (t *Tree) outputRef(ref string) (*OutputSocket, error) {
	nodeName, socketName, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	n, ok := t.byName[nodeName]
	if !ok {
		return nil, fmt.Errorf("tree %q: %w: %q", t.name, ErrUnknownNode, nodeName)
	}
	s := n.OutputByName(socketName)
	if s == nil {
		return nil, fmt.Errorf("tree %q: node %q: %w: output %q", t.name, nodeName, ErrUnknownSocket, socketName)
	}
	return s, nil
}

func (t *Tree) inputRef(ref string) (*InputSocket, error) {
	nodeName, socketName, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	n, ok := t.byName[nodeName]
	if !ok {
		return nil, fmt.Errorf("tree %q: %w: %q", t.name, ErrUnknownNode, nodeName)
	}
	s := n.InputByName(socketName)
	if s == nil {
		return nil, fmt.Errorf("tree %q: node %q: %w: input %q", t.name, nodeName, ErrUnknownSocket, socketName)
	}
	return s, nil
}

func splitRef(ref string) (node, socket string, err error) {
	node, socket, ok := strings.Cut(ref, ".")
	if !ok || node == "" || socket == "" {
		return "", "", fmt.Errorf("%w: socket reference %q (want \"node.socket\")", ErrInvalidName, ref)
	}
	return node, socket, nil
}

// Name returns the node's name, unique within its tree.
func (n *Node) Name() string { return n.name }

// Type returns the node's type tag.
func (n *Node) Type() string { return n.typ }

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree { return n.tree }

// Index returns the node's declaration position within its tree.
func (n *Node) Index() int { return n.index }

// TreeRef returns the referenced tree name for group nodes, "" otherwise.
func (n *Node) TreeRef() string { return n.treeRef }

// IsGroup reports whether the node expands to another tree.
func (n *Node) IsGroup() bool { return n.typ == TypeGroup }

// IsGroupInput reports whether the node declares the tree's external inputs.
func (n *Node) IsGroupInput() bool { return n.typ == TypeGroupInput }

// IsGroupOutput reports whether the node declares the tree's external outputs.
func (n *Node) IsGroupOutput() bool { return n.typ == TypeGroupOutput }

// IsInterface reports whether the node is a group_input or group_output node.
func (n *Node) IsInterface() bool { return n.IsGroupInput() || n.IsGroupOutput() }

// Inputs returns the node's input sockets in declaration order.
func (n *Node) Inputs() []*InputSocket { return n.inputs }

// Outputs returns the node's output sockets in declaration order.
func (n *Node) Outputs() []*OutputSocket { return n.outputs }

// Input returns the input socket at the given position.
func (n *Node) Input(i int) *InputSocket { return n.inputs[i] }

// Output returns the output socket at the given position.
func (n *Node) Output(i int) *OutputSocket { return n.outputs[i] }

// InputByName returns the input socket with the given name, or nil.
func (n *Node) InputByName(name string) *InputSocket {
	for _, s := range n.inputs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// OutputByName returns the output socket with the given name, or nil.
func (n *Node) OutputByName(name string) *OutputSocket {
	for _, s := range n.outputs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Params returns the node's free-form parameters, or nil if none were set.
func (n *Node) Params() map[string]any { return n.params }

// SetParam attaches a free-form parameter to the node. Parameters are
// carried through inlining untouched; the builder never interprets them.
func (n *Node) SetParam(key string, value any) {
	if n.params == nil {
		n.params = make(map[string]any)
	}
	n.params[key] = value
}

// Node returns the socket's owning node.
func (s *InputSocket) Node() *Node { return s.node }

// Name returns the socket's name.
func (s *InputSocket) Name() string { return s.name }

// Index returns the socket's position among the node's inputs.
func (s *InputSocket) Index() int { return s.index }

// Ref returns the "node.socket" reference for the socket.
func (s *InputSocket) Ref() string { return s.node.name + "." + s.name }

// Node returns the socket's owning node.
func (s *OutputSocket) Node() *Node { return s.node }

// Name returns the socket's name.
func (s *OutputSocket) Name() string { return s.name }

// Index returns the socket's position among the node's outputs.
func (s *OutputSocket) Index() int { return s.index }

// Ref returns the "node.socket" reference for the socket.
func (s *OutputSocket) Ref() string { return s.node.name + "." + s.name }
