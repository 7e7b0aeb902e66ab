// Package inlined builds and exposes flattened node graphs.
//
// A virtual tree (pkg/vtree) may contain group nodes that reference other
// trees. Build expands every group node in place, recursively, producing
// a single flat graph in which only plain nodes remain. Each group call
// site yields a fresh copy of the referenced tree's nodes, links across
// the group boundary are rewired to the caller's links, and one
// ParentNode marker per call site preserves the nesting ancestry.
//
// The graph is constructed once and immutable afterwards; it is safe for
// concurrent read access without locking. Node ids and socket ids are
// dense, start at 0, and follow the source declaration order, so two
// builds from identical input produce identical graphs.
package inlined

import "github.com/flatnode/flatnode/pkg/vtree"

// Graph is the flattened result of inlining one root tree. It owns every
// node, socket, parent marker, and group-input placeholder it exposes;
// none of them outlive it.
type Graph struct {
	rootTree    string
	nodes       []*Node
	sockets     []Socket
	inputs      []*InputSocket
	outputs     []*OutputSocket
	parents     []*ParentNode
	groupInputs []*GroupInput
}

// Socket is the capability common to both socket kinds. The two concrete
// types are never mixed in hot paths; the interface exists for the
// combined by-id lookup.
type Socket interface {
	// ID returns the socket's dense id, unique across inputs and outputs.
	ID() int
	// Node returns the inlined node owning the socket.
	Node() *Node
	// Name returns the originating virtual socket's name.
	Name() string
}

// Node is one occurrence of a plain virtual node in the flattened graph.
// A node inside a group appears once per call site of that group.
type Node struct {
	vnode   *vtree.Node
	parent  *ParentNode
	id      int
	inputs  []*InputSocket
	outputs []*OutputSocket
}

// InputSocket is an inlined input. It records the output sockets driving
// it and, while the enclosing group is still being expanded, the group
// boundary placeholders feeding it.
type InputSocket struct {
	node              *Node
	id                int
	vsocket           *vtree.InputSocket
	linkedSockets     []*OutputSocket
	linkedGroupInputs []*GroupInput
}

// OutputSocket is an inlined output with its fan-out.
type OutputSocket struct {
	node          *Node
	id            int
	vsocket       *vtree.OutputSocket
	linkedSockets []*InputSocket
}

// GroupInput is the boundary placeholder for one external input of an
// expanded group node. It survives in the finished graph only when the
// caller left that input unconnected, in which case it legitimately
// represents "no input" for the internal sockets it feeds.
type GroupInput struct {
	vsocket       *vtree.InputSocket
	parent        *ParentNode
	linkedSockets []*InputSocket
	drivers       []outSource // caller-side sources spliced in once resolved
	resolved      bool
}

// ParentNode marks one level of group nesting above a set of inlined
// nodes. The group node itself is not materialized; the marker lets
// every node and group input report its ancestor chain.
type ParentNode struct {
	vnode  *vtree.Node
	parent *ParentNode
}

// RootTree returns the name of the tree the graph was built from.
func (g *Graph) RootTree() string { return g.rootTree }

// Nodes returns all inlined nodes ordered by id.
func (g *Graph) Nodes() []*Node { return g.nodes }

// NodeByID returns the node with the given dense id, or nil if out of range.
func (g *Graph) NodeByID(id int) *Node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// SocketByID returns the socket with the given dense id, or nil if out of range.
func (g *Graph) SocketByID(id int) Socket {
	if id < 0 || id >= len(g.sockets) {
		return nil
	}
	return g.sockets[id]
}

// InputSockets returns all inlined input sockets in id order.
func (g *Graph) InputSockets() []*InputSocket { return g.inputs }

// OutputSockets returns all inlined output sockets in id order.
func (g *Graph) OutputSockets() []*OutputSocket { return g.outputs }

// ParentNodes returns all parent markers in creation order.
func (g *Graph) ParentNodes() []*ParentNode { return g.parents }

// GroupInputs returns the dangling boundary placeholders, i.e. external
// group inputs the respective caller never connected.
func (g *Graph) GroupInputs() []*GroupInput { return g.groupInputs }

// NodeCount returns the number of inlined nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// SocketCount returns the number of inlined sockets, inputs and outputs
// combined.
func (g *Graph) SocketCount() int { return len(g.sockets) }

// LinkCount returns the number of links between inlined sockets.
func (g *Graph) LinkCount() int {
	count := 0
	for _, out := range g.outputs {
		count += len(out.linkedSockets)
	}
	return count
}

// Link is one resolved connection of the flattened graph.
type Link struct {
	From *OutputSocket
	To   *InputSocket
}

// Links enumerates all links in deterministic order: by driving output
// socket id, then by connection order.
func (g *Graph) Links() []Link {
	links := make([]Link, 0, g.LinkCount())
	for _, out := range g.outputs {
		for _, in := range out.linkedSockets {
			links = append(links, Link{From: out, To: in})
		}
	}
	return links
}

// VNode returns the originating virtual node.
func (n *Node) VNode() *vtree.Node { return n.vnode }

// Parent returns the enclosing parent marker, nil at top level.
func (n *Node) Parent() *ParentNode { return n.parent }

// ID returns the node's dense id.
func (n *Node) ID() int { return n.id }

// Name returns the originating virtual node's name.
func (n *Node) Name() string { return n.vnode.Name() }

// Inputs returns the node's input sockets in source order.
func (n *Node) Inputs() []*InputSocket { return n.inputs }

// Outputs returns the node's output sockets in source order.
func (n *Node) Outputs() []*OutputSocket { return n.outputs }

// Input returns the input socket at the given position.
func (n *Node) Input(i int) *InputSocket { return n.inputs[i] }

// Output returns the output socket at the given position.
func (n *Node) Output(i int) *OutputSocket { return n.outputs[i] }

// Ancestors returns the node's parent markers from the innermost
// enclosing group outward. Top-level nodes return nil.
func (n *Node) Ancestors() []*ParentNode {
	var chain []*ParentNode
	for p := n.parent; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	return chain
}

// Path returns the node's name qualified by its enclosing group call
// sites, outermost first, e.g. "rig/deform/bend".
func (n *Node) Path() string {
	return joinPath(n.parent, n.vnode.Name())
}

// Node returns the socket's owning node.
func (s *InputSocket) Node() *Node { return s.node }

// ID returns the socket's dense id.
func (s *InputSocket) ID() int { return s.id }

// Name returns the originating virtual socket's name.
func (s *InputSocket) Name() string { return s.vsocket.Name() }

// VSocket returns the originating virtual input socket.
func (s *InputSocket) VSocket() *vtree.InputSocket { return s.vsocket }

// LinkedSockets returns the output sockets driving this input, in
// connection order. Empty for unconnected inputs.
func (s *InputSocket) LinkedSockets() []*OutputSocket { return s.linkedSockets }

// LinkedGroupInputs returns the dangling group boundary placeholders
// feeding this input. Non-empty only when an enclosing group's external
// input was left unconnected by its caller.
func (s *InputSocket) LinkedGroupInputs() []*GroupInput { return s.linkedGroupInputs }

func (s *InputSocket) removeLinkedGroupInput(gi *GroupInput) {
	for i, cur := range s.linkedGroupInputs {
		if cur == gi {
			s.linkedGroupInputs = append(s.linkedGroupInputs[:i], s.linkedGroupInputs[i+1:]...)
			return
		}
	}
}

// Node returns the socket's owning node.
func (s *OutputSocket) Node() *Node { return s.node }

// ID returns the socket's dense id.
func (s *OutputSocket) ID() int { return s.id }

// Name returns the originating virtual socket's name.
func (s *OutputSocket) Name() string { return s.vsocket.Name() }

// VSocket returns the originating virtual output socket.
func (s *OutputSocket) VSocket() *vtree.OutputSocket { return s.vsocket }

// LinkedSockets returns the input sockets this output drives, in
// connection order.
func (s *OutputSocket) LinkedSockets() []*InputSocket { return s.linkedSockets }

// VSocket returns the group node's external input socket the placeholder
// stands for. Its defaults describe the value the boundary falls back to.
func (gi *GroupInput) VSocket() *vtree.InputSocket { return gi.vsocket }

// Parent returns the parent marker of the group call site the
// placeholder belongs to.
func (gi *GroupInput) Parent() *ParentNode { return gi.parent }

// LinkedSockets returns the internal input sockets the placeholder feeds.
func (gi *GroupInput) LinkedSockets() []*InputSocket { return gi.linkedSockets }

// Path returns the placeholder's qualified "call-site/socket" reference.
func (gi *GroupInput) Path() string {
	return joinPath(gi.parent, gi.vsocket.Name())
}

// VNode returns the group node that defined this call site.
func (p *ParentNode) VNode() *vtree.Node { return p.vnode }

// Parent returns the next enclosing parent marker, nil at top level.
func (p *ParentNode) Parent() *ParentNode { return p.parent }

// Path returns the call site's qualified name, outermost first.
func (p *ParentNode) Path() string {
	return joinPath(p.parent, p.vnode.Name())
}

func joinPath(p *ParentNode, leaf string) string {
	if p == nil {
		return leaf
	}
	return p.Path() + "/" + leaf
}

// Interface checks.
var (
	_ Socket = (*InputSocket)(nil)
	_ Socket = (*OutputSocket)(nil)
)
