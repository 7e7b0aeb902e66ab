package inlined

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flatnode/flatnode/pkg/vtree"
)

var (
	// ErrUnresolvedSocket is returned when a link references a socket that
	// has no inlined counterpart in its scope, e.g. an input declared on a
	// group_input node.
	ErrUnresolvedSocket = errors.New("link references unresolvable socket")

	// ErrGroupCycle is returned when a tree is reached again while it is
	// still being expanded, i.e. group references form a cycle.
	ErrGroupCycle = errors.New("cyclic group reference")

	// ErrInterfaceMismatch is returned when an interface node's sockets do
	// not match the calling group node's sockets.
	ErrInterfaceMismatch = errors.New("group sockets do not match tree interface")

	// ErrInterfaceOutsideGroup is returned when the root tree contains a
	// group_input or group_output node; interface nodes only have meaning
	// inside a tree expanded through a group call site.
	ErrInterfaceOutsideGroup = errors.New("interface node outside of a group")

	// ErrLinkConflict is returned when two links drive the same tree
	// output binding; output wiring must be unambiguous.
	ErrLinkConflict = errors.New("conflicting links into tree output")
)

// Build flattens the tree named root, expanding every group node
// recursively through resolver. Construction is all-or-nothing: any
// malformed input aborts with an error and no graph is returned.
//
// Build is deterministic. Nodes and sockets are created in source
// declaration order, so identical input yields identical id assignment
// and link topology.
func Build(root string, resolver vtree.Resolver) (*Graph, error) {
	tree, err := resolver.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root tree: %w", err)
	}

	b := &builder{
		resolver: resolver,
		graph:    &Graph{rootTree: root},
		path:     []string{root},
	}
	if err := b.expandTree(tree, nil, nil, nil); err != nil {
		return nil, err
	}

	// Placeholders a caller resolved with a concrete driver are gone;
	// the rest legitimately represent unconnected boundary inputs.
	for _, gi := range b.pending {
		if !gi.resolved {
			b.graph.groupInputs = append(b.graph.groupInputs, gi)
		}
	}
	return b.graph, nil
}

// BuildTree flattens an already resolved tree. Group references inside
// it are still resolved through resolver.
func BuildTree(tree *vtree.Tree, resolver vtree.Resolver) (*Graph, error) {
	if resolver == nil {
		resolver = vtree.MapResolver{tree.Name(): tree}
	}
	return Build(tree.Name(), chainResolver{tree: tree, next: resolver})
}

type chainResolver struct {
	tree *vtree.Tree
	next vtree.Resolver
}

func (c chainResolver) Resolve(name string) (*vtree.Tree, error) {
	if name == c.tree.Name() {
		return c.tree, nil
	}
	return c.next.Resolve(name)
}

// idAllocator issues strictly increasing dense ids for nodes and for
// sockets as two independent numbering spaces. Ids are never reused or
// skipped.
type idAllocator struct {
	nextNode   int
	nextSocket int
}

func (a *idAllocator) nodeID() int {
	id := a.nextNode
	a.nextNode++
	return id
}

func (a *idAllocator) socketID() int {
	id := a.nextSocket
	a.nextSocket++
	return id
}

type builder struct {
	resolver vtree.Resolver
	graph    *Graph
	ids      idAllocator
	path     []string     // tree names on the current expansion stack
	pending  []*GroupInput // every placeholder created, in creation order
}

// inTarget describes what "connect a driver to this virtual input" means
// in the current scope. Exactly one field is set.
type inTarget struct {
	socket  *InputSocket // input of a materialized node
	group   *GroupInput  // external input of a nested group call site
	binding *outBinding  // tree output collector (group_output input)
}

// outSource describes what drives a virtual output in the current scope.
// Both fields nil means the output is genuinely unconnected.
type outSource struct {
	socket *OutputSocket // concrete inlined driver
	group  *GroupInput   // passthrough from an unresolved boundary input
}

// outBinding collects the internal driver of one tree output so the
// caller can splice it into its own scope.
type outBinding struct {
	src outSource
	set bool
}

// scope indexes the current tree instantiation's virtual sockets. Each
// group call site gets its own scope, so one tree expanded twice never
// shares entries.
type scope struct {
	ins  map[*vtree.InputSocket]inTarget
	outs map[*vtree.OutputSocket]outSource
}

// expandTree materializes one instantiation of tree under parent.
// boundaryIn carries the placeholders for the calling group node's
// inputs and boundaryOut the bindings for its outputs; both are nil at
// the root level.
func (b *builder) expandTree(tree *vtree.Tree, parent *ParentNode, boundaryIn []*GroupInput, boundaryOut []*outBinding) error {
	sc := scope{
		ins:  make(map[*vtree.InputSocket]inTarget),
		outs: make(map[*vtree.OutputSocket]outSource),
	}

	for _, vnode := range tree.Nodes() {
		switch {
		case vnode.IsGroupInput():
			if boundaryIn == nil {
				return fmt.Errorf("tree %q: node %q: %w", tree.Name(), vnode.Name(), ErrInterfaceOutsideGroup)
			}
			if len(vnode.Outputs()) != len(boundaryIn) {
				return fmt.Errorf("tree %q: node %q declares %d inputs, group node has %d: %w",
					tree.Name(), vnode.Name(), len(vnode.Outputs()), len(boundaryIn), ErrInterfaceMismatch)
			}
			for i, out := range vnode.Outputs() {
				sc.outs[out] = outSource{group: boundaryIn[i]}
			}

		case vnode.IsGroupOutput():
			if boundaryOut == nil {
				return fmt.Errorf("tree %q: node %q: %w", tree.Name(), vnode.Name(), ErrInterfaceOutsideGroup)
			}
			if len(vnode.Inputs()) != len(boundaryOut) {
				return fmt.Errorf("tree %q: node %q declares %d outputs, group node has %d: %w",
					tree.Name(), vnode.Name(), len(vnode.Inputs()), len(boundaryOut), ErrInterfaceMismatch)
			}
			for i, in := range vnode.Inputs() {
				sc.ins[in] = inTarget{binding: boundaryOut[i]}
			}

		case vnode.IsGroup():
			if err := b.expandGroup(tree, vnode, parent, sc); err != nil {
				return err
			}

		default:
			b.createNode(vnode, parent, sc)
		}
	}

	for _, link := range tree.Links() {
		src, ok := sc.outs[link.From]
		if !ok {
			return fmt.Errorf("tree %q: %w: output %q", tree.Name(), ErrUnresolvedSocket, link.From.Ref())
		}
		dst, ok := sc.ins[link.To]
		if !ok {
			return fmt.Errorf("tree %q: %w: input %q", tree.Name(), ErrUnresolvedSocket, link.To.Ref())
		}
		if err := b.connect(src, dst); err != nil {
			return fmt.Errorf("tree %q: link %q -> %q: %w", tree.Name(), link.From.Ref(), link.To.Ref(), err)
		}
	}
	return nil
}

// expandGroup inlines one group call site: a fresh parent marker, a
// recursive expansion of the referenced tree, and scope entries that map
// the group node's external sockets onto the expansion's boundary.
func (b *builder) expandGroup(tree *vtree.Tree, vnode *vtree.Node, parent *ParentNode, sc scope) error {
	ref := vnode.TreeRef()
	if slices.Contains(b.path, ref) {
		return fmt.Errorf("tree %q: group node %q: %w: %s -> %s",
			tree.Name(), vnode.Name(), ErrGroupCycle, strings.Join(b.path, " -> "), ref)
	}

	sub, err := b.resolver.Resolve(ref)
	if err != nil {
		return fmt.Errorf("tree %q: group node %q: %w", tree.Name(), vnode.Name(), err)
	}

	pn := &ParentNode{vnode: vnode, parent: parent}
	b.graph.parents = append(b.graph.parents, pn)

	boundaryIn := make([]*GroupInput, len(vnode.Inputs()))
	for i, in := range vnode.Inputs() {
		boundaryIn[i] = &GroupInput{vsocket: in, parent: pn}
	}
	b.pending = append(b.pending, boundaryIn...)

	boundaryOut := make([]*outBinding, len(vnode.Outputs()))
	for i := range boundaryOut {
		boundaryOut[i] = &outBinding{}
	}

	b.path = append(b.path, ref)
	err = b.expandTree(sub, pn, boundaryIn, boundaryOut)
	b.path = b.path[:len(b.path)-1]
	if err != nil {
		return err
	}

	// The group node itself is not materialized. Its external sockets
	// become aliases: inputs feed the boundary placeholders, outputs
	// forward whatever drives the tree's output bindings internally.
	for i, in := range vnode.Inputs() {
		sc.ins[in] = inTarget{group: boundaryIn[i]}
	}
	for i, out := range vnode.Outputs() {
		sc.outs[out] = boundaryOut[i].src
	}
	return nil
}

// createNode materializes one plain node with fresh ids, preserving the
// virtual socket order, and indexes its sockets in the current scope.
func (b *builder) createNode(vnode *vtree.Node, parent *ParentNode, sc scope) {
	n := &Node{vnode: vnode, parent: parent, id: b.ids.nodeID()}

	for _, vin := range vnode.Inputs() {
		in := &InputSocket{node: n, id: b.ids.socketID(), vsocket: vin}
		n.inputs = append(n.inputs, in)
		b.graph.inputs = append(b.graph.inputs, in)
		b.graph.sockets = append(b.graph.sockets, in)
		sc.ins[vin] = inTarget{socket: in}
	}
	for _, vout := range vnode.Outputs() {
		out := &OutputSocket{node: n, id: b.ids.socketID(), vsocket: vout}
		n.outputs = append(n.outputs, out)
		b.graph.outputs = append(b.graph.outputs, out)
		b.graph.sockets = append(b.graph.sockets, out)
		sc.outs[vout] = outSource{socket: out}
	}

	b.graph.nodes = append(b.graph.nodes, n)
}

// connect wires one source into one target. A source with neither socket
// nor group set comes from an internally unconnected tree output; the
// link then contributes nothing, which matches leaving the target
// unconnected.
func (b *builder) connect(src outSource, dst inTarget) error {
	if dst.binding != nil {
		if dst.binding.set {
			return ErrLinkConflict
		}
		dst.binding.src = src
		dst.binding.set = true
		return nil
	}

	for _, s := range expandSource(src) {
		switch {
		case dst.socket != nil:
			switch {
			case s.socket != nil:
				linkSockets(s.socket, dst.socket)
			case s.group != nil:
				s.group.linkedSockets = append(s.group.linkedSockets, dst.socket)
				dst.socket.linkedGroupInputs = append(dst.socket.linkedGroupInputs, s.group)
			}
		case dst.group != nil:
			b.resolveGroupInput(s, dst.group)
		}
	}
	return nil
}

// expandSource follows resolved boundary placeholders to the drivers
// their callers spliced in. Scope entries and output bindings may still
// hold a placeholder that gets resolved only once the caller's earlier
// links are processed, e.g. a passthrough group output used as a link
// source; expanding at connect time keeps the result independent of link
// declaration order.
func expandSource(src outSource) []outSource {
	if src.group == nil || !src.group.resolved {
		return []outSource{src}
	}
	var srcs []outSource
	for _, d := range src.group.drivers {
		srcs = append(srcs, expandSource(d)...)
	}
	return srcs
}

// resolveGroupInput replays a caller-side driver onto every internal
// input the placeholder feeds. The first concrete driver detaches the
// placeholder; further drivers (multi-input fan-in) connect directly.
// A driver that is itself an unresolved outer boundary chains the
// internal inputs one scope upward. Every driver is recorded on the
// placeholder so later links reading the boundary as a source replay it
// through expandSource.
func (b *builder) resolveGroupInput(src outSource, gi *GroupInput) {
	if src.socket == nil && src.group == nil {
		// Caller linked the input to an internally unconnected group
		// output; the placeholder stays, it still has no real driver.
		return
	}

	if !gi.resolved {
		for _, in := range gi.linkedSockets {
			in.removeLinkedGroupInput(gi)
		}
		gi.resolved = true
	}
	gi.drivers = append(gi.drivers, src)

	for _, in := range gi.linkedSockets {
		switch {
		case src.socket != nil:
			linkSockets(src.socket, in)
		case src.group != nil:
			src.group.linkedSockets = append(src.group.linkedSockets, in)
			in.linkedGroupInputs = append(in.linkedGroupInputs, src.group)
		}
	}
}

// linkSockets connects an output to an input symmetrically; each side
// records the other.
func linkSockets(out *OutputSocket, in *InputSocket) {
	out.linkedSockets = append(out.linkedSockets, in)
	in.linkedSockets = append(in.linkedSockets, out)
}
