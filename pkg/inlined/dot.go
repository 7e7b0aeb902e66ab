package inlined

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures DOT export.
type DOTOptions struct {
	// Detailed includes node ids and socket ids in labels.
	// When false, labels show the ancestor-qualified node name only.
	Detailed bool
}

// ToDOT renders the graph as Graphviz DOT source. Nodes appear as boxes
// labeled with their ancestor-qualified path, links as edges labeled with
// the socket names they connect. Dangling group inputs are drawn as
// dashed ellipses so unconnected boundaries stay visible.
//
// The export is purely diagnostic and never mutates the graph. Output is
// deterministic: nodes in id order, links in Links order.
func ToDOT(g *Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", nodeRef(n), nodeLabel(n, opts.Detailed))
	}

	buf.WriteString("\n")
	for _, link := range g.Links() {
		fmt.Fprintf(&buf, "  %q -> %q [taillabel=%q, headlabel=%q, fontsize=9];\n",
			nodeRef(link.From.Node()), nodeRef(link.To.Node()),
			link.From.Name(), link.To.Name())
	}

	if gis := g.GroupInputs(); len(gis) > 0 {
		buf.WriteString("\n")
		for i, gi := range gis {
			ref := fmt.Sprintf("group_input_%d", i)
			fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, style=dashed];\n", ref, gi.Path())
			for _, in := range gi.LinkedSockets() {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed, headlabel=%q, fontsize=9];\n",
					ref, nodeRef(in.Node()), in.Name())
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeRef returns a stable DOT identifier for a node. The dense id keeps
// identically named nodes from distinct call sites apart.
func nodeRef(n *Node) string {
	return fmt.Sprintf("n%d", n.ID())
}

func nodeLabel(n *Node, detailed bool) string {
	if !detailed {
		return n.Path()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n#%d %s", n.Path(), n.ID(), n.VNode().Type())
	for _, in := range n.Inputs() {
		fmt.Fprintf(&sb, "\nin %s (#%d)", in.Name(), in.ID())
	}
	for _, out := range n.Outputs() {
		fmt.Fprintf(&sb, "\nout %s (#%d)", out.Name(), out.ID())
	}
	return sb.String()
}

// RenderSVG renders DOT source as SVG using in-process Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
