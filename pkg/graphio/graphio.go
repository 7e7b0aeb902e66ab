// Package graphio serializes flattened graphs.
//
// The snapshot format is the canonical wire form of an inlined graph:
// used for API responses, storage, and caching. It is flat and
// self-contained; entity identity is carried by the dense ids, so a
// snapshot of a graph is byte-for-byte reproducible.
package graphio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flatnode/flatnode/pkg/inlined"
)

// =============================================================================
// Snapshot Types
// =============================================================================

// Graph is the serialized form of an inlined graph.
type Graph struct {
	Root        string       `json:"root" bson:"root"`
	Nodes       []Node       `json:"nodes" bson:"nodes"`
	Links       []Link       `json:"links,omitempty" bson:"links,omitempty"`
	GroupInputs []GroupInput `json:"group_inputs,omitempty" bson:"group_inputs,omitempty"`
}

// Node is one inlined node with its sockets.
type Node struct {
	ID      int            `json:"id" bson:"id"`
	Name    string         `json:"name" bson:"name"`
	Type    string         `json:"type" bson:"type"`
	Path    string         `json:"path" bson:"path"`
	Params  map[string]any `json:"params,omitempty" bson:"params,omitempty"`
	Inputs  []SocketDef    `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Outputs []SocketDef    `json:"outputs,omitempty" bson:"outputs,omitempty"`
}

// SocketDef is one socket of a node.
type SocketDef struct {
	ID   int    `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Link connects two sockets by their dense ids.
type Link struct {
	From int `json:"from" bson:"from"`
	To   int `json:"to" bson:"to"`
}

// GroupInput is a surviving boundary placeholder: a group input the
// caller left unconnected, with the internal inputs it would feed.
type GroupInput struct {
	Name    string `json:"name" bson:"name"`
	Path    string `json:"path" bson:"path"`
	Targets []int  `json:"targets,omitempty" bson:"targets,omitempty"`
}

// =============================================================================
// Conversion
// =============================================================================

// FromGraph converts an inlined graph to its snapshot form. Nodes,
// sockets, and links come out in id order, so equal graphs produce
// equal snapshots.
func FromGraph(g *inlined.Graph) Graph {
	out := Graph{
		Root:  g.RootTree(),
		Nodes: make([]Node, 0, g.NodeCount()),
	}

	for _, n := range g.Nodes() {
		node := Node{
			ID:   n.ID(),
			Name: n.Name(),
			Type: n.VNode().Type(),
			Path: n.Path(),
		}
		if params := n.VNode().Params(); len(params) > 0 {
			node.Params = params
		}
		for _, in := range n.Inputs() {
			node.Inputs = append(node.Inputs, SocketDef{ID: in.ID(), Name: in.Name()})
		}
		for _, o := range n.Outputs() {
			node.Outputs = append(node.Outputs, SocketDef{ID: o.ID(), Name: o.Name()})
		}
		out.Nodes = append(out.Nodes, node)
	}

	for _, link := range g.Links() {
		out.Links = append(out.Links, Link{From: link.From.ID(), To: link.To.ID()})
	}

	for _, gi := range g.GroupInputs() {
		snap := GroupInput{Name: gi.VSocket().Name(), Path: gi.Path()}
		for _, target := range gi.LinkedSockets() {
			snap.Targets = append(snap.Targets, target.ID())
		}
		out.GroupInputs = append(out.GroupInputs, snap)
	}

	return out
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts an inlined graph to indented JSON bytes.
func Marshal(g *inlined.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(FromGraph(g), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes an inlined graph as JSON to w.
func Write(g *inlined.Graph, w io.Writer) error {
	return writeTo(FromGraph(g), w)
}

// WriteFile writes an inlined graph to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(g *inlined.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTo(FromGraph(g), f)
}

// Unmarshal deserializes JSON bytes to a snapshot.
func Unmarshal(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}

// Read decodes a JSON snapshot from r.
func Read(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}

// ReadFile reads a JSON snapshot file.
func ReadFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

func writeTo(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
