package graphio

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/flatnode/flatnode/pkg/inlined"
	"github.com/flatnode/flatnode/pkg/vtree"
)

func buildSample(t *testing.T) *inlined.Graph {
	t.Helper()

	sub := vtree.NewTree("sub")
	gin, _ := sub.AddNode("gin", vtree.TypeGroupInput, nil, []string{"in"})
	mid, _ := sub.AddNode("mid", "math", []string{"x", "extra"}, []string{"y"})
	gout, _ := sub.AddNode("gout", vtree.TypeGroupOutput, []string{"out"}, nil)
	mid.SetParam("operation", "multiply")
	if err := sub.Link(gin.Output(0), mid.Input(0)); err != nil {
		t.Fatal(err)
	}
	if err := sub.Link(mid.Output(0), gout.Input(0)); err != nil {
		t.Fatal(err)
	}

	main := vtree.NewTree("main")
	src, _ := main.AddNode("src", "value", nil, []string{"value"})
	grp, _ := main.AddGroupNode("rig", "sub", []string{"in"}, []string{"out"})
	sink, _ := main.AddNode("sink", "output", []string{"value"}, nil)
	if err := main.Link(src.Output(0), grp.Input(0)); err != nil {
		t.Fatal(err)
	}
	if err := main.Link(grp.Output(0), sink.Input(0)); err != nil {
		t.Fatal(err)
	}

	g, err := inlined.Build("main", vtree.MapResolver{"main": main, "sub": sub})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestFromGraph(t *testing.T) {
	g := buildSample(t)
	snap := FromGraph(g)

	if snap.Root != "main" {
		t.Errorf("root = %q", snap.Root)
	}
	if len(snap.Nodes) != g.NodeCount() {
		t.Fatalf("nodes = %d, want %d", len(snap.Nodes), g.NodeCount())
	}
	if len(snap.Links) != g.LinkCount() {
		t.Errorf("links = %d, want %d", len(snap.Links), g.LinkCount())
	}

	byName := map[string]Node{}
	for _, n := range snap.Nodes {
		if n.ID != g.NodeByID(n.ID).ID() {
			t.Errorf("id mismatch for %s", n.Name)
		}
		byName[n.Name] = n
	}

	mid, ok := byName["mid"]
	if !ok {
		t.Fatal("mid node missing from snapshot")
	}
	if mid.Type != "math" || mid.Path != "rig/mid" {
		t.Errorf("mid = type %q, path %q", mid.Type, mid.Path)
	}
	if mid.Params["operation"] != "multiply" {
		t.Errorf("params = %v", mid.Params)
	}
	if len(mid.Inputs) != 2 || len(mid.Outputs) != 1 {
		t.Errorf("mid sockets = %d in, %d out", len(mid.Inputs), len(mid.Outputs))
	}

	// Every link endpoint refers to a socket the snapshot declares.
	declared := map[int]bool{}
	for _, n := range snap.Nodes {
		for _, s := range n.Inputs {
			declared[s.ID] = true
		}
		for _, s := range n.Outputs {
			declared[s.ID] = true
		}
	}
	for _, l := range snap.Links {
		if !declared[l.From] || !declared[l.To] {
			t.Errorf("link %d->%d references undeclared socket", l.From, l.To)
		}
	}

	if len(snap.GroupInputs) != 0 {
		t.Errorf("fully connected graph should have no group inputs, got %d", len(snap.GroupInputs))
	}
}

func TestFromGraphDanglingBoundary(t *testing.T) {
	sub := vtree.NewTree("sub")
	gin, _ := sub.AddNode("gin", vtree.TypeGroupInput, nil, []string{"in"})
	mid, _ := sub.AddNode("mid", "math", []string{"x"}, []string{"y"})
	if err := sub.Link(gin.Output(0), mid.Input(0)); err != nil {
		t.Fatal(err)
	}

	main := vtree.NewTree("main")
	if _, err := main.AddGroupNode("rig", "sub", []string{"in"}, nil); err != nil {
		t.Fatal(err)
	}

	g, err := inlined.Build("main", vtree.MapResolver{"main": main, "sub": sub})
	if err != nil {
		t.Fatal(err)
	}

	snap := FromGraph(g)
	if len(snap.GroupInputs) != 1 {
		t.Fatalf("group inputs = %d, want 1", len(snap.GroupInputs))
	}
	gi := snap.GroupInputs[0]
	if gi.Name != "in" || gi.Path != "rig/in" {
		t.Errorf("group input = %q at %q", gi.Name, gi.Path)
	}
	if len(gi.Targets) != 1 {
		t.Errorf("targets = %v", gi.Targets)
	}
}

func TestRoundTrip(t *testing.T) {
	g := buildSample(t)

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, FromGraph(g)) {
		t.Error("snapshot changed across marshal/unmarshal")
	}
}

func TestWriteRead(t *testing.T) {
	g := buildSample(t)

	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if back.Root != "main" || len(back.Nodes) != g.NodeCount() {
		t.Errorf("read back %q with %d nodes", back.Root, len(back.Nodes))
	}
}

func TestWriteReadFile(t *testing.T) {
	g := buildSample(t)
	path := t.TempDir() + "/graph.json"

	if err := WriteFile(g, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(back, FromGraph(g)) {
		t.Error("file round trip changed the snapshot")
	}
}
