package vtree

import (
	"errors"
	"testing"
)

func TestAddNode(t *testing.T) {
	tree := NewTree("main")

	n, err := tree.AddNode("add", "math", []string{"x", "y"}, []string{"result"})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if n.Name() != "add" || n.Type() != "math" {
		t.Errorf("node = %s/%s", n.Name(), n.Type())
	}
	if len(n.Inputs()) != 2 || len(n.Outputs()) != 1 {
		t.Errorf("sockets = %d in, %d out", len(n.Inputs()), len(n.Outputs()))
	}
	if n.Input(1).Name() != "y" || n.Input(1).Index() != 1 {
		t.Errorf("input 1 = %s/%d", n.Input(1).Name(), n.Input(1).Index())
	}
	if n.Input(0).Node() != n {
		t.Error("socket back-reference broken")
	}

	if got, ok := tree.Node("add"); !ok || got != n {
		t.Error("Node lookup failed")
	}
	if _, ok := tree.Node("missing"); ok {
		t.Error("Node lookup for missing name should fail")
	}
}

func TestAddNodeValidation(t *testing.T) {
	tree := NewTree("main")
	if _, err := tree.AddNode("", "math", nil, nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty name: err = %v", err)
	}
	if _, err := tree.AddNode("a.b", "math", nil, nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("dotted name: err = %v", err)
	}
	if _, err := tree.AddNode("a", "", nil, nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty type: err = %v", err)
	}
	if _, err := tree.AddGroupNode("g", "", nil, nil); !errors.Is(err, ErrInvalidName) {
		t.Errorf("empty tree ref: err = %v", err)
	}

	if _, err := tree.AddNode("a", "math", nil, nil); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := tree.AddNode("a", "math", nil, nil); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("duplicate: err = %v", err)
	}
}

func TestLinkByName(t *testing.T) {
	tree := NewTree("main")
	if _, err := tree.AddNode("a", "value", nil, []string{"value"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.AddNode("b", "sink", []string{"value"}, nil); err != nil {
		t.Fatal(err)
	}

	if err := tree.LinkByName("a.value", "b.value"); err != nil {
		t.Fatalf("LinkByName: %v", err)
	}
	if len(tree.Links()) != 1 {
		t.Fatalf("links = %d, want 1", len(tree.Links()))
	}
	link := tree.Links()[0]
	if link.From.Ref() != "a.value" || link.To.Ref() != "b.value" {
		t.Errorf("link = %s -> %s", link.From.Ref(), link.To.Ref())
	}

	if err := tree.LinkByName("missing.value", "b.value"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("unknown node: err = %v", err)
	}
	if err := tree.LinkByName("a.bogus", "b.value"); !errors.Is(err, ErrUnknownSocket) {
		t.Errorf("unknown socket: err = %v", err)
	}
	if err := tree.LinkByName("a", "b.value"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("malformed ref: err = %v", err)
	}
}

func TestLinkForeignSocket(t *testing.T) {
	a := NewTree("a")
	b := NewTree("b")
	src, _ := a.AddNode("src", "value", nil, []string{"value"})
	dst, _ := b.AddNode("dst", "sink", []string{"value"}, nil)

	if err := a.Link(src.Output(0), dst.Input(0)); !errors.Is(err, ErrForeignSocket) {
		t.Errorf("err = %v, want ErrForeignSocket", err)
	}
}

func TestNodeKinds(t *testing.T) {
	tree := NewTree("main")
	g, err := tree.AddGroupNode("g", "sub", []string{"in"}, []string{"out"})
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsGroup() || g.TreeRef() != "sub" {
		t.Error("group node misclassified")
	}

	gin, _ := tree.AddNode("gin", TypeGroupInput, nil, []string{"x"})
	gout, _ := tree.AddNode("gout", TypeGroupOutput, []string{"x"}, nil)
	if !gin.IsGroupInput() || !gin.IsInterface() {
		t.Error("group_input misclassified")
	}
	if !gout.IsGroupOutput() || !gout.IsInterface() {
		t.Error("group_output misclassified")
	}

	plain, _ := tree.AddNode("p", "math", nil, nil)
	if plain.IsGroup() || plain.IsInterface() {
		t.Error("plain node misclassified")
	}
}

func TestParams(t *testing.T) {
	tree := NewTree("main")
	n, _ := tree.AddNode("a", "math", nil, nil)
	if n.Params() != nil {
		t.Error("params should be nil before first SetParam")
	}
	n.SetParam("operation", "add")
	if n.Params()["operation"] != "add" {
		t.Error("param roundtrip failed")
	}
}

func TestMapResolver(t *testing.T) {
	tree := NewTree("main")
	r := MapResolver{"main": tree}

	got, err := r.Resolve("main")
	if err != nil || got != tree {
		t.Fatalf("Resolve = %v, %v", got, err)
	}
	if _, err := r.Resolve("missing"); !errors.Is(err, ErrUnknownTree) {
		t.Errorf("err = %v, want ErrUnknownTree", err)
	}
}
