package treedef

import (
	"errors"
	"testing"

	apperrors "github.com/flatnode/flatnode/pkg/errors"
	"github.com/flatnode/flatnode/pkg/inlined"
)

const tomlBundleDoc = `
root = "main"

[[tree]]
name = "main"

  [[tree.node]]
  name = "src"
  type = "value"
  outputs = ["value"]

    [tree.node.params]
    value = 4.0

  [[tree.node]]
  name = "double"
  tree = "double"
  inputs = ["in"]
  outputs = ["out"]

  [[tree.node]]
  name = "sink"
  type = "output"
  inputs = ["value"]

  [[tree.link]]
  from = "src.value"
  to = "double.in"

  [[tree.link]]
  from = "double.out"
  to = "sink.value"

[[tree]]
name = "double"

  [[tree.node]]
  name = "gin"
  type = "group_input"
  outputs = ["in"]

  [[tree.node]]
  name = "add"
  type = "math"
  inputs = ["x", "y"]
  outputs = ["result"]

  [[tree.node]]
  name = "gout"
  type = "group_output"
  inputs = ["out"]

  [[tree.link]]
  from = "gin.in"
  to = "add.x"

  [[tree.link]]
  from = "gin.in"
  to = "add.y"

  [[tree.link]]
  from = "add.result"
  to = "gout.out"
`

func TestParseTOML(t *testing.T) {
	bundle, err := ParseTOML([]byte(tomlBundleDoc))
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}

	if bundle.Root != "main" {
		t.Errorf("root = %q, want main", bundle.Root)
	}
	if len(bundle.Trees) != 2 {
		t.Fatalf("trees = %d, want 2", len(bundle.Trees))
	}

	main := bundle.RootTree()
	if main == nil || main.Name() != "main" {
		t.Fatal("root tree missing")
	}
	src, ok := main.Node("src")
	if !ok {
		t.Fatal("src node missing")
	}
	if src.Params()["value"] != 4.0 {
		t.Errorf("src params = %v", src.Params())
	}
	dbl, _ := main.Node("double")
	if !dbl.IsGroup() || dbl.TreeRef() != "double" {
		t.Error("node with tree reference should be a group node")
	}

	// The bundle feeds the inliner end to end.
	g, err := inlined.Build(bundle.Root, bundle.Resolver())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 3 { // src, add, sink
		t.Errorf("NodeCount = %d, want 3", g.NodeCount())
	}
	if g.LinkCount() != 3 { // src->add.x, src->add.y, add->sink
		t.Errorf("LinkCount = %d, want 3", g.LinkCount())
	}
}

func TestParseTOMLDefaultRoot(t *testing.T) {
	doc := `
[[tree]]
name = "only"

  [[tree.node]]
  name = "a"
  type = "value"
  outputs = ["value"]
`
	bundle, err := ParseTOML([]byte(doc))
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	if bundle.Root != "only" {
		t.Errorf("root = %q, want first declared tree", bundle.Root)
	}
}

func TestParseTOMLErrors(t *testing.T) {
	if _, err := ParseTOML([]byte("")); !errors.Is(err, ErrEmptyBundle) {
		t.Errorf("empty doc: err = %v", err)
	}

	dup := `
[[tree]]
name = "a"
[[tree.node]]
name = "n"
type = "value"

[[tree]]
name = "a"
`
	if _, err := ParseTOML([]byte(dup)); !errors.Is(err, ErrDuplicateTree) {
		t.Errorf("duplicate tree: err = %v", err)
	}

	badRoot := `
root = "missing"
[[tree]]
name = "a"
[[tree.node]]
name = "n"
type = "value"
`
	if _, err := ParseTOML([]byte(badRoot)); !errors.Is(err, ErrUnknownRoot) {
		t.Errorf("unknown root: err = %v", err)
	}

	badRef := `
[[tree]]
name = "a"
[[tree.node]]
name = "n"
type = "value"
outputs = ["value"]
[[tree.node]]
name = "m"
type = "output"
inputs = ["value"]
[[tree.link]]
from = "n"
to = "m.value"
`
	if _, err := ParseTOML([]byte(badRef)); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("malformed link ref: err = %v, want INVALID_INPUT", err)
	}
}

const hclBundleDoc = `
root = "main"

tree "main" {
  node "src" {
    type    = "value"
    outputs = ["value"]
    params = {
      value = 4
      label = "seed"
    }
  }
  node "double" {
    tree    = "double"
    inputs  = ["in"]
    outputs = ["out"]
  }
  node "sink" {
    type   = "output"
    inputs = ["value"]
  }
  link {
    from = "src.value"
    to   = "double.in"
  }
  link {
    from = "double.out"
    to   = "sink.value"
  }
}

tree "double" {
  node "gin" {
    type    = "group_input"
    outputs = ["in"]
  }
  node "add" {
    type    = "math"
    inputs  = ["x", "y"]
    outputs = ["result"]
  }
  node "gout" {
    type   = "group_output"
    inputs = ["out"]
  }
  link {
    from = "gin.in"
    to   = "add.x"
  }
  link {
    from = "gin.in"
    to   = "add.y"
  }
  link {
    from = "add.result"
    to   = "gout.out"
  }
}
`

func TestParseHCL(t *testing.T) {
	bundle, err := ParseHCL([]byte(hclBundleDoc), "bundle.hcl")
	if err != nil {
		t.Fatalf("ParseHCL: %v", err)
	}

	if bundle.Root != "main" {
		t.Errorf("root = %q, want main", bundle.Root)
	}
	src, ok := bundle.RootTree().Node("src")
	if !ok {
		t.Fatal("src node missing")
	}
	if src.Params()["value"] != 4.0 {
		t.Errorf("numeric param = %v (%T), want 4.0", src.Params()["value"], src.Params()["value"])
	}
	if src.Params()["label"] != "seed" {
		t.Errorf("string param = %v", src.Params()["label"])
	}

	g, err := inlined.Build(bundle.Root, bundle.Resolver())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 3 || g.LinkCount() != 3 {
		t.Errorf("graph = %d nodes, %d links; want 3, 3", g.NodeCount(), g.LinkCount())
	}
}

func TestParseHCLSyntaxError(t *testing.T) {
	if _, err := ParseHCL([]byte(`tree "a" {`), "broken.hcl"); err == nil {
		t.Error("unterminated block should fail")
	}
}

func TestParseFileUnknownFormat(t *testing.T) {
	if _, err := ParseFile("trees.yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

// TOML and HCL documents describing the same bundle must inline to
// identical graphs.
func TestFormatEquivalence(t *testing.T) {
	fromTOML, err := ParseTOML([]byte(tomlBundleDoc))
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	fromHCL, err := ParseHCL([]byte(hclBundleDoc), "bundle.hcl")
	if err != nil {
		t.Fatalf("ParseHCL: %v", err)
	}

	gt, err := inlined.Build(fromTOML.Root, fromTOML.Resolver())
	if err != nil {
		t.Fatalf("Build(toml): %v", err)
	}
	gh, err := inlined.Build(fromHCL.Root, fromHCL.Resolver())
	if err != nil {
		t.Fatalf("Build(hcl): %v", err)
	}

	dotT := inlined.ToDOT(gt, inlined.DOTOptions{Detailed: true})
	dotH := inlined.ToDOT(gh, inlined.DOTOptions{Detailed: true})
	if dotT != dotH {
		t.Errorf("formats disagree:\n%s\nvs\n%s", dotT, dotH)
	}
}
