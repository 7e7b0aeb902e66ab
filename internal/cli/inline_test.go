package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleBundle = `
root = "main"

[[tree]]
name = "main"

  [[tree.node]]
  name = "src"
  type = "value"
  outputs = ["value"]

  [[tree.node]]
  name = "rig"
  tree = "rig"
  inputs = ["in"]
  outputs = ["out"]

  [[tree.node]]
  name = "sink"
  type = "output"
  inputs = ["value"]

  [[tree.link]]
  from = "src.value"
  to = "rig.in"

  [[tree.link]]
  from = "rig.out"
  to = "sink.value"

[[tree]]
name = "rig"

  [[tree.node]]
  name = "gin"
  type = "group_input"
  outputs = ["in"]

  [[tree.node]]
  name = "mid"
  type = "math"
  inputs = ["x"]
  outputs = ["y"]

  [[tree.node]]
  name = "gout"
  type = "group_output"
  inputs = ["out"]

  [[tree.link]]
  from = "gin.in"
  to = "mid.x"

  [[tree.link]]
  from = "mid.y"
  to = "gout.out"
`

func writeSampleBundle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trees.toml")
	if err := os.WriteFile(path, []byte(sampleBundle), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInlineCommand(t *testing.T) {
	bundle := writeSampleBundle(t)
	out := filepath.Join(t.TempDir(), "graph.dot")

	root := testCLI().RootCommand()
	root.SetArgs([]string{"inline", bundle, "-o", out, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("inline: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "digraph G {") {
		t.Errorf("output is not DOT: %q", dot[:20])
	}
	if !strings.Contains(dot, "rig/mid") {
		t.Error("output should contain inlined call-site paths")
	}
}

func TestInlineCommandMultipleFormats(t *testing.T) {
	bundle := writeSampleBundle(t)
	base := filepath.Join(t.TempDir(), "graph")

	root := testCLI().RootCommand()
	root.SetArgs([]string{"inline", bundle, "-f", "dot,json", "-o", base, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("inline: %v", err)
	}

	for _, ext := range []string{".dot", ".json"} {
		if _, err := os.Stat(base + ext); err != nil {
			t.Errorf("missing artifact %s: %v", ext, err)
		}
	}
}

func TestInlineCommandInvalidFormat(t *testing.T) {
	bundle := writeSampleBundle(t)

	root := testCLI().RootCommand()
	root.SetArgs([]string{"inline", bundle, "-f", "gif", "--no-cache"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestInlineCommandUnknownRoot(t *testing.T) {
	bundle := writeSampleBundle(t)

	root := testCLI().RootCommand()
	root.SetArgs([]string{"inline", bundle, "-r", "missing", "--no-cache"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown root tree")
	}
}
