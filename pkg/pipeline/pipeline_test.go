package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/flatnode/flatnode/pkg/cache"
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

func sourceOpts(formats ...string) Options {
	return Options{
		Source:     sampleBundle,
		SourceName: "trees.toml",
		Formats:    formats,
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no input", Options{}},
		{"both inputs", Options{Path: "a.toml", Source: "x", SourceName: "x.toml"}},
		{"source without name", Options{Source: "x"}},
		{"bad format", Options{Source: "x", SourceName: "x.toml", Formats: []string{"png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	opts := Options{Source: "x", SourceName: "x.toml"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatDOT {
		t.Errorf("default formats = %v", opts.Formats)
	}
}

func TestExecute(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), sourceOpts(FormatDOT, FormatJSON))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Root != "main" {
		t.Errorf("root = %q", result.Root)
	}
	if result.Graph == nil {
		t.Fatal("graph should be built on a cold run")
	}
	if result.Stats.TreeCount != 2 {
		t.Errorf("trees = %d", result.Stats.TreeCount)
	}
	if result.Stats.NodeCount != 3 { // src, mid, sink
		t.Errorf("nodes = %d, want 3", result.Stats.NodeCount)
	}
	if result.GraphHash == "" {
		t.Error("graph hash missing")
	}

	dot, ok := result.Artifacts[FormatDOT]
	if !ok || !bytes.HasPrefix(dot, []byte("digraph G {")) {
		t.Errorf("dot artifact = %q", dot)
	}
	if !strings.Contains(string(dot), "rig/mid") {
		t.Error("dot should label inlined nodes with their call-site path")
	}
	if !bytes.Equal(result.Artifacts[FormatJSON], result.Snapshot) {
		t.Error("json artifact should be the snapshot")
	}
	if result.CacheInfo.InlineHit || result.CacheInfo.RenderHit {
		t.Error("null cache should never report hits")
	}
}

func TestExecuteCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	ctx := context.Background()
	first, err := runner.Execute(ctx, sourceOpts(FormatDOT, FormatJSON))
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo.InlineHit || first.CacheInfo.RenderHit {
		t.Error("cold run should not hit cache")
	}

	second, err := runner.Execute(ctx, sourceOpts(FormatDOT, FormatJSON))
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.InlineHit {
		t.Error("warm run should reuse the cached snapshot")
	}
	if !second.CacheInfo.RenderHit {
		t.Error("warm run should reuse cached artifacts")
	}
	if second.Graph != nil {
		t.Error("fully cached run should not rebuild the graph")
	}
	if !bytes.Equal(first.Artifacts[FormatDOT], second.Artifacts[FormatDOT]) {
		t.Error("cached artifact differs from rendered one")
	}

	// Refresh bypasses the snapshot cache.
	refreshOpts := sourceOpts(FormatDOT)
	refreshOpts.Refresh = true
	third, err := runner.Execute(ctx, refreshOpts)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if third.CacheInfo.InlineHit {
		t.Error("refresh should bypass the snapshot cache")
	}
	if third.Graph == nil {
		t.Error("refresh should rebuild the graph")
	}
}

func TestExecuteDetailedKeysSeparately(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	ctx := context.Background()
	plain, err := runner.Execute(ctx, sourceOpts(FormatDOT))
	if err != nil {
		t.Fatal(err)
	}

	detailedOpts := sourceOpts(FormatDOT)
	detailedOpts.Detailed = true
	detailed, err := runner.Execute(ctx, detailedOpts)
	if err != nil {
		t.Fatal(err)
	}
	if detailed.CacheInfo.RenderHit {
		t.Error("detailed render must not reuse the plain artifact")
	}
	if bytes.Equal(plain.Artifacts[FormatDOT], detailed.Artifacts[FormatDOT]) {
		t.Error("detailed DOT should differ from plain DOT")
	}
}

func TestExecuteRootOverride(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	opts := sourceOpts(FormatJSON)
	opts.Root = "main"
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Root != "main" {
		t.Errorf("root = %q, want main", result.Root)
	}

	// A tree with interface nodes cannot be a root.
	opts.Root = "rig"
	if _, err := runner.Execute(context.Background(), opts); err == nil {
		t.Error("inlining a group-only tree as root should fail")
	}
}

func TestRender(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	bundle, _, err := runner.Parse(context.Background(), sourceOpts())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g, err := runner.Inline(context.Background(), bundle, "")
	if err != nil {
		t.Fatalf("Inline: %v", err)
	}

	artifacts, err := runner.Render(context.Background(), g, sourceOpts(FormatDOT, FormatJSON))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("artifacts = %d", len(artifacts))
	}
}

func TestParseUnknownExtension(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	opts := Options{Source: "x", SourceName: "trees.yaml"}
	if _, _, err := runner.Parse(context.Background(), opts); err == nil {
		t.Error("unknown extension should fail")
	}
}
