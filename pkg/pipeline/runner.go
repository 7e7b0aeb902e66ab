package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flatnode/flatnode/pkg/cache"
	"github.com/flatnode/flatnode/pkg/graphio"
	"github.com/flatnode/flatnode/pkg/inlined"
	"github.com/flatnode/flatnode/pkg/observability"
	"github.com/flatnode/flatnode/pkg/treecache"
	"github.com/flatnode/flatnode/pkg/treedef"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → inline → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Parse
	parseStart := time.Now()
	bundle, raw, err := r.Parse(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.TreeCount = len(bundle.Trees)

	root := bundle.Root
	if opts.Root != "" {
		root = opts.Root
	}
	result.Root = root

	r.Logger.Info("parsed bundle",
		"trees", len(bundle.Trees),
		"root", root,
		"duration", result.Stats.ParseTime)

	// Stage 2: Inline
	bundleHash := cache.Hash(raw)
	graphKey := r.Keyer.GraphKey(root, bundleHash)

	inlineStart := time.Now()
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, graphKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "graph")
			result.Snapshot = data
			result.CacheInfo.InlineHit = true
		} else {
			observability.Cache().OnCacheMiss(ctx, "graph")
		}
	}

	if !result.CacheInfo.InlineHit {
		observability.Pipeline().OnInlineStart(ctx, root)
		g, err := r.Inline(ctx, bundle, root)
		observability.Pipeline().OnInlineComplete(ctx, root, graphNodeCount(g), time.Since(inlineStart), err)
		if err != nil {
			return nil, fmt.Errorf("inline: %w", err)
		}
		result.Graph = g

		snapshot, err := graphio.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("serialize graph: %w", err)
		}
		result.Snapshot = snapshot
		_ = r.Cache.Set(ctx, graphKey, snapshot, cache.TTLGraph)
		observability.Cache().OnCacheSet(ctx, "graph", len(snapshot))
	}
	result.Stats.InlineTime = time.Since(inlineStart)
	result.GraphHash = cache.Hash(result.Snapshot)

	if result.Graph != nil {
		result.Stats.NodeCount = result.Graph.NodeCount()
		result.Stats.LinkCount = result.Graph.LinkCount()
	} else if snap, err := graphio.Unmarshal(result.Snapshot); err == nil {
		result.Stats.NodeCount = len(snap.Nodes)
		result.Stats.LinkCount = len(snap.Links)
	}

	r.Logger.Info("inlined graph",
		"nodes", result.Stats.NodeCount,
		"links", result.Stats.LinkCount,
		"cached", result.CacheInfo.InlineHit,
		"duration", result.Stats.InlineTime)

	// Stage 3: Render
	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, renderHit, err := r.renderWithCache(ctx, result, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Parse decodes the bundle document named by the options and returns it
// together with the raw document bytes used for cache keys.
func (r *Runner) Parse(ctx context.Context, opts Options) (*treedef.Bundle, []byte, error) {
	if err := opts.ValidateForParse(); err != nil {
		return nil, nil, err
	}

	var (
		raw  []byte
		name string
		err  error
	)
	if opts.Path != "" {
		name = opts.Path
		raw, err = os.ReadFile(opts.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", opts.Path, err)
		}
	} else {
		name = opts.SourceName
		raw = []byte(opts.Source)
	}

	observability.Pipeline().OnParseStart(ctx, name)
	start := time.Now()
	bundle, err := parseBundle(raw, name)
	treeCount := 0
	if bundle != nil {
		treeCount = len(bundle.Trees)
	}
	observability.Pipeline().OnParseComplete(ctx, name, treeCount, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return bundle, raw, nil
}

// Inline flattens the named root tree of the bundle. Tree resolution
// goes through an LRU so each referenced tree is looked up once.
func (r *Runner) Inline(ctx context.Context, bundle *treedef.Bundle, root string) (*inlined.Graph, error) {
	if root == "" {
		root = bundle.Root
	}
	resolver := treecache.NewDefault(bundle.Resolver())
	return inlined.Build(root, resolver)
}

// Render produces the requested artifacts from a graph, without caching.
func (r *Runner) Render(ctx context.Context, g *inlined.Graph, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	snapshot, err := graphio.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("serialize graph: %w", err)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := renderFormat(g, snapshot, format, opts.Detailed)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// renderWithCache serves artifacts from cache where possible and renders
// the rest. Rendering requires the built graph except for the JSON
// format, which is the snapshot itself.
func (r *Runner) renderWithCache(ctx context.Context, result *Result, opts Options) (map[string][]byte, bool, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true

	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(result.GraphHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
		allCached = false

		if result.Graph == nil && format != FormatJSON {
			// The snapshot alone can't drive DOT or SVG rendering.
			g, err := r.rebuild(ctx, opts)
			if err != nil {
				return nil, false, err
			}
			result.Graph = g
			result.Stats.NodeCount = g.NodeCount()
			result.Stats.LinkCount = g.LinkCount()
		}

		data, err := renderFormat(result.Graph, result.Snapshot, format, opts.Detailed)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return artifacts, allCached, nil
}

// rebuild re-runs parse and inline when a snapshot cache hit skipped the
// build but an uncached artifact still needs the graph.
func (r *Runner) rebuild(ctx context.Context, opts Options) (*inlined.Graph, error) {
	bundle, _, err := r.Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	root := bundle.Root
	if opts.Root != "" {
		root = opts.Root
	}
	return r.Inline(ctx, bundle, root)
}

// renderFormat produces one artifact. The snapshot is used verbatim for
// JSON; DOT and SVG need the graph.
func renderFormat(g *inlined.Graph, snapshot []byte, format string, detailed bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		return snapshot, nil
	case FormatDOT:
		return []byte(inlined.ToDOT(g, inlined.DOTOptions{Detailed: detailed})), nil
	case FormatSVG:
		dot := inlined.ToDOT(g, inlined.DOTOptions{Detailed: detailed})
		svg, err := inlined.RenderSVG(dot)
		if err != nil {
			return nil, fmt.Errorf("render svg: %w", err)
		}
		return svg, nil
	default:
		return nil, fmt.Errorf("invalid format: %q", format)
	}
}

// parseBundle dispatches on the document's file extension.
func parseBundle(data []byte, name string) (*treedef.Bundle, error) {
	switch filepath.Ext(name) {
	case ".toml":
		return treedef.ParseTOML(data)
	case ".hcl":
		return treedef.ParseHCL(data, name)
	default:
		return nil, fmt.Errorf("%w: %q", treedef.ErrUnknownFormat, filepath.Ext(name))
	}
}

func graphNodeCount(g *inlined.Graph) int {
	if g == nil {
		return 0
	}
	return g.NodeCount()
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
