// Package cache provides pluggable byte caches and the key scheme used
// by the inlining pipeline. Backends: file (CLI), redis (server), null
// (disabled).
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact class. Parsed bundles are cheap to rebuild;
// rendered artifacts are not.
const (
	// TTLGraph is the lifetime of cached inlined-graph snapshots.
	TTLGraph = 24 * time.Hour

	// TTLArtifact is the lifetime of rendered artifacts (DOT, SVG, JSON).
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented cache with TTL support.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// GraphKey identifies an inlined graph by its root tree and the
	// hash of the bundle document it was built from.
	GraphKey(root, bundleHash string) string

	// ArtifactKey identifies a rendered artifact of a graph.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render parameters that distinguish artifacts
// of the same graph.
type ArtifactKeyOpts struct {
	Format   string // "dot", "svg", "json"
	Detailed bool
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey generates a key for inlined-graph caching.
func (k *DefaultKeyer) GraphKey(root, bundleHash string) string {
	return hashKey("graph", root, bundleHash)
}

// ArtifactKey generates a key for artifact caching.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts.Format, opts.Detailed)
}
