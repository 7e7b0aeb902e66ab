// Package store persists inlined graph records for the HTTP API.
//
// A record couples a graph snapshot with the identity the API hands
// out: a uuid, the root tree name, and the snapshot's content hash.
// Two backends exist: an in-memory store for tests and single-process
// use, and a mongo-backed store for deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/flatnode/flatnode/pkg/graphio"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("graph not found")

// Record is one stored graph. Source keeps the bundle document the
// graph was built from, opaque to the store. Artifacts holds the
// outputs rendered when the graph was created, keyed by format.
type Record struct {
	ID         string            `json:"id" bson:"_id"`
	Root       string            `json:"root" bson:"root"`
	GraphHash  string            `json:"graph_hash" bson:"graph_hash"`
	Source     string            `json:"-" bson:"source,omitempty"`
	SourceName string            `json:"source_name,omitempty" bson:"source_name,omitempty"`
	Snapshot   graphio.Graph     `json:"snapshot" bson:"snapshot"`
	Artifacts  map[string][]byte `json:"-" bson:"artifacts,omitempty"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
}

// Summary is the listing view of a record, without the snapshot.
type Summary struct {
	ID        string    `json:"id" bson:"_id"`
	Root      string    `json:"root" bson:"root"`
	GraphHash string    `json:"graph_hash" bson:"graph_hash"`
	NodeCount int       `json:"node_count" bson:"node_count"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Store persists graph records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores a record. A missing ID is assigned; a missing
	// CreatedAt is set to now.
	Put(ctx context.Context, rec *Record) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns summaries of all records, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a record. Deleting a missing id returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// prepare fills in the generated fields of a record before storage.
func prepare(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

// summarize derives the listing view of a record.
func summarize(rec *Record) Summary {
	return Summary{
		ID:        rec.ID,
		Root:      rec.Root,
		GraphHash: rec.GraphHash,
		NodeCount: len(rec.Snapshot.Nodes),
		CreatedAt: rec.CreatedAt,
	}
}
