// Package store provides persistence backends for session snapshots and
// build history.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested session or run does not exist.
var ErrNotFound = errors.New("not found")

// Store persists engine state across runs.
//
// Two concerns share one backend:
//   - Session snapshots: the serialized context store of a session, loaded
//     before a run and saved after, so conversational state survives
//     process restarts.
//   - Build history: the per-run sequence of build results, persisted for
//     auditing and debugging.
//
// Implementations must be safe for concurrent use. Snapshot and result
// payloads are opaque bytes (JSON in practice); stores never interpret
// them.
type Store interface {
	// SaveSession persists the session's snapshot, replacing any previous
	// one.
	SaveSession(ctx context.Context, sessionID string, snapshot []byte) error

	// LoadSession retrieves the session's latest snapshot. Returns
	// ErrNotFound when the session has no snapshot.
	LoadSession(ctx context.Context, sessionID string) ([]byte, error)

	// DeleteSession removes the session's snapshot. Deleting an unknown
	// session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// SaveBuild appends one build record to the run's history.
	SaveBuild(ctx context.Context, runID string, seq int, vertexID string, result []byte) error

	// LoadBuilds retrieves the run's build records ordered by sequence
	// number. Returns an empty slice for unknown runs.
	LoadBuilds(ctx context.Context, runID string) ([]BuildRecord, error)

	// Close releases the store's resources.
	Close() error
}

// BuildRecord is one persisted build result.
type BuildRecord struct {
	// Seq is the build's sequence number within its run.
	Seq int

	// VertexID names the vertex that built.
	VertexID string

	// Result is the serialized build result.
	Result []byte
}
