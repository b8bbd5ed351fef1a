// Package graph provides the dependency-driven execution engine for
// component graphs.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStreamClosed is returned by Stream.Next after Close.
var ErrStreamClosed = errors.New("stream closed")

// ValidationError reports a malformed graph definition: an unknown vertex
// reference, a dangling edge, an unknown component type, or a malformed
// loop-back marker. Raised synchronously from Prepare before any vertex
// builds.
type ValidationError struct {
	// Message describes the problem.
	Message string

	// VertexID names the offending vertex when the problem is tied to one.
	VertexID string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.VertexID != "" {
		return "invalid graph: " + e.Message + " (vertex " + e.VertexID + ")"
	}
	return "invalid graph: " + e.Message
}

// DependencyError reports a cycle in the regular-edge subgraph. Cycles must
// be explicitly marked with loop-back edges; an unmarked cycle is a
// definition bug, not a loop construct. Raised synchronously from Prepare.
type DependencyError struct {
	// Cycle lists vertex ids on the detected cycle, in walk order.
	Cycle []string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle in regular edges (mark intentional cycles as loop-back)"
	}
	return "dependency cycle in regular edges: " + strings.Join(e.Cycle, " -> ") +
		" (mark intentional cycles as loop-back)"
}

// ExecutionError reports a failed vertex build, a loop whose input
// collection changed size mid-iteration, or an exceeded iteration ceiling.
// It is recorded on the vertex's BuildResult; dependents without an
// alternate healthy input path are skipped, never built.
type ExecutionError struct {
	// VertexID names the vertex whose build failed. Empty for run-level
	// failures such as the iteration ceiling.
	VertexID string

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	if e.VertexID != "" {
		return "vertex " + e.VertexID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// TimeoutError reports that a single vertex build exceeded its allotted
// time (per-vertex policy or the engine default).
type TimeoutError struct {
	// VertexID names the vertex that timed out.
	VertexID string

	// Timeout is the limit that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("vertex %s exceeded build timeout of %v", e.VertexID, e.Timeout)
}

// CancellationError reports that the caller cancelled the run (context
// cancellation or abandoning the streaming entry point) before completion.
type CancellationError struct {
	// Cause is the context error that triggered cancellation.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.Cause != nil {
		return "run cancelled: " + e.Cause.Error()
	}
	return "run cancelled"
}

// Unwrap returns the underlying context error.
func (e *CancellationError) Unwrap() error { return e.Cause }
