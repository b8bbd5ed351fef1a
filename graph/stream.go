package graph

import "context"

// Stream is the pull-based streaming view of a run: each Next call executes
// one scheduling step and yields its result, so callers observe builds as
// they happen.
//
// A Stream must be closed. Closing an unfinished stream cancels the run and
// releases its context store; closing a finished one is a no-op.
//
// Example:
//
//	s := run.Stream()
//	defer s.Close()
//	for {
//	    result, ok, err := s.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(result.VertexID, result.Value("text"))
//	}
type Stream struct {
	run    *Run
	closed bool
}

// Stream returns the run's streaming view. The run must not be driven
// through any other entry point afterwards.
func (r *Run) Stream() *Stream {
	return &Stream{run: r}
}

// Next executes one step and returns its result. ok is false once the run
// completes; afterwards every call keeps returning ok=false. Calling Next
// on a closed stream returns ErrStreamClosed.
func (s *Stream) Next(ctx context.Context) (BuildResult, bool, error) {
	if s.closed {
		return BuildResult{}, false, ErrStreamClosed
	}
	return s.run.Step(ctx)
}

// Close releases the stream. An unfinished run is cancelled, which releases
// its context store.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	switch s.run.status {
	case RunSucceeded, RunFailed, RunCancelled:
		return nil
	default:
		_ = s.run.cancel(context.Canceled)
		return nil
	}
}
