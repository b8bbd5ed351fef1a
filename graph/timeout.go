package graph

import (
	"context"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// buildWithTimeout runs one build attempt under the vertex's timeout. The
// component gets a deadline-carrying context; a component that ignores it is
// still abandoned once the deadline passes, though its goroutine runs to
// completion in the background.
func buildWithTimeout(ctx context.Context, v *Vertex, req component.Request) (component.Output, error) {
	timeout := v.policy.Timeout
	if timeout <= 0 {
		out, err := v.comp.Build(ctx, req)
		if err != nil && ctx.Err() != nil {
			return component.Output{}, &CancellationError{Cause: ctx.Err()}
		}
		return out, err
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type buildResult struct {
		out component.Output
		err error
	}
	done := make(chan buildResult, 1)
	go func() {
		out, err := v.comp.Build(tctx, req)
		done <- buildResult{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return component.Output{}, &TimeoutError{VertexID: v.ID, Timeout: timeout}
		}
		if res.err != nil && ctx.Err() != nil {
			return component.Output{}, &CancellationError{Cause: ctx.Err()}
		}
		return res.out, res.err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return component.Output{}, &CancellationError{Cause: ctx.Err()}
		}
		return component.Output{}, &TimeoutError{VertexID: v.ID, Timeout: timeout}
	}
}
