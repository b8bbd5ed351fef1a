package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

func TestPrometheusInflightBalances(t *testing.T) {
	m, err := NewPrometheusMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.BuildStarted("template")
	if got := testutil.ToFloat64(m.inflight); got != 1 {
		t.Fatalf("inflight after start = %v, want 1", got)
	}
	m.BuildCompleted("template", "success", 10*time.Millisecond)
	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Errorf("inflight after completion = %v, want 0", got)
	}

	// Skipped vertices never start; completing them must not move the
	// gauge.
	m.BuildCompleted("template", "skipped", 0)
	m.BuildCompleted("template", "skipped", 0)
	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Errorf("inflight after skips = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.builds.WithLabelValues("template", "skipped")); got != 2 {
		t.Errorf("skipped build count = %v, want 2", got)
	}
}

func TestInflightGaugeAfterSkippedRun(t *testing.T) {
	m, err := NewPrometheusMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	catalog := component.NewCatalog()
	register := func(name string, f component.Func) {
		t.Helper()
		err := catalog.Register(name, func(params map[string]any) (component.Component, error) {
			return f, nil
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	register("ok", func(_ context.Context, _ component.Request) (component.Output, error) {
		return component.Output{Values: map[string]any{"text": "x"}}, nil
	})
	register("fail", func(_ context.Context, _ component.Request) (component.Output, error) {
		return component.Output{}, errors.New("boom")
	})

	engine, err := New(catalog, WithMetrics(m))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	// b fails, so c and d are skipped without ever starting.
	def := Definition{
		Nodes: []NodeData{
			{ID: "a", Type: "ok"},
			{ID: "b", Type: "fail"},
			{ID: "c", Type: "ok"},
			{ID: "d", Type: "ok"},
		},
		Edges: []EdgeData{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "d"},
		},
	}

	ctx := context.Background()
	run, err := engine.Prepare(ctx, def)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	for {
		_, ok, err := run.Step(ctx)
		if err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if !ok {
			break
		}
	}

	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Errorf("inflight after run with skips = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.builds.WithLabelValues("ok", "skipped")); got != 2 {
		t.Errorf("skipped build count = %v, want 2", got)
	}
}
