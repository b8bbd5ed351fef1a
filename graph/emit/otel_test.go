package emit_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/flowmesh/flowgraph-go/graph/emit"
)

func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

func TestOTelEmitterCreatesSpans(t *testing.T) {
	exporter, tp := newTestTracer()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := emit.NewOTelEmitter(tp.Tracer("flowgraph-test"))
	e.Emit(emit.Event{
		RunID:    "r1",
		Seq:      2,
		VertexID: "model",
		Msg:      emit.VertexEnd,
		Meta:     map[string]interface{}{"duration_ms": int64(42)},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != emit.VertexEnd {
		t.Errorf("span name = %s, want vertex_end", span.Name)
	}

	attrs := make(map[string]interface{})
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["flowgraph.run_id"] != "r1" {
		t.Errorf("run_id attr = %v", attrs["flowgraph.run_id"])
	}
	if attrs["flowgraph.seq"] != int64(2) {
		t.Errorf("seq attr = %v", attrs["flowgraph.seq"])
	}
	if attrs["flowgraph.vertex.duration_ms"] != int64(42) {
		t.Errorf("duration attr = %v", attrs["flowgraph.vertex.duration_ms"])
	}
}

func TestOTelEmitterMarksErrors(t *testing.T) {
	exporter, tp := newTestTracer()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := emit.NewOTelEmitter(tp.Tracer("flowgraph-test"))
	e.Emit(emit.Event{
		RunID:    "r1",
		VertexID: "model",
		Msg:      emit.VertexError,
		Meta:     map[string]interface{}{"error": "build failed"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "build failed" {
		t.Errorf("description = %q", spans[0].Status.Description)
	}
}

func TestOTelEmitterBatch(t *testing.T) {
	exporter, tp := newTestTracer()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := emit.NewOTelEmitter(tp.Tracer("flowgraph-test"))
	events := []emit.Event{
		{RunID: "r1", Msg: emit.RunStart},
		{RunID: "r1", Seq: 1, VertexID: "a", Msg: emit.VertexStart},
		{RunID: "r1", Seq: 1, VertexID: "a", Msg: emit.VertexEnd},
	}
	if err := e.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if got := len(exporter.GetSpans()); got != 3 {
		t.Errorf("exported %d spans, want 3", got)
	}
}
