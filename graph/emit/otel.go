package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span named after event.Msg, carrying the run id,
// sequence number, vertex id, and all Meta fields as attributes. Spans are
// ended immediately; events represent points in time, not durations. A
// "duration_ms" Meta field is recorded as an attribute rather than stretching
// the span.
//
// Usage:
//
//	tracer := otel.Tracer("flowgraph")
//	emitter := emit.NewOTelEmitter(tracer)
//	engine := graph.New(catalog, graph.WithEmitter(emitter))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using the given tracer, typically
// from otel.Tracer("service-name").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates one span for the event and ends it immediately. The span is
// marked with error status when Meta carries an "error" string.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	o.addAttributes(span, event)
}

// EmitBatch creates spans for several events under one context, letting the
// span processor batch the export.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.addAttributes(span, event)
		span.End()
	}
	return nil
}

// Flush forces export of pending spans when the installed tracer provider
// supports it. Call before shutdown so buffered spans reach the backend.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()

	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) addAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("flowgraph.run_id", event.RunID),
		attribute.Int("flowgraph.seq", event.Seq),
		attribute.String("flowgraph.vertex_id", event.VertexID),
	)

	for key, value := range event.Meta {
		attrKey := metaAttrKey(key)
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// metaAttrKey maps well-known Meta keys to namespaced attribute names.
func metaAttrKey(key string) string {
	switch key {
	case "tokens_in":
		return "flowgraph.llm.tokens_in"
	case "tokens_out":
		return "flowgraph.llm.tokens_out"
	case "model":
		return "flowgraph.llm.model"
	case "duration_ms":
		return "flowgraph.vertex.duration_ms"
	case "attempt":
		return "flowgraph.vertex.attempt"
	case "loop_index":
		return "flowgraph.loop.index"
	default:
		return key
	}
}
