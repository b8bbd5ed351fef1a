package emit_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flowmesh/flowgraph-go/graph/emit"
)

func TestBufferedEmitterHistory(t *testing.T) {
	b := emit.NewBufferedEmitter()
	b.Emit(emit.Event{RunID: "r1", Seq: 1, VertexID: "a", Msg: emit.VertexStart})
	b.Emit(emit.Event{RunID: "r1", Seq: 2, VertexID: "a", Msg: emit.VertexEnd})
	b.Emit(emit.Event{RunID: "r1", Seq: 3, VertexID: "b", Msg: emit.VertexError})
	b.Emit(emit.Event{RunID: "r2", Seq: 1, VertexID: "x", Msg: emit.VertexStart})

	if got := b.History("r1"); len(got) != 3 {
		t.Errorf("r1 history = %d events, want 3", len(got))
	}
	if got := b.History("unknown"); len(got) != 0 {
		t.Errorf("unknown run history = %d events, want 0", len(got))
	}

	t.Run("filter by vertex", func(t *testing.T) {
		got := b.HistoryWithFilter("r1", emit.HistoryFilter{VertexID: "a"})
		if len(got) != 2 {
			t.Errorf("filtered = %d events, want 2", len(got))
		}
	})

	t.Run("filter by msg", func(t *testing.T) {
		got := b.HistoryWithFilter("r1", emit.HistoryFilter{Msg: emit.VertexError})
		if len(got) != 1 || got[0].VertexID != "b" {
			t.Errorf("filtered = %v", got)
		}
	})

	t.Run("filter by seq range", func(t *testing.T) {
		min, max := 2, 3
		got := b.HistoryWithFilter("r1", emit.HistoryFilter{MinSeq: &min, MaxSeq: &max})
		if len(got) != 2 {
			t.Errorf("filtered = %d events, want 2", len(got))
		}
	})

	t.Run("clear one run", func(t *testing.T) {
		b.Clear("r1")
		if len(b.History("r1")) != 0 {
			t.Error("r1 not cleared")
		}
		if len(b.History("r2")) != 1 {
			t.Error("r2 should survive clearing r1")
		}
	})
}

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	l := emit.NewLogEmitter(&buf, false)
	l.Emit(emit.Event{
		RunID:    "run-001",
		Seq:      3,
		VertexID: "model",
		Msg:      emit.VertexStart,
	})

	line := buf.String()
	if !strings.HasPrefix(line, "[vertex_start] runID=run-001 seq=3 vertexID=model") {
		t.Errorf("text line = %q", line)
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := emit.NewLogEmitter(&buf, true)
	l.Emit(emit.Event{
		RunID:    "run-001",
		Seq:      5,
		VertexID: "model",
		Msg:      emit.VertexEnd,
		Meta:     map[string]interface{}{"duration_ms": 12},
	})

	var decoded struct {
		RunID    string                 `json:"runID"`
		Seq      int                    `json:"seq"`
		VertexID string                 `json:"vertexID"`
		Msg      string                 `json:"msg"`
		Meta     map[string]interface{} `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSONL output %q: %v", buf.String(), err)
	}
	if decoded.RunID != "run-001" || decoded.Seq != 5 || decoded.Msg != "vertex_end" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Meta["duration_ms"] != float64(12) {
		t.Errorf("meta = %v", decoded.Meta)
	}
}
