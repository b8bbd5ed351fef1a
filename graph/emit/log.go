package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing structured log output to a
// writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable key=value lines
//   - JSON mode: one JSON object per line (JSONL)
//
// Example text output:
//
//	[vertex_start] runID=run-001 seq=3 vertexID=model
//
// Example JSON output:
//
//	{"runID":"run-001","seq":3,"vertexID":"model","msg":"vertex_start","meta":null}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer. A nil
// writer defaults to os.Stdout. jsonMode selects JSONL output over text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID    string                 `json:"runID"`
		Seq      int                    `json:"seq"`
		VertexID string                 `json:"vertexID"`
		Msg      string                 `json:"msg"`
		Meta     map[string]interface{} `json:"meta"`
	}{
		RunID:    event.RunID,
		Seq:      event.Seq,
		VertexID: event.VertexID,
		Msg:      event.Msg,
		Meta:     event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] runID=%s seq=%d vertexID=%s",
		event.Msg, event.RunID, event.Seq, event.VertexID)

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprint(l.writer, "\n")
}
