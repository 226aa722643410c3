package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceWriter records run events to a JSONL file for debugging and replay.
// Each event is written as a single JSON line, flushed immediately.
type TraceWriter struct {
	mu     sync.Mutex
	writer io.Writer
	file   *os.File // non-nil if we opened the file ourselves
	seq    int64
}

// traceHeader is the first line of a trace file.
type traceHeader struct {
	Version   int       `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// traceEvent is one recorded event.
type traceEvent struct {
	Seq  int64     `json:"seq"`
	Time time.Time `json:"time"`
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
}

// NewTraceWriter opens (creating or truncating) the trace file at path and
// writes the header line.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := &TraceWriter{writer: f, file: f}
	if err := tw.writeLine(traceHeader{Version: 1, StartedAt: time.Now().UTC()}); err != nil {
		f.Close()
		return nil, err
	}
	return tw, nil
}

// NewTraceWriterTo writes trace lines to an existing writer; used in tests.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{writer: w}
}

// Emit appends one event line. Marshal failures drop the event rather than
// failing the run.
func (t *TraceWriter) Emit(eventType string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	_ = t.writeLine(traceEvent{
		Seq:  t.seq,
		Time: time.Now().UTC(),
		Type: eventType,
		Data: data,
	})
}

// Close closes the underlying file when the writer owns one.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func (t *TraceWriter) writeLine(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	_, err = t.writer.Write(payload)
	return err
}
