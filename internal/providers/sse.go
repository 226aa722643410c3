package providers

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one server-sent event: an optional event name and the
// concatenated data payload.
type sseEvent struct {
	Event string
	Data  string
}

// sseScanner reads server-sent events from a response body. It understands
// the subset of the SSE framing the providers emit: "event:" and "data:"
// lines separated by blank lines. Comment lines (leading colon) are skipped.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	// Individual data lines can carry whole JSON payloads.
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseScanner{scanner: sc}
}

// Next returns the next event, or io.EOF when the stream ends.
func (s *sseScanner) Next() (sseEvent, error) {
	var ev sseEvent
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if ev.Event != "" || len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, ":"):
			// comment / keepalive
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(line[len("data:"):]))
		}
	}
	if err := s.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	if ev.Event != "" || len(data) > 0 {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return sseEvent{}, io.EOF
}
