package progress

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Encode writes e in Server-Sent Events framing:
//
//	event: <kind>
//	data: <payload>
//
// Multi-line payloads are split across data lines.
func Encode(w io.Writer, e Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", e.Kind)
	for _, line := range strings.Split(e.Data(), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Stream is a Sink writing each event to an HTTP response as it arrives.
type Stream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	err     error
}

// NewStream prepares w for an event stream and writes the response headers.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}, nil
}

// Emit writes and flushes e. After the first write error the stream goes quiet;
// the caller's context is expected to be cancelled by then.
func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if s.err = Encode(s.w, e); s.err != nil {
		return
	}
	s.flusher.Flush()
}

// Err returns the first write error, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
