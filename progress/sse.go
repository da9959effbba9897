package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ContentType is the media type of a progress stream.
const ContentType = "text/event-stream"

// Writer encodes events as SSE frames. Each frame is written with a single
// Write and flushed, so a reader never observes half a frame.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a Writer. If w implements http.Flusher every frame is flushed.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent writes e as one "data: <json>\n\n" frame.
func (pw *Writer) WriteEvent(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Kind, err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	if _, err := pw.w.Write(frame); err != nil {
		return err
	}
	if pw.flusher != nil {
		pw.flusher.Flush()
	}
	return nil
}

// Scanner reads progress events from an SSE stream.
//
// Events are delimited by blank lines. Lines starting with "data:" carry the
// payload and multiple data lines are joined with newlines. Comment lines and
// other fields are ignored.
//
//	scanner := progress.NewScanner(resp.Body)
//	for scanner.Next() {
//	    event := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	reader   *bufio.Reader
	current  Event
	terminal bool
	err      error
}

// NewScanner creates a scanner that reads events from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false once the terminal event
// has been consumed, at end of stream, or on error.
func (s *Scanner) Next() bool {
	if s.terminal || s.err != nil {
		return false
	}

	data, ok := s.nextData()
	if !ok {
		if s.err == nil {
			s.err = ErrStreamEnded
		}
		return false
	}

	var e Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		s.err = fmt.Errorf("decoding progress event: %w", err)
		return false
	}
	s.current = e
	s.terminal = e.Terminal()
	return true
}

// nextData returns the joined data lines of the next frame.
func (s *Scanner) nextData() (string, bool) {
	var dataLines []string
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err != io.EOF {
				s.err = err
				return "", false
			}
			// Final frame without a trailing blank line
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), true
			}
			return "", false
		}

		line = strings.TrimRight(line, "\r\n")

		// Blank line = frame boundary
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), true
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field == "data" {
			dataLines = append(dataLines, strings.TrimPrefix(value, " "))
		}
	}
}

// Event returns the most recently decoded event. Only valid after Next returns true.
func (s *Scanner) Event() Event {
	return s.current
}

// Err returns the first error encountered. It is nil after a terminal event
// was read, and ErrStreamEnded if the stream closed before one.
func (s *Scanner) Err() error {
	return s.err
}
