package progress

import "sync"

// Sink receives the events of one run in order.
// Emit must not block indefinitely; a run never waits on a slow consumer
// that has gone away.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder is a Sink that keeps every event. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kind of every recorded event, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Stream hands events from a producer goroutine to a consumer over a channel.
// The channel is closed after the terminal event. Once the consumer calls
// Detach, Emit stops delivering and returns immediately, so the producer can
// run to completion after a client disconnects.
type Stream struct {
	mu         sync.Mutex
	events     chan Event
	done       chan struct{}
	detachOnce sync.Once
	finished   bool
}

// NewStream creates a Stream whose channel buffers up to buffer events.
func NewStream(buffer int) *Stream {
	return &Stream{
		events: make(chan Event, max(buffer, 0)),
		done:   make(chan struct{}),
	}
}

// Emit delivers e unless the consumer has detached. Events after the
// terminal event are ignored.
func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	select {
	case <-s.done:
	default:
		select {
		case s.events <- e:
		case <-s.done:
		}
	}
	if e.Terminal() {
		s.finished = true
		close(s.events)
	}
}

// Events is the consumer side of the stream.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Detach tells the producer nobody is listening anymore.
func (s *Stream) Detach() {
	s.detachOnce.Do(func() { close(s.done) })
}
