package core

import (
	"context"
	"sync"
)

// EventSink receives the ordered event stream of a request.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// Discarder is implemented by sinks that can withdraw the events of a
// request. The engine calls Discard when a request is cancelled after some of
// its events were published. Sinks that cannot retract, such as ChannelSink,
// leave it to the consumer to drop what it received.
type Discarder interface {
	Discard(ctx context.Context, requestID string) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// NopSink discards every event.
type NopSink struct{}

// Publish discards ev.
func (NopSink) Publish(context.Context, Event) error { return nil }

// ChannelSink forwards events to a channel, blocking until the receiver is
// ready or ctx is done.
type ChannelSink chan<- Event

// Publish sends ev on the channel.
func (c ChannelSink) Publish(ctx context.Context, ev Event) error {
	select {
	case c <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream records published events. It is safe for concurrent use.
type Stream struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends ev.
func (s *Stream) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Discard drops every recorded event of requestID.
func (s *Stream) Discard(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.RequestID != requestID {
			kept = append(kept, ev)
		}
	}
	clear(s.events[len(kept):])
	s.events = kept
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *Stream) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Len returns the number of recorded events.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
