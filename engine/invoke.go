package engine

import (
	"context"
	"errors"

	"github.com/hupe1980/finmesh/core"
)

// Invoke runs req asynchronously. Events stream on the returned channel as
// stages complete, ending with the orchestrator's result event that carries
// the answer. Both channels are closed when the run ends. A cancelled run
// delivers ctx.Err() on the error channel; the events received before that
// belong to an abandoned request and should be dropped by the consumer.
// Configured sinks implementing core.Discarder have them withdrawn.
//
// Example:
//
//	id, events, errs := eng.Invoke(ctx, engine.Request{Query: q})
//	for ev := range events {
//	    fmt.Println(id, ev.Agent, ev.Message())
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
func (e *Engine) Invoke(ctx context.Context, req Request) (string, <-chan core.Event, <-chan error) {
	id := core.NewID()

	eventsCh := make(chan core.Event, e.bufferSize)
	errorsCh := make(chan error, 1)

	go func() {
		defer func() {
			close(eventsCh)
			close(errorsCh)
		}()

		sink := teeSink{e.sink, core.ChannelSink(eventsCh)}
		if _, err := e.run(ctx, id, req, sink); err != nil {
			errorsCh <- err
		}
	}()

	return id, eventsCh, errorsCh
}

// InvokeSync collects every event of an Invoke call.
func (e *Engine) InvokeSync(ctx context.Context, req Request) (string, []core.Event, error) {
	id, eventsCh, errorsCh := e.Invoke(ctx, req)

	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}

	return id, events, <-errorsCh
}

// teeSink publishes to every sink, stopping at the first error.
type teeSink []core.EventSink

// Discard forwards to every member that supports it.
func (t teeSink) Discard(ctx context.Context, requestID string) error {
	var errs []error
	for _, s := range t {
		if d, ok := s.(core.Discarder); ok {
			errs = append(errs, d.Discard(ctx, requestID))
		}
	}
	return errors.Join(errs...)
}

func (t teeSink) Publish(ctx context.Context, ev core.Event) error {
	for _, s := range t {
		if err := s.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
