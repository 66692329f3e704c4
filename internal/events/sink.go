package events

import (
	"context"
	"errors"
)

// Sink receives published records.
type Sink interface {
	Publish(ctx context.Context, r Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record) error

func (f SinkFunc) Publish(ctx context.Context, r Record) error { return f(ctx, r) }

// Fanout publishes every record to each sink in order. All sinks are
// attempted; their errors are joined.
type Fanout []Sink

func (fs Fanout) Publish(ctx context.Context, r Record) error {
	r.EnsureID()
	var errs []error
	for _, s := range fs {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
