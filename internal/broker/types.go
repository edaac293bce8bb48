package broker

import (
	"context"

	"telinsights/pkg/models"
)

// Producer publishes envelopes. The alert publisher and the DLQ path both
// write through it.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer delivers envelopes from one topic to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one envelope. Errors implementing retry.FatalError
// skip the remaining attempts and go straight to the DLQ.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
