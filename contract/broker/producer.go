package broker

import (
	"context"

	"github.com/next-trace/scg-testbroker/message"
)

// Producer sends publish commands to a broker, live or emulated.
// Library users get one from an adapter; tests swap in testbroker.FakeProducer.
type Producer interface {
	// Publish delivers the command's message. Emulated producers fail with
	// ErrSubscriberNotFound when nothing would receive it.
	Publish(ctx context.Context, cmd PublishCommand) error
	// Request delivers the message and waits for the reply until cmd.Timeout.
	Request(ctx context.Context, cmd PublishCommand) (*message.Message, error)
}

// IDGenerator produces process-unique ids for messages published without a correlation id.
type IDGenerator func() string
