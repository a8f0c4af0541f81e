package nats

import (
	"context"
	"errors"
	"fmt"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
)

// Client is a minimal NATS-like interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
	// Request publishes and waits for a single reply until ctx is done.
	Request(ctx context.Context, subject string, data []byte, headers map[string]string) (
		reply []byte, replyHeaders map[string]string, err error)
}

// Adapter implements cbroker.Producer using an injected NATS-like Client.
// Subjects are the routing key, prefixed with the exchange name for non-default exchanges.
type Adapter struct {
	Client Client
}

// Ensure Adapter implements the producer contract.
var _ cbroker.Producer = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	msg, err := a.prepare(ctx, cmd, "publish")
	if err != nil {
		return err
	}

	if err := a.Client.Publish(cbroker.Subject(cmd), msg.Body, cbroker.TransportHeaders(msg)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func (a *Adapter) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	msg, err := a.prepare(ctx, cmd, "request")
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc

		reqCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	subj := cbroker.Subject(cmd)

	data, h, err := a.Client.Request(reqCtx, subj, msg.Body, cbroker.TransportHeaders(msg))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("nats request %s: %w", subj, errors.Join(berr.ErrTimeout, err))
		}

		return nil, fmt.Errorf("nats request %s: %w", subj, errors.Join(berr.ErrPublishFailed, err))
	}

	reply := cbroker.MessageFromTransport(cmd.Destination, data, h)
	if reply.CorrelationID == "" {
		reply.CorrelationID = msg.CorrelationID
	}

	return reply, nil
}

func (a *Adapter) prepare(ctx context.Context, cmd cbroker.PublishCommand, label string) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.Client == nil {
		return nil, fmt.Errorf("nats %s: %w", label, berr.ErrNotConnected)
	}

	msg, err := cmd.Message(nil)
	if err != nil {
		return nil, fmt.Errorf("nats %s serialize: %w", label, err)
	}

	return msg, nil
}
