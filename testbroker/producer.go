package testbroker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/next-trace/scg-testbroker/broker"
	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/routing"
	amqp "github.com/rabbitmq/amqp091-go"
)

// FakeProducer delivers publish commands straight to the subscribers of a Broker.
type FakeProducer struct {
	b        *broker.Broker
	executor Executor
	logger   *slog.Logger
}

var _ cbroker.Producer = (*FakeProducer)(nil)

// Option configures a FakeProducer.
type Option func(*FakeProducer)

// WithExecutor replaces ProcessExecutor.
func WithExecutor(e Executor) Option {
	return func(f *FakeProducer) {
		if e != nil {
			f.executor = e
		}
	}
}

// WithLogger overrides the broker logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *FakeProducer) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFakeProducer returns a producer routing against b's registry.
func NewFakeProducer(b *broker.Broker, opts ...Option) *FakeProducer {
	f := &FakeProducer{b: b, executor: ProcessExecutor, logger: b.Logger()}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Publish invokes every matching subscriber in registration order and stops at the first error,
// which is returned unchanged. ErrSubscriberNotFound is returned when nothing matches.
func (f *FakeProducer) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	msg, subs, err := f.route(cmd)
	if err != nil {
		return fmt.Errorf("publish %s: %w", cmd.Destination, err)
	}

	f.logger.Debug("fake publish",
		slog.String("routing_key", msg.RoutingKey),
		slog.String("exchange", cmd.Exchange.String()),
		slog.String("correlation_id", msg.CorrelationID),
		slog.Int("matched", len(subs)),
	)

	for _, s := range subs {
		if _, err := f.executor.Execute(ctx, s, msg.Clone()); err != nil {
			return err
		}
	}

	return nil
}

// Request invokes the first matching subscriber and waits for its reply until cmd.Timeout
// (zero uses the broker default, negative waits for the caller's context only).
// On expiry the handler is abandoned and ErrTimeout is returned; a late result is discarded.
func (f *FakeProducer) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	msg, subs, err := f.route(cmd)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", cmd.Destination, err)
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = f.b.RequestTimeout()
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	f.logger.Debug("fake request",
		slog.String("routing_key", msg.RoutingKey),
		slog.String("subscriber", subs[0].Queue().Name),
		slog.String("correlation_id", msg.CorrelationID),
		slog.Duration("timeout", timeout),
	)

	type result struct {
		msg *message.Message
		err error
	}

	// buffered so an abandoned handler never blocks on send
	done := make(chan result, 1)

	go func() {
		out, err := f.executor.Execute(callCtx, subs[0], msg.Clone())
		done <- result{msg: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}

		return remap(msg, r.msg), nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.logger.Warn("fake request timed out",
			slog.String("routing_key", msg.RoutingKey),
			slog.Duration("timeout", timeout),
		)

		return nil, fmt.Errorf("request %s after %s: %w",
			cmd.Destination, timeout, errors.Join(berr.ErrTimeout, context.DeadlineExceeded))
	}
}

func (f *FakeProducer) route(cmd cbroker.PublishCommand) (*message.Message, []*broker.Subscriber, error) {
	msg, err := cmd.Message(f.b.IDGenerator())
	if err != nil {
		return nil, nil, err
	}

	subs := routing.Route(f.b.Subscribers(), msg.RoutingKey, msg.Headers, cmd.Exchange)
	if len(subs) == 0 {
		f.logger.Debug("no subscriber matched",
			slog.String("routing_key", msg.RoutingKey),
			slog.String("exchange", cmd.Exchange.String()),
		)

		return nil, nil, fmt.Errorf("exchange %s: %w", cmd.Exchange, berr.ErrSubscriberNotFound)
	}

	return msg, subs, nil
}

// remap carries the reply under the request's routing key. It is not routed again.
func remap(req, res *message.Message) *message.Message {
	out := &message.Message{
		RoutingKey:    req.RoutingKey,
		CorrelationID: req.CorrelationID,
		DeliveryMode:  amqp.Transient,
		Timestamp:     time.Now(),
	}

	if res != nil {
		out.Body = res.Body
		out.Headers = message.CloneHeaders(res.Headers)
		out.ContentType = res.ContentType
		out.ContentEncoding = res.ContentEncoding

		if res.CorrelationID != "" {
			out.CorrelationID = res.CorrelationID
		}
	}

	out.MessageID = out.CorrelationID

	return out
}
