package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/routing"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultRequestTimeout bounds Request when neither the call nor the broker sets a timeout.
const DefaultRequestTimeout = 500 * time.Millisecond

// Broker owns the subscriber registry and sends through a swappable Producer.
//
// Broker is concurrency-safe and contains no global state.
type Broker struct {
	mu sync.RWMutex

	subs *orderedmap.OrderedMap[string, *Subscriber]
	pubs []*Publisher

	// global middleware executed in registration order, before subscriber middleware
	mw []Middleware

	producer   cbroker.Producer
	newID      cbroker.IDGenerator
	propagator cbroker.HeaderPropagator
	timeout    time.Duration
	mocking    bool
	closed     bool
	logger     *slog.Logger
}

// Option configures a Broker instance.
type Option func(*Broker)

// WithRequestTimeout sets the default Request deadline. Negative disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Broker) { b.timeout = d }
}

// WithMiddleware registers broker-wide middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Broker) { b.mw = append(b.mw, mw...) }
}

// WithIDGenerator replaces the correlation id generator.
func WithIDGenerator(g cbroker.IDGenerator) Option {
	return func(b *Broker) {
		if g != nil {
			b.newID = g
		}
	}
}

// WithPropagator injects tracing headers into every outgoing command.
func WithPropagator(p cbroker.HeaderPropagator) Option {
	return func(b *Broker) {
		if p != nil {
			b.propagator = p
		}
	}
}

// New constructs a Broker. producer may be nil until UseProducer is called; logger may be nil.
func New(producer cbroker.Producer, logger *slog.Logger, opts ...Option) *Broker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Broker{
		subs:       orderedmap.New[string, *Subscriber](),
		producer:   producer,
		newID:      message.NewID,
		propagator: cbroker.NopHeaderPropagator{},
		timeout:    DefaultRequestTimeout,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Logger returns the broker logger, never nil.
func (b *Broker) Logger() *slog.Logger { return b.logger }

// IDGenerator returns the correlation id generator.
func (b *Broker) IDGenerator() cbroker.IDGenerator { return b.newID }

// RequestTimeout returns the default Request deadline.
func (b *Broker) RequestTimeout() time.Duration { return b.timeout }

// Subscribe registers handler on queue. Subscribers are matched in registration order.
func (b *Broker) Subscribe(queue topology.Queue, handler HandlerFunc, opts ...SubscriberOption) (*Subscriber, error) {
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: handler is required", queue)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("subscribe %s: %w", queue, berr.ErrBrokerClosed)
	}

	s := &Subscriber{
		id:       message.NewID(),
		queue:    queue,
		exchange: topology.ExchangeOf(""),
		handler:  handler,
	}

	for _, opt := range opts {
		opt(s)
	}

	// broker chain first so the first registered middleware runs first
	s.mw = append(append(make([]Middleware, 0, len(b.mw)+len(s.mw)), b.mw...), s.mw...)
	s.mock.enable(b.mocking)

	b.subs.Set(s.id, s)
	b.logger.Debug("subscriber registered",
		slog.String("id", s.id),
		slog.String("queue", queue.Name),
		slog.String("exchange", s.exchange.String()),
	)

	return s, nil
}

// Subscribers returns a snapshot of the registry in registration order.
func (b *Broker) Subscribers() []*Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Subscriber, 0, b.subs.Len())
	for p := b.subs.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}

	return out
}

// Binders returns the registry as routing binders, for declaring topology on a live broker.
func (b *Broker) Binders() []routing.Binder {
	subs := b.Subscribers()

	out := make([]routing.Binder, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}

	return out
}

// Unsubscribe removes a subscriber. It reports whether the id was registered.
func (b *Broker) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.subs.Delete(id)

	return ok
}

// Publisher declares a publisher bound to destination with default publish options.
func (b *Broker) Publisher(destination string, opts ...cbroker.PublishOption) *Publisher {
	p := &Publisher{b: b, destination: destination, opts: opts}

	b.mu.Lock()
	p.mock.enable(b.mocking)
	b.pubs = append(b.pubs, p)
	b.mu.Unlock()

	return p
}

// Mocking turns call recording on or off for every subscriber and publisher.
// Turning it off also forgets recorded calls.
func (b *Broker) Mocking(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mocking = on

	for p := b.subs.Oldest(); p != nil; p = p.Next() {
		p.Value.mock.enable(on)
		if !on {
			p.Value.mock.Reset()
		}
	}

	for _, p := range b.pubs {
		p.mock.enable(on)
		if !on {
			p.mock.Reset()
		}
	}
}

// Producer returns the current producer, possibly nil.
func (b *Broker) Producer() cbroker.Producer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.producer
}

// UseProducer swaps the producer and returns a func restoring the previous one.
func (b *Broker) UseProducer(p cbroker.Producer) (restore func()) {
	b.mu.Lock()
	prev := b.producer
	b.producer = p
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.producer = prev
		b.mu.Unlock()
	}
}

// Publish sends body to destination through the current producer.
func (b *Broker) Publish(ctx context.Context, body any, destination string, opts ...cbroker.PublishOption) error {
	cmd, err := cbroker.NewPublishCommand(body, destination, opts...)
	if err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}

	return b.PublishCommand(ctx, cmd)
}

// Request sends body to destination and waits for the reply.
func (b *Broker) Request(
	ctx context.Context,
	body any,
	destination string,
	opts ...cbroker.PublishOption,
) (*message.Message, error) {
	cmd, err := cbroker.NewPublishCommand(body, destination, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", destination, err)
	}

	return b.RequestCommand(ctx, cmd)
}

// PublishCommand sends a prepared command.
func (b *Broker) PublishCommand(ctx context.Context, cmd cbroker.PublishCommand) error {
	_, err := b.publish(ctx, cmd)

	return err
}

// RequestCommand sends a prepared command and waits for the reply.
func (b *Broker) RequestCommand(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	_, reply, err := b.request(ctx, cmd)

	return reply, err
}

// publish returns the command as it was handed to the producer.
func (b *Broker) publish(ctx context.Context, cmd cbroker.PublishCommand) (cbroker.PublishCommand, error) {
	p, err := b.prepare(ctx, &cmd)
	if err != nil {
		return cmd, fmt.Errorf("publish %s: %w", cmd.Destination, err)
	}

	return cmd, p.Publish(ctx, cmd)
}

func (b *Broker) request(
	ctx context.Context,
	cmd cbroker.PublishCommand,
) (cbroker.PublishCommand, *message.Message, error) {
	p, err := b.prepare(ctx, &cmd)
	if err != nil {
		return cmd, nil, fmt.Errorf("request %s: %w", cmd.Destination, err)
	}

	if cmd.Timeout == 0 {
		cmd.Timeout = b.timeout
	}

	reply, err := p.Request(ctx, cmd)

	return cmd, reply, err
}

func (b *Broker) prepare(ctx context.Context, cmd *cbroker.PublishCommand) (cbroker.Producer, error) {
	b.mu.RLock()
	p, closed := b.producer, b.closed
	b.mu.RUnlock()

	if closed {
		return nil, berr.ErrBrokerClosed
	}

	if p == nil {
		return nil, berr.ErrNotConnected
	}

	if cmd.CorrelationID == "" {
		cmd.CorrelationID = b.newID()
	}

	injected := map[string]string{}
	b.propagator.Inject(ctx, injected)

	if len(injected) > 0 {
		cmd.Headers = message.CloneHeaders(cmd.Headers)
		if cmd.Headers == nil {
			cmd.Headers = make(amqp.Table, len(injected))
		}

		for k, v := range injected {
			if _, set := cmd.Headers[k]; !set {
				cmd.Headers[k] = v
			}
		}
	}

	return p, nil
}

// Close rejects further publishing and subscribing. It does not close the producer;
// adapters hand out their own cleanup funcs.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	b.logger.Debug("broker closed", slog.Int("subscribers", b.subs.Len()))

	return nil
}
