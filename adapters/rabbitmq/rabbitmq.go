package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/routing"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DirectReplyTo is the pseudo-queue RabbitMQ uses for direct reply-to.
const DirectReplyTo = "amq.rabbitmq.reply-to"

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Publishing amqp.Publishing
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Requester is implemented by publishers able to wait for a reply.
type Requester interface {
	Request(ctx context.Context, m PubMsg) (amqp.Delivery, error)
}

// Declarer creates broker-side topology.
type Declarer interface {
	DeclareExchange(ctx context.Context, e topology.Exchange) error
	DeclareQueue(ctx context.Context, q topology.Queue) error
	BindQueue(ctx context.Context, q topology.Queue, e topology.Exchange, b topology.Binding) error
}

type Adapter struct {
	Publisher  Publisher
	Propagator cbroker.HeaderPropagator // optional, for context propagation into headers
}

var _ cbroker.Producer = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cbroker.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

func (a *Adapter) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	m, err := a.prepare(ctx, cmd, "publish")
	if err != nil {
		return err
	}

	if err := a.Publisher.Publish(ctx, m); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func (a *Adapter) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	m, err := a.prepare(ctx, cmd, "request")
	if err != nil {
		return nil, err
	}

	rq, ok := a.Publisher.(Requester)
	if !ok {
		return nil, fmt.Errorf("rabbitmq request: %w", berr.ErrRequestUnsupported)
	}

	reqCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc

		reqCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	m.Publishing.ReplyTo = DirectReplyTo

	d, err := rq.Request(reqCtx, m)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("rabbitmq request %s: %w", m.RoutingKey, errors.Join(berr.ErrTimeout, err))
		}

		return nil, fmt.Errorf("rabbitmq request %s: %w", m.RoutingKey, errors.Join(berr.ErrPublishFailed, err))
	}

	reply := message.FromDelivery(d)
	reply.RoutingKey = cmd.Destination

	if reply.CorrelationID == "" {
		reply.CorrelationID = m.Publishing.CorrelationId
	}

	return reply, nil
}

// Declare creates the queue, exchange and binding of every binder.
// The default exchange is never declared.
func Declare(ctx context.Context, d Declarer, binders ...routing.Binder) error {
	for _, b := range binders {
		q, e := b.Queue(), b.Exchange()

		if err := d.DeclareQueue(ctx, q); err != nil {
			return fmt.Errorf("rabbitmq declare queue %s: %w", q, err)
		}

		if e.IsDefault() {
			continue
		}

		if err := d.DeclareExchange(ctx, e); err != nil {
			return fmt.Errorf("rabbitmq declare exchange %s: %w", e, err)
		}

		if err := d.BindQueue(ctx, q, e, b.Binding()); err != nil {
			return fmt.Errorf("rabbitmq bind %s to %s: %w", q, e, err)
		}
	}

	return nil
}

// internal helpers

func (a *Adapter) prepare(ctx context.Context, cmd cbroker.PublishCommand, label string) (PubMsg, error) {
	if err := ctx.Err(); err != nil {
		return PubMsg{}, err
	}

	if a.Publisher == nil {
		return PubMsg{}, fmt.Errorf("rabbitmq %s: %w", label, berr.ErrNotConnected)
	}

	msg, err := cmd.Message(nil)
	if err != nil {
		return PubMsg{}, fmt.Errorf("rabbitmq %s serialize: %w", label, err)
	}

	// Inject tracing context via configured propagator (keeps adapter decoupled)
	if a.Propagator != nil {
		injected := map[string]string{}
		a.Propagator.Inject(ctx, injected)

		if len(injected) > 0 && msg.Headers == nil {
			msg.Headers = amqp.Table{}
		}

		for k, v := range injected {
			msg.Headers[k] = v
		}
	}

	return PubMsg{
		Exchange:   cmd.Exchange.Name,
		RoutingKey: cmd.Destination,
		Publishing: msg.Publishing(),
	}, nil
}

// exchangeArgs renders the declare arguments of plugin exchange kinds.
func exchangeArgs(e topology.Exchange) amqp.Table {
	if e.Kind != topology.KindDelayed {
		return nil
	}

	return amqp.Table{"x-delayed-type": string(e.RoutingKind())}
}

// bindingKey is the routing key a queue binds with. Hash exchanges read it as a weight.
func bindingKey(q topology.Queue, e topology.Exchange) string {
	switch e.RoutingKind() {
	case topology.KindConsistentHash:
		return "1"
	case topology.KindFanout, topology.KindHeaders:
		return ""
	default:
		return q.Routing()
	}
}

type amqpChannel struct{ ch *amqp.Channel }

// NewWithAMQPChannel publishes and declares on an existing channel. Requests are not supported.
func NewWithAMQPChannel(ch *amqp.Channel) (*Adapter, Declarer) {
	c := amqpChannel{ch: ch}

	return &Adapter{Publisher: c}, c
}

func (c amqpChannel) Publish(ctx context.Context, m PubMsg) error {
	return c.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, m.Publishing)
}

func (c amqpChannel) DeclareExchange(ctx context.Context, e topology.Exchange) error {
	return c.ch.ExchangeDeclare(e.Name, string(e.Kind), e.Durable, e.AutoDelete, false, false, exchangeArgs(e))
}

func (c amqpChannel) DeclareQueue(ctx context.Context, q topology.Queue) error {
	_, err := c.ch.QueueDeclare(q.Name, q.Durable, q.AutoDelete, q.Exclusive, false, nil)
	return err
}

func (c amqpChannel) BindQueue(ctx context.Context, q topology.Queue, e topology.Exchange, b topology.Binding) error {
	return c.ch.QueueBind(q.Name, bindingKey(q, e), e.Name, false, b.Args())
}
