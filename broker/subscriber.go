package broker

import (
	"context"
	"maps"

	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Subscriber is a registered handler with its queue, exchange and binding.
// It satisfies routing.Binder.
type Subscriber struct {
	id       string
	queue    topology.Queue
	exchange topology.Exchange
	binding  topology.Binding

	handler      HandlerFunc
	mw           []Middleware
	replyHeaders amqp.Table

	mock Mock[*message.Message]
}

// SubscriberOption configures a Subscriber at registration.
type SubscriberOption func(*Subscriber)

// WithExchange binds the subscriber through an exchange. A bare name is a direct exchange.
func WithExchange[T string | topology.Exchange](e T) SubscriberOption {
	return func(s *Subscriber) { s.exchange = topology.ExchangeOf(e) }
}

// WithBinding sets the headers binding used by headers exchanges.
func WithBinding(b topology.Binding) SubscriberOption {
	return func(s *Subscriber) { s.binding = b }
}

// WithBindArgs sets the binding from raw AMQP binding arguments (x-match plus header values).
func WithBindArgs(args amqp.Table) SubscriberOption {
	return func(s *Subscriber) { s.binding = topology.BindingFromArgs(args) }
}

// WithSubscriberMiddleware appends middleware run after the broker-wide chain.
func WithSubscriberMiddleware(mw ...Middleware) SubscriberOption {
	return func(s *Subscriber) { s.mw = append(s.mw, mw...) }
}

// WithReplyHeaders adds static headers to every reply built from this subscriber's results.
func WithReplyHeaders(h amqp.Table) SubscriberOption {
	return func(s *Subscriber) {
		if s.replyHeaders == nil {
			s.replyHeaders = make(amqp.Table, len(h))
		}

		maps.Copy(s.replyHeaders, h)
	}
}

// ID returns the registry key.
func (s *Subscriber) ID() string { return s.id }

// Queue returns the bound queue.
func (s *Subscriber) Queue() topology.Queue { return s.queue }

// Exchange returns the bound exchange.
func (s *Subscriber) Exchange() topology.Exchange { return s.exchange }

// Binding returns the headers binding.
func (s *Subscriber) Binding() topology.Binding { return s.binding }

// Mock returns the call recorder. It only records while the broker has mocking enabled.
func (s *Subscriber) Mock() *Mock[*message.Message] { return &s.mock }

// Process runs the handler through its middleware chain and builds the reply message.
// Handler errors are returned unchanged.
func (s *Subscriber) Process(ctx context.Context, in *message.Message) (*message.Message, error) {
	s.mock.record(in)

	final := s.handler
	for i := len(s.mw) - 1; i >= 0; i-- {
		final = s.mw[i](final)
	}

	res, err := final(ctx, in)
	if err != nil {
		return nil, err
	}

	return s.reply(in, res)
}

func (s *Subscriber) reply(in *message.Message, res any) (*message.Message, error) {
	body := res
	corr := in.CorrelationID
	headers := message.CloneHeaders(s.replyHeaders)

	var r *Response

	switch v := res.(type) {
	case Response:
		r = &v
	case *Response:
		r = v
	}

	if r != nil {
		body = r.Body
		if r.CorrelationID != "" {
			corr = r.CorrelationID
		}

		if len(r.Headers) > 0 {
			if headers == nil {
				headers = make(amqp.Table, len(r.Headers))
			}

			maps.Copy(headers, r.Headers)
		}
	}

	return message.New(body,
		message.WithRoutingKey(in.RoutingKey),
		message.WithHeaders(headers),
		message.WithCorrelationID(corr),
	)
}
