package broker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/next-trace/scg-testbroker/broker"
	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

type order struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func (o order) Validate() error {
	if o.Total < 0 {
		return errors.New("negative total")
	}

	return nil
}

type receipt struct {
	OrderID string `json:"order_id"`
}

func trace(name string, log *[]string) broker.Middleware {
	return func(next broker.HandlerFunc) broker.HandlerFunc {
		return func(ctx context.Context, msg *message.Message) (any, error) {
			*log = append(*log, name)
			return next(ctx, msg)
		}
	}
}

func Test_ProcessMiddlewareOrder(t *testing.T) {
	var log []string

	b := broker.New(nil, nil, broker.WithMiddleware(trace("global", &log)))

	s, _ := b.Subscribe(topology.NewQueue("q"),
		func(ctx context.Context, msg *message.Message) (any, error) {
			log = append(log, "handler")
			return nil, nil
		},
		broker.WithSubscriberMiddleware(trace("local1", &log), trace("local2", &log)),
	)

	in, _ := message.New("x")
	if _, err := s.Process(t.Context(), in); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := strings.Join(log, ","); got != "global,local1,local2,handler" {
		t.Fatalf("order=%s", got)
	}
}

func Test_ProcessReply(t *testing.T) {
	b := broker.New(nil, nil)

	plain, _ := b.Subscribe(topology.NewQueue("plain"),
		func(ctx context.Context, msg *message.Message) (any, error) { return "pong", nil },
		broker.WithReplyHeaders(amqp.Table{"svc": "echo"}),
	)

	in, _ := message.New("ping", message.WithRoutingKey("plain"), message.WithCorrelationID("c-1"))

	out, err := plain.Process(t.Context(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if out.Text() != "pong" || out.CorrelationID != "c-1" || out.RoutingKey != "plain" {
		t.Fatalf("reply=%+v", out)
	}

	if out.Headers["svc"] != "echo" {
		t.Fatalf("reply headers=%v", out.Headers)
	}

	custom, _ := b.Subscribe(topology.NewQueue("custom"),
		func(ctx context.Context, msg *message.Message) (any, error) {
			return broker.Response{Body: "ok", Headers: amqp.Table{"k": "v"}, CorrelationID: "c-2"}, nil
		},
	)

	out, err = custom.Process(t.Context(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if out.Text() != "ok" || out.CorrelationID != "c-2" || out.Headers["k"] != "v" {
		t.Fatalf("reply=%+v", out)
	}
}

func Test_ProcessPassesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	b := broker.New(nil, nil)

	s, _ := b.Subscribe(topology.NewQueue("q"),
		func(ctx context.Context, msg *message.Message) (any, error) { return nil, boom },
	)

	in, _ := message.New("x")
	if _, err := s.Process(t.Context(), in); err != boom { //nolint:errorlint
		t.Fatalf("want the handler error unchanged, got %v", err)
	}
}

func Test_HandleTyped(t *testing.T) {
	b := broker.New(nil, nil)

	var got order

	s, _ := b.Subscribe(topology.NewQueue("orders"),
		broker.Handle(func(ctx context.Context, o order) (receipt, error) {
			got = o
			return receipt{OrderID: o.ID}, nil
		}),
	)

	in, _ := message.New(order{ID: "o-1", Total: 3})

	out, err := s.Process(t.Context(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if got.ID != "o-1" || got.Total != 3 {
		t.Fatalf("decoded=%+v", got)
	}

	var r receipt
	if err := out.Decode(&r); err != nil || r.OrderID != "o-1" {
		t.Fatalf("reply=%s err=%v", out.Body, err)
	}

	bad, _ := message.New("not json")
	if _, err := s.Process(t.Context(), bad); !errors.Is(err, berr.ErrValidationFailed) {
		t.Fatalf("want ErrValidationFailed for undecodable body, got %v", err)
	}

	invalid, _ := message.New(order{ID: "o-2", Total: -1})
	if _, err := s.Process(t.Context(), invalid); !errors.Is(err, berr.ErrValidationFailed) {
		t.Fatalf("want ErrValidationFailed for invalid payload, got %v", err)
	}
}

func Test_ConsumeText(t *testing.T) {
	b := broker.New(nil, nil)

	var got string

	s, _ := b.Subscribe(topology.NewQueue("text"),
		broker.Consume(func(ctx context.Context, s string) error {
			got = s
			return nil
		}),
	)

	in, _ := message.New("hello")

	out, err := s.Process(t.Context(), in)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if got != "hello" || len(out.Body) != 0 {
		t.Fatalf("got=%q reply=%q", got, out.Body)
	}
}

func Test_Mocks(t *testing.T) {
	p := &fakeProducer{}
	b := broker.New(p, nil)

	s, _ := b.Subscribe(topology.NewQueue("q"), noop)
	pub := b.Publisher("q", cbroker.WithAppID("svc"))

	in, _ := message.New("first")
	_, _ = s.Process(t.Context(), in)

	if s.Mock().CallCount() != 0 {
		t.Fatal("mock recorded while disabled")
	}

	b.Mocking(true)

	late, _ := b.Subscribe(topology.NewQueue("late"), noop)
	if !late.Mock().Enabled() {
		t.Fatal("subscriber registered after Mocking(true) should record")
	}

	in, _ = message.New("second")
	_, _ = s.Process(t.Context(), in)

	if err := pub.Publish(t.Context(), "body", cbroker.WithPriority(3)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	last, ok := s.Mock().Last()
	if !ok || last.Text() != "second" || s.Mock().CallCount() != 1 {
		t.Fatalf("subscriber mock: count=%d", s.Mock().CallCount())
	}

	cmd, ok := pub.Mock().Last()
	if !ok || cmd.AppID != "svc" || cmd.Priority != 3 || cmd.Destination != "q" {
		t.Fatalf("publisher mock: %+v", cmd)
	}

	b.Mocking(false)

	if s.Mock().CallCount() != 0 || len(pub.Mock().Calls()) != 0 {
		t.Fatal("mocks not reset when disabled")
	}
}

func Test_PublisherDoesNotRecordFailures(t *testing.T) {
	p := &fakeProducer{err: berr.ErrSubscriberNotFound}
	b := broker.New(p, nil)
	b.Mocking(true)

	pub := b.Publisher("nowhere")
	if err := pub.Publish(t.Context(), "x"); !errors.Is(err, berr.ErrSubscriberNotFound) {
		t.Fatalf("want ErrSubscriberNotFound, got %v", err)
	}

	if pub.Mock().CallCount() != 0 {
		t.Fatal("failed publish recorded")
	}
}

func Test_PublisherRecordsSentCommand(t *testing.T) {
	p := &fakeProducer{}
	b := broker.New(p, nil, broker.WithIDGenerator(seq("corr-")), broker.WithPropagator(tracePropagator{}))
	b.Mocking(true)

	pub := b.Publisher("orders")
	if err := pub.Publish(t.Context(), "x"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	cmd, ok := pub.Mock().Last()
	if !ok || cmd.CorrelationID != "corr-1" || cmd.CorrelationID != p.published[0].CorrelationID {
		t.Fatalf("recorded correlation id=%q, sent=%q", cmd.CorrelationID, p.published[0].CorrelationID)
	}

	if cmd.Headers["traceparent"] != "00-abc" {
		t.Fatalf("recorded headers=%v", cmd.Headers)
	}

	if _, err := pub.Request(t.Context(), "y"); err != nil {
		t.Fatalf("request: %v", err)
	}

	cmd, _ = pub.Mock().Last()
	if cmd.CorrelationID != "corr-2" || cmd.Timeout != broker.DefaultRequestTimeout {
		t.Fatalf("recorded request: id=%q timeout=%s", cmd.CorrelationID, cmd.Timeout)
	}
}
