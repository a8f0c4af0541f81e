package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/next-trace/scg-testbroker/broker"
	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// fakes

type fakeProducer struct {
	published []cbroker.PublishCommand
	requested []cbroker.PublishCommand
	err       error
}

func (f *fakeProducer) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	f.published = append(f.published, cmd)
	return f.err
}

func (f *fakeProducer) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	f.requested = append(f.requested, cmd)
	if f.err != nil {
		return nil, f.err
	}

	return message.New("pong", message.WithCorrelationID(cmd.CorrelationID))
}

type tracePropagator struct{}

func (tracePropagator) Inject(ctx context.Context, h map[string]string) { h["traceparent"] = "00-abc" }

func noop(ctx context.Context, msg *message.Message) (any, error) { return nil, nil }

func seq(prefix string) cbroker.IDGenerator {
	n := 0

	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

func Test_SubscribeOrderAndUnsubscribe(t *testing.T) {
	b := broker.New(nil, nil)

	for _, q := range []string{"a", "b", "c"} {
		if _, err := b.Subscribe(topology.NewQueue(q), noop); err != nil {
			t.Fatalf("subscribe %s: %v", q, err)
		}
	}

	subs := b.Subscribers()
	if len(subs) != 3 {
		t.Fatalf("want 3 subscribers, got %d", len(subs))
	}

	for i, want := range []string{"a", "b", "c"} {
		if subs[i].Queue().Name != want {
			t.Fatalf("subs[%d]=%s want %s", i, subs[i].Queue().Name, want)
		}
	}

	if !b.Unsubscribe(subs[1].ID()) {
		t.Fatal("unsubscribe returned false")
	}

	if b.Unsubscribe(subs[1].ID()) {
		t.Fatal("second unsubscribe returned true")
	}

	subs = b.Subscribers()
	if len(subs) != 2 || subs[0].Queue().Name != "a" || subs[1].Queue().Name != "c" {
		t.Fatalf("unexpected registry after unsubscribe: %d", len(subs))
	}

	if _, err := b.Subscribe(topology.NewQueue("x"), nil); err == nil {
		t.Fatal("want error for nil handler")
	}
}

func Test_SubscriberDefaults(t *testing.T) {
	b := broker.New(nil, nil)

	s, _ := b.Subscribe(topology.NewQueue("q"), noop)
	if !s.Exchange().IsDefault() {
		t.Fatalf("want default exchange, got %s", s.Exchange())
	}

	s, _ = b.Subscribe(topology.NewQueue("q"), noop,
		broker.WithExchange("logs"),
		broker.WithBindArgs(amqp.Table{"x-match": "any", "k": "v"}),
	)

	if s.Exchange().Kind != topology.KindDirect || s.Exchange().Name != "logs" {
		t.Fatalf("bare exchange name should be direct, got %+v", s.Exchange())
	}

	if s.Binding().Rule() != topology.MatchAny || s.Binding().Headers["k"] != "v" {
		t.Fatalf("binding=%+v", s.Binding())
	}
}

func Test_PublishErrors(t *testing.T) {
	b := broker.New(nil, nil)

	err := b.Publish(t.Context(), "hi", "q")
	if !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	_, err = b.Request(t.Context(), "hi", "q")
	if !errors.Is(err, berr.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	b.UseProducer(&fakeProducer{})
	_ = b.Close()

	if err := b.Publish(t.Context(), "hi", "q"); !errors.Is(err, berr.ErrBrokerClosed) {
		t.Fatalf("want ErrBrokerClosed, got %v", err)
	}

	if _, err := b.Subscribe(topology.NewQueue("q"), noop); !errors.Is(err, berr.ErrBrokerClosed) {
		t.Fatalf("want ErrBrokerClosed, got %v", err)
	}
}

func Test_PublishFillsCommand(t *testing.T) {
	p := &fakeProducer{}
	b := broker.New(p, nil, broker.WithIDGenerator(seq("id-")), broker.WithPropagator(tracePropagator{}))

	err := b.Publish(t.Context(), "hi", "orders",
		cbroker.WithExchange("ex"),
		cbroker.WithHeaders(amqp.Table{"tenant": "t1"}),
	)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(p.published) != 1 {
		t.Fatalf("want 1 published, got %d", len(p.published))
	}

	cmd := p.published[0]
	if cmd.Destination != "orders" || cmd.Exchange.Name != "ex" {
		t.Fatalf("cmd=%+v", cmd)
	}

	if cmd.CorrelationID != "id-1" {
		t.Fatalf("correlation id=%q", cmd.CorrelationID)
	}

	if cmd.Headers["tenant"] != "t1" || cmd.Headers["traceparent"] != "00-abc" {
		t.Fatalf("headers=%v", cmd.Headers)
	}

	if err := b.Publish(t.Context(), "hi", "orders", cbroker.WithCorrelationID("mine")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := p.published[1].CorrelationID; got != "mine" {
		t.Fatalf("explicit correlation id overwritten: %q", got)
	}
}

func Test_RequestTimeoutDefaults(t *testing.T) {
	p := &fakeProducer{}
	b := broker.New(p, nil)

	if _, err := b.Request(t.Context(), "ping", "rpc"); err != nil {
		t.Fatalf("request: %v", err)
	}

	if got := p.requested[0].Timeout; got != broker.DefaultRequestTimeout {
		t.Fatalf("timeout=%v", got)
	}

	b = broker.New(p, nil, broker.WithRequestTimeout(time.Second))

	_, _ = b.Request(t.Context(), "ping", "rpc")
	_, _ = b.Request(t.Context(), "ping", "rpc", cbroker.WithTimeout(-1))

	if got := p.requested[1].Timeout; got != time.Second {
		t.Fatalf("broker timeout=%v", got)
	}

	if got := p.requested[2].Timeout; got != -1 {
		t.Fatalf("call timeout=%v", got)
	}
}

func Test_UseProducerRestore(t *testing.T) {
	first := &fakeProducer{}
	b := broker.New(first, nil)

	second := &fakeProducer{}
	restore := b.UseProducer(second)

	_ = b.Publish(t.Context(), "x", "q")
	restore()
	_ = b.Publish(t.Context(), "x", "q")

	if len(first.published) != 1 || len(second.published) != 1 {
		t.Fatalf("first=%d second=%d", len(first.published), len(second.published))
	}

	if b.Producer() != first {
		t.Fatal("producer not restored")
	}
}
