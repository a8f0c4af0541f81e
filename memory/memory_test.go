package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-testbroker/broker"
	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/topology"
)

type greeting struct {
	Name string `json:"name"`
}

func TestNewMemoryBroker_BasicFlow(t *testing.T) {
	b, cleanup := New(nil)
	defer cleanup()

	ctx := t.Context()

	// Subscribe and publish
	count := 0
	if _, err := b.Subscribe(topology.NewQueue("greet"), broker.Consume(func(ctx context.Context, g greeting) error {
		count++
		return nil
	})); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Publish(ctx, greeting{Name: "ann"}, "greet"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count=1 got %d", count)
	}

	// Request through a topic exchange
	ex := topology.NewExchange("svc", topology.KindTopic)
	if _, err := b.Subscribe(topology.NewQueue("hello.*"), broker.Handle(func(ctx context.Context, g greeting) (string, error) {
		return "hello " + g.Name, nil
	}), broker.WithExchange(ex)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	reply, err := b.Request(ctx, greeting{Name: "bo"}, "hello.en", cbroker.WithExchange(ex))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if reply.Text() != "hello bo" {
		t.Fatalf("unexpected reply: %q", reply.Text())
	}

	// Nothing bound
	if err := b.Publish(ctx, "x", "nobody"); !errors.Is(err, berr.ErrSubscriberNotFound) {
		t.Fatalf("want ErrSubscriberNotFound, got %v", err)
	}

	cleanup()
	if err := b.Publish(ctx, greeting{}, "greet"); !errors.Is(err, berr.ErrBrokerClosed) {
		t.Fatalf("want ErrBrokerClosed, got %v", err)
	}
}
