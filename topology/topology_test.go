package topology_test

import (
	"testing"

	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestQueueOf(t *testing.T) {
	q := topology.QueueOf("orders")
	if q != (topology.Queue{Name: "orders"}) {
		t.Fatalf("bare name: %+v", q)
	}

	d := topology.NewQueue("orders", topology.Durable(), topology.WithRoutingKey("orders.*"))
	if topology.QueueOf(d) != d {
		t.Fatalf("descriptor not preserved: %+v", topology.QueueOf(d))
	}

	if d.Routing() != "orders.*" || q.Routing() != "orders" {
		t.Fatalf("routing: %q %q", d.Routing(), q.Routing())
	}

	if q == topology.NewQueue("orders", topology.Durable()) {
		t.Fatalf("queues with different flags must differ")
	}
}

func TestExchangeOf_Normalization(t *testing.T) {
	if e := topology.ExchangeOf(""); e.Kind != topology.KindDefault || !e.IsDefault() {
		t.Fatalf("empty name must be default: %+v", e)
	}

	if e := topology.ExchangeOf(topology.Exchange{Kind: topology.KindTopic}); !e.IsDefault() {
		t.Fatalf("nameless topic must normalize to default: %+v", e)
	}

	if e := topology.ExchangeOf("logs"); e.Kind != topology.KindDirect || e.Name != "logs" {
		t.Fatalf("bare name must be direct: %+v", e)
	}

	if !(topology.Exchange{}).Equal(topology.ExchangeOf("")) {
		t.Fatalf("zero exchange must equal default")
	}
}

func TestExchange_Equal(t *testing.T) {
	a := topology.NewExchange("logs", topology.KindTopic)
	b := topology.NewExchange("logs", topology.KindTopic, topology.DurableExchange())
	c := topology.NewExchange("logs", topology.KindFanout)

	if !a.Equal(b) {
		t.Fatalf("flags must not affect equality")
	}

	if a.Equal(c) {
		t.Fatalf("kind must affect equality")
	}

	if a.Equal(topology.ExchangeOf("logs")) {
		t.Fatalf("bare name is direct, must not equal topic")
	}
}

func TestExchange_RoutingKind(t *testing.T) {
	d := topology.NewExchange("later", topology.KindDelayed)
	if d.RoutingKind() != topology.KindDirect {
		t.Fatalf("delayed default kind: %s", d.RoutingKind())
	}

	d = topology.NewExchange("later", topology.KindDelayed, topology.DelayedAs(topology.KindTopic))
	if d.RoutingKind() != topology.KindTopic || !d.RespectsRoutingKey() {
		t.Fatalf("delayed topic kind: %s", d.RoutingKind())
	}

	if topology.NewExchange("all", topology.KindFanout).RespectsRoutingKey() {
		t.Fatalf("fanout ignores routing key")
	}
}

func TestBindingArgs(t *testing.T) {
	b := topology.BindingFromArgs(amqp.Table{"x-match": "any", "region": "eu"})
	if b.Rule() != topology.MatchAny || b.Headers["region"] != "eu" {
		t.Fatalf("parsed binding: %+v", b)
	}

	if _, ok := b.Headers[topology.MatchKey]; ok {
		t.Fatalf("x-match must not be a predicate")
	}

	args := b.Args()
	if args[topology.MatchKey] != "any" || args["region"] != "eu" {
		t.Fatalf("args: %+v", args)
	}

	if (topology.Binding{}).Args() != nil {
		t.Fatalf("empty binding must render nil args")
	}

	if (topology.Binding{Match: "weird"}).Rule() != topology.MatchAll {
		t.Fatalf("unknown rule must fall back to all")
	}
}
