package routing

import (
	"github.com/cespare/xxhash/v2"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Binder is anything bound to the broker topology, usually a subscriber.
type Binder interface {
	Queue() topology.Queue
	Exchange() topology.Exchange
	Binding() topology.Binding
}

// Match reports whether b would receive a message published to exch with key and headers.
// Hash exchanges always match here; Route narrows them down to a single binder.
func Match(b Binder, key string, headers amqp.Table, exch topology.Exchange) bool {
	bound := b.Exchange()
	if !bound.Equal(exch) {
		return false
	}

	switch bound.RoutingKind() {
	case topology.KindDefault, topology.KindDirect:
		return b.Queue().Routing() == key
	case topology.KindFanout, topology.KindConsistentHash, topology.KindModulusHash:
		return true
	case topology.KindTopic:
		return topology.MatchPattern(b.Queue().Routing(), key)
	case topology.KindHeaders:
		return MatchHeaders(b.Binding(), headers)
	default:
		return false
	}
}

// Route returns every binder in subs that would receive the message, in the order of subs.
func Route[S Binder](subs []S, key string, headers amqp.Table, exch topology.Exchange) []S {
	var out []S

	for _, s := range subs {
		if Match(s, key, headers, exch) {
			out = append(out, s)
		}
	}

	if isHashKind(exch.RoutingKind()) && len(out) > 1 {
		i := xxhash.Sum64String(key) % uint64(len(out))
		out = out[i : i+1]
	}

	return out
}

func isHashKind(k topology.ExchangeKind) bool {
	return k == topology.KindConsistentHash || k == topology.KindModulusHash
}
