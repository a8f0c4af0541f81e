package routing

import (
	"reflect"

	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchHeaders evaluates a headers-exchange binding against message headers.
//
// A binding without predicates matches everything. Otherwise at least one predicate
// must be satisfied; MatchAll additionally requires every predicate to be satisfied.
func MatchHeaders(b topology.Binding, headers amqp.Table) bool {
	if len(b.Headers) == 0 {
		return true
	}

	matched := 0

	for k, want := range b.Headers {
		got, ok := headers[k]
		if ok && headerEqual(want, got) {
			matched++
		}
	}

	if matched == 0 {
		return false
	}

	return b.Rule() == topology.MatchAny || matched == len(b.Headers)
}

func headerEqual(want, got any) bool {
	if want == nil || got == nil {
		return want == got
	}

	return reflect.DeepEqual(want, got)
}
