package topology

import (
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchRule combines header predicates of a headers-exchange binding.
type MatchRule string

const (
	MatchAll MatchRule = "all"
	MatchAny MatchRule = "any"
)

// MatchKey is the bind argument carrying the MatchRule.
const MatchKey = "x-match"

// Binding is the metadata linking a queue to an exchange.
type Binding struct {
	// Headers are the required header values of a headers-exchange binding.
	Headers amqp.Table
	// Match combines Headers. Empty means MatchAll.
	Match MatchRule
}

// NewBinding builds a headers binding with the given rule and predicates.
func NewBinding(rule MatchRule, headers amqp.Table) Binding {
	return Binding{Headers: headers, Match: rule}
}

// BindingFromArgs parses RabbitMQ bind arguments. The x-match key selects the rule,
// every other key is a header predicate.
func BindingFromArgs(args amqp.Table) Binding {
	b := Binding{Match: MatchAll}
	if len(args) == 0 {
		return b
	}

	b.Headers = make(amqp.Table, len(args))

	for k, v := range args {
		if k == MatchKey {
			if s, ok := v.(string); ok && strings.EqualFold(s, string(MatchAny)) {
				b.Match = MatchAny
			}

			continue
		}

		b.Headers[k] = v
	}

	return b
}

// Rule returns the effective match rule.
func (b Binding) Rule() MatchRule {
	if b.Match == MatchAny {
		return MatchAny
	}

	return MatchAll
}

// Args renders the binding as RabbitMQ bind arguments. Nil when there are no predicates.
func (b Binding) Args() amqp.Table {
	if len(b.Headers) == 0 {
		return nil
	}

	args := make(amqp.Table, len(b.Headers)+1)
	for k, v := range b.Headers {
		args[k] = v
	}

	args[MatchKey] = string(b.Rule())

	return args
}
