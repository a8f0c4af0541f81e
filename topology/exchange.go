package topology

// ExchangeKind is the routing policy of an exchange.
type ExchangeKind string

const (
	KindDefault        ExchangeKind = "default"
	KindDirect         ExchangeKind = "direct"
	KindTopic          ExchangeKind = "topic"
	KindFanout         ExchangeKind = "fanout"
	KindHeaders        ExchangeKind = "headers"
	KindDelayed        ExchangeKind = "x-delayed-message"
	KindConsistentHash ExchangeKind = "x-consistent-hash"
	KindModulusHash    ExchangeKind = "x-modulus-hash"
)

// Exchange is a routing-policy object between publishers and queues.
// A nameless exchange is always the default exchange.
type Exchange struct {
	Kind       ExchangeKind
	Name       string
	Durable    bool
	AutoDelete bool
	// DelayedKind is the routing kind of an x-delayed-message exchange. Defaults to direct.
	DelayedKind ExchangeKind
}

// ExchangeOption configures an Exchange built by NewExchange.
type ExchangeOption func(*Exchange)

// DurableExchange marks the exchange as surviving broker restarts.
func DurableExchange() ExchangeOption { return func(e *Exchange) { e.Durable = true } }

// AutoDeleteExchange marks the exchange for deletion once unbound.
func AutoDeleteExchange() ExchangeOption { return func(e *Exchange) { e.AutoDelete = true } }

// DelayedAs sets the routing kind used by an x-delayed-message exchange.
func DelayedAs(kind ExchangeKind) ExchangeOption {
	return func(e *Exchange) { e.DelayedKind = kind }
}

// NewExchange builds a normalized Exchange. An empty kind means direct.
func NewExchange(name string, kind ExchangeKind, opts ...ExchangeOption) Exchange {
	if kind == "" {
		kind = KindDirect
	}

	e := Exchange{Name: name, Kind: kind}
	for _, o := range opts {
		o(&e)
	}

	return e.normalize()
}

// ExchangeOf normalizes a bare name or an Exchange descriptor.
// A bare name is a direct exchange; an empty name is the default exchange.
func ExchangeOf[T string | Exchange](v T) Exchange {
	switch e := any(v).(type) {
	case Exchange:
		return e.normalize()
	case string:
		return NewExchange(e, KindDirect)
	}

	return Exchange{Kind: KindDefault}
}

func (e Exchange) normalize() Exchange {
	if e.Name == "" {
		return Exchange{Kind: KindDefault}
	}

	if e.Kind == "" {
		e.Kind = KindDirect
	}

	if e.Kind == KindDelayed && e.DelayedKind == "" {
		e.DelayedKind = KindDirect
	}

	return e
}

// Equal reports whether both exchanges have the same kind and name after normalization.
func (e Exchange) Equal(o Exchange) bool {
	a, b := e.normalize(), o.normalize()

	return a.Kind == b.Kind && a.Name == b.Name
}

// IsDefault reports whether e is the nameless default exchange.
func (e Exchange) IsDefault() bool { return e.normalize().Kind == KindDefault }

// RoutingKind resolves the kind that decides routing, unwrapping delayed exchanges.
func (e Exchange) RoutingKind() ExchangeKind {
	n := e.normalize()
	if n.Kind == KindDelayed {
		return n.DelayedKind
	}

	return n.Kind
}

// RespectsRoutingKey reports whether routing looks at the message routing key.
func (e Exchange) RespectsRoutingKey() bool {
	switch e.RoutingKind() {
	case KindDefault, KindDirect, KindTopic:
		return true
	default:
		return false
	}
}

func (e Exchange) String() string {
	n := e.normalize()
	if n.Kind == KindDefault {
		return string(KindDefault)
	}

	return n.Name + "(" + string(n.Kind) + ")"
}
