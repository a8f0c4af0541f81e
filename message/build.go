package message

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Option configures a Message built by New.
type Option func(*Message)

func WithRoutingKey(key string) Option { return func(m *Message) { m.RoutingKey = key } }

func WithExchange(name string) Option { return func(m *Message) { m.Exchange = name } }

// WithHeaders sets the header table. The table is copied.
func WithHeaders(h amqp.Table) Option {
	return func(m *Message) { m.Headers = CloneHeaders(h) }
}

func WithCorrelationID(id string) Option { return func(m *Message) { m.CorrelationID = id } }

func WithMessageID(id string) Option { return func(m *Message) { m.MessageID = id } }

func WithReplyTo(to string) Option { return func(m *Message) { m.ReplyTo = to } }

// WithContentType overrides the content type inferred from the body.
func WithContentType(ct string) Option {
	return func(m *Message) {
		if ct != "" {
			m.ContentType = ct
		}
	}
}

func WithContentEncoding(enc string) Option { return func(m *Message) { m.ContentEncoding = enc } }

func WithPriority(p uint8) Option { return func(m *Message) { m.Priority = p } }

// WithPersist selects persistent or transient delivery mode.
func WithPersist(persist bool) Option {
	return func(m *Message) {
		if persist {
			m.DeliveryMode = amqp.Persistent
		} else {
			m.DeliveryMode = amqp.Transient
		}
	}
}

// WithExpiration sets the per-message TTL, rendered in milliseconds like AMQP expects.
func WithExpiration(ttl time.Duration) Option {
	return func(m *Message) {
		if ttl > 0 {
			m.Expiration = formatMillis(ttl)
		}
	}
}

func WithTimestamp(ts time.Time) Option { return func(m *Message) { m.Timestamp = ts } }

func WithType(t string) Option { return func(m *Message) { m.Type = t } }

func WithUserID(id string) Option { return func(m *Message) { m.UserID = id } }

func WithAppID(id string) Option { return func(m *Message) { m.AppID = id } }

// New builds a synthetic message from a publish body.
// A missing correlation id is generated, and a missing message id defaults to it.
func New(body any, opts ...Option) (*Message, error) {
	b, ct, err := Encode(body)
	if err != nil {
		return nil, err
	}

	m := &Message{Body: b, ContentType: ct, DeliveryMode: amqp.Transient}
	for _, o := range opts {
		o(m)
	}

	if m.CorrelationID == "" {
		m.CorrelationID = NewID()
	}

	if m.MessageID == "" {
		m.MessageID = m.CorrelationID
	}

	return m, nil
}
