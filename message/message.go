package message

import (
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Message is an in-memory stand-in for a wire-level broker message.
// It is created per publish or request call and owned by that call.
type Message struct {
	Body []byte
	// Exchange is the name of the exchange the message was published to.
	Exchange   string
	RoutingKey string
	Headers    amqp.Table

	CorrelationID   string
	MessageID       string
	ReplyTo         string
	ContentType     string
	ContentEncoding string

	Priority     uint8
	DeliveryMode uint8
	Expiration   string
	Timestamp    time.Time
	Type         string
	UserID       string
	AppID        string
}

// Persistent reports whether the message asks for persistent delivery.
func (m *Message) Persistent() bool { return m.DeliveryMode == amqp.Persistent }

// Header returns the header value stored under key, or nil.
func (m *Message) Header(key string) any {
	if m.Headers == nil {
		return nil
	}

	return m.Headers[key]
}

// Decode unmarshals a JSON body into v.
func (m *Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return json.Unmarshal([]byte("null"), v)
	}

	return json.Unmarshal(m.Body, v)
}

// Text returns the body as a string.
func (m *Message) Text() string { return string(m.Body) }

// Clone returns a copy of m whose header table can be mutated independently.
func (m *Message) Clone() *Message {
	c := *m
	c.Headers = CloneHeaders(m.Headers)

	return &c
}

// CloneHeaders returns a shallow copy of h, or nil when h is empty.
func CloneHeaders(h amqp.Table) amqp.Table {
	if len(h) == 0 {
		return nil
	}

	out := make(amqp.Table, len(h))
	for k, v := range h {
		out[k] = v
	}

	return out
}
