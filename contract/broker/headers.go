package broker

import (
	"fmt"

	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// StringHeaders renders every header value with fmt.Sprint.
func StringHeaders(h amqp.Table) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}

		out[k] = fmt.Sprint(v)
	}

	return out
}

// TableFromStrings converts string headers into an AMQP table.
func TableFromStrings(h map[string]string) amqp.Table {
	if len(h) == 0 {
		return nil
	}

	out := make(amqp.Table, len(h))
	for k, v := range h {
		out[k] = v
	}

	return out
}

// Transport header names used by adapters whose wire format has no native message properties.
const (
	HeaderCorrelationID = "correlation-id"
	HeaderMessageID     = "message-id"
	HeaderReplyTo       = "reply-to"
	HeaderContentType   = "content-type"
	HeaderType          = "type"
	HeaderAppID         = "app-id"
)

// TransportHeaders flattens the message headers and properties into string headers.
func TransportHeaders(m *message.Message) map[string]string {
	h := StringHeaders(m.Headers)

	props := map[string]string{
		HeaderCorrelationID: m.CorrelationID,
		HeaderMessageID:     m.MessageID,
		HeaderReplyTo:       m.ReplyTo,
		HeaderContentType:   m.ContentType,
		HeaderType:          m.Type,
		HeaderAppID:         m.AppID,
	}

	for k, v := range props {
		if v != "" {
			h[k] = v
		}
	}

	return h
}

// MessageFromTransport rebuilds a message from a body and string headers written by TransportHeaders.
// Property headers are moved out of the header table.
func MessageFromTransport(key string, body []byte, h map[string]string) *message.Message {
	headers := TableFromStrings(h)
	m := &message.Message{Body: body, RoutingKey: key, DeliveryMode: amqp.Transient}

	for k, dst := range map[string]*string{
		HeaderCorrelationID: &m.CorrelationID,
		HeaderMessageID:     &m.MessageID,
		HeaderReplyTo:       &m.ReplyTo,
		HeaderContentType:   &m.ContentType,
		HeaderType:          &m.Type,
		HeaderAppID:         &m.AppID,
	} {
		if v, ok := h[k]; ok {
			*dst = v
			delete(headers, k)
		}
	}

	if len(headers) > 0 {
		m.Headers = headers
	}

	return m
}

// Subject names the destination on transports that address by a single dotted name.
// The default exchange uses the routing key alone, fanout uses the exchange name alone,
// anything else is "<exchange>.<key>".
func Subject(cmd PublishCommand) string {
	if cmd.Exchange.IsDefault() || cmd.Exchange.Name == "" {
		return cmd.Destination
	}

	if cmd.Destination == "" || cmd.Exchange.RoutingKind() == topology.KindFanout {
		return cmd.Exchange.Name
	}

	return cmd.Exchange.Name + "." + cmd.Destination
}
