package message

import (
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// Publishing renders the message as an AMQP publishing.
func (m *Message) Publishing() amqp.Publishing {
	return amqp.Publishing{
		Headers:         CloneHeaders(m.Headers),
		ContentType:     m.ContentType,
		ContentEncoding: m.ContentEncoding,
		DeliveryMode:    m.DeliveryMode,
		Priority:        m.Priority,
		CorrelationId:   m.CorrelationID,
		ReplyTo:         m.ReplyTo,
		Expiration:      m.Expiration,
		MessageId:       m.MessageID,
		Timestamp:       m.Timestamp,
		Type:            m.Type,
		UserId:          m.UserID,
		AppId:           m.AppID,
		Body:            m.Body,
	}
}

// Delivery renders the message as an AMQP delivery, as a consumer would see it.
func (m *Message) Delivery() amqp.Delivery {
	return amqp.Delivery{
		Headers:         CloneHeaders(m.Headers),
		ContentType:     m.ContentType,
		ContentEncoding: m.ContentEncoding,
		DeliveryMode:    m.DeliveryMode,
		Priority:        m.Priority,
		CorrelationId:   m.CorrelationID,
		ReplyTo:         m.ReplyTo,
		Expiration:      m.Expiration,
		MessageId:       m.MessageID,
		Timestamp:       m.Timestamp,
		Type:            m.Type,
		UserId:          m.UserID,
		AppId:           m.AppID,
		Exchange:        m.Exchange,
		RoutingKey:      m.RoutingKey,
		Body:            m.Body,
	}
}

// FromDelivery converts an AMQP delivery into a Message.
func FromDelivery(d amqp.Delivery) *Message {
	return &Message{
		Body:            d.Body,
		Exchange:        d.Exchange,
		RoutingKey:      d.RoutingKey,
		Headers:         CloneHeaders(d.Headers),
		CorrelationID:   d.CorrelationId,
		MessageID:       d.MessageId,
		ReplyTo:         d.ReplyTo,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		Priority:        d.Priority,
		DeliveryMode:    d.DeliveryMode,
		Expiration:      d.Expiration,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		UserID:          d.UserId,
		AppID:           d.AppId,
	}
}
