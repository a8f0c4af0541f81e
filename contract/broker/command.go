package broker

import (
	"time"

	"github.com/fogfish/opts"
	"github.com/next-trace/scg-testbroker/message"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// revive:disable:max-public-structs

// PublishCommand is everything a producer needs to build and route one message.
type PublishCommand struct {
	Body any
	// Destination is the routing key, subject, channel or topic.
	Destination string
	Exchange    topology.Exchange
	Headers     amqp.Table

	CorrelationID   string
	MessageID       string
	ReplyTo         string
	ContentType     string
	ContentEncoding string
	Priority        uint8
	Persist         bool
	Expiration      time.Duration
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string

	// Timeout bounds Request. Zero means the broker default, negative means no deadline.
	Timeout time.Duration
}

// revive:enable:max-public-structs

// PublishOption configures a PublishCommand.
type PublishOption = opts.Option[PublishCommand]

var (
	WithCorrelationID   = opts.ForName[PublishCommand, string]("CorrelationID")
	WithMessageID       = opts.ForName[PublishCommand, string]("MessageID")
	WithReplyTo         = opts.ForName[PublishCommand, string]("ReplyTo")
	WithContentType     = opts.ForName[PublishCommand, string]("ContentType")
	WithContentEncoding = opts.ForName[PublishCommand, string]("ContentEncoding")
	WithPriority        = opts.ForName[PublishCommand, uint8]("Priority")
	WithPersist         = opts.ForName[PublishCommand, bool]("Persist")
	WithExpiration      = opts.ForName[PublishCommand, time.Duration]("Expiration")
	WithTimestamp       = opts.ForName[PublishCommand, time.Time]("Timestamp")
	WithMessageType     = opts.ForName[PublishCommand, string]("Type")
	WithUserID          = opts.ForName[PublishCommand, string]("UserID")
	WithAppID           = opts.ForName[PublishCommand, string]("AppID")
	WithTimeout         = opts.ForName[PublishCommand, time.Duration]("Timeout")
)

// WithExchange publishes through the given exchange (a bare name is a direct exchange).
func WithExchange[T string | topology.Exchange](e T) PublishOption {
	return opts.Type[PublishCommand](func(c *PublishCommand) error {
		c.Exchange = topology.ExchangeOf(e)
		return nil
	})
}

// WithHeaders merges h into the command headers.
func WithHeaders(h amqp.Table) PublishOption {
	return opts.Type[PublishCommand](func(c *PublishCommand) error {
		if c.Headers == nil {
			c.Headers = make(amqp.Table, len(h))
		}

		for k, v := range h {
			c.Headers[k] = v
		}

		return nil
	})
}

// NewPublishCommand builds a command for a destination given as a routing key or a queue.
func NewPublishCommand[D string | topology.Queue](
	body any,
	destination D,
	options ...PublishOption,
) (PublishCommand, error) {
	cmd := PublishCommand{
		Body:        body,
		Destination: topology.QueueOf(destination).Routing(),
		Exchange:    topology.ExchangeOf(""),
	}

	if err := opts.Apply(&cmd, options); err != nil {
		return PublishCommand{}, err
	}

	return cmd, nil
}

// Message builds the synthetic message for the command.
// newID is used when no correlation id was supplied; nil falls back to message.NewID.
func (c PublishCommand) Message(newID IDGenerator) (*message.Message, error) {
	corr := c.CorrelationID
	if corr == "" {
		if newID == nil {
			newID = message.NewID
		}

		corr = newID()
	}

	return message.New(c.Body,
		message.WithExchange(c.Exchange.Name),
		message.WithRoutingKey(c.Destination),
		message.WithHeaders(c.Headers),
		message.WithCorrelationID(corr),
		message.WithMessageID(c.MessageID),
		message.WithReplyTo(c.ReplyTo),
		message.WithContentType(c.ContentType),
		message.WithContentEncoding(c.ContentEncoding),
		message.WithPriority(c.Priority),
		message.WithPersist(c.Persist),
		message.WithExpiration(c.Expiration),
		message.WithTimestamp(c.Timestamp),
		message.WithType(c.Type),
		message.WithUserID(c.UserID),
		message.WithAppID(c.AppID),
	)
}

// StringHeaders flattens the header table for transports that only carry strings.
func (c PublishCommand) StringHeaders() map[string]string {
	return StringHeaders(c.Headers)
}
