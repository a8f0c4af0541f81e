package kafka

import (
	"context"
	"errors"
	"fmt"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
)

// Writer is a minimal Kafka-like writer interface.
// Users can adapt segmentio/kafka-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements cbroker.Producer using an injected Writer.
// With the default exchange the routing key is the topic; with a named exchange the
// exchange is the topic and the routing key becomes the record key.
type Adapter struct {
	Writer Writer
}

var _ cbroker.Producer = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka publish: %w", berr.ErrNotConnected)
	}

	msg, err := cmd.Message(nil)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", err)
	}

	topic, key := topicAndKey(cmd)

	if err = a.Writer.Write(ctx, topic, key, msg.Body, cbroker.TransportHeaders(msg)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// separate return from preceding multi-line block (wsl)
		return fmt.Errorf("kafka publish write: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

// Request is not supported: Kafka has no reply channel.
func (a *Adapter) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	return nil, fmt.Errorf("kafka request %s: %w", cmd.Destination, berr.ErrRequestUnsupported)
}

// helpers

func topicAndKey(cmd cbroker.PublishCommand) (string, []byte) {
	if cmd.Exchange.IsDefault() || cmd.Exchange.Name == "" {
		return cmd.Destination, nil
	}

	if cmd.Destination == "" {
		return cmd.Exchange.Name, nil
	}

	return cmd.Exchange.Name, []byte(cmd.Destination)
}
