package broker

import (
	"context"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one delivered message. The returned value becomes the reply body;
// return a Response to also control reply headers or the correlation id.
type HandlerFunc func(ctx context.Context, msg *message.Message) (any, error)

// Middleware wraps handler execution. Middlewares run in registration order,
// broker-wide ones before subscriber ones.
type Middleware func(next HandlerFunc) HandlerFunc

// Response is a handler result carrying reply metadata.
type Response struct {
	Body          any
	Headers       amqp.Table
	CorrelationID string
}

// Validator is implemented by payloads that check themselves after decoding.
type Validator interface {
	Validate() error
}

// Handle adapts a typed function into a HandlerFunc. The body is decoded into T
// (JSON unless T is string, []byte or *message.Message); decode or validation
// failures are reported as ErrValidationFailed and the function is not called.
func Handle[T, R any](fn func(ctx context.Context, in T) (R, error)) HandlerFunc {
	return func(ctx context.Context, msg *message.Message) (any, error) {
		in, err := decode[T](msg)
		if err != nil {
			return nil, err
		}

		return fn(ctx, in)
	}
}

// Consume adapts a typed function without a result into a HandlerFunc.
func Consume[T any](fn func(ctx context.Context, in T) error) HandlerFunc {
	return func(ctx context.Context, msg *message.Message) (any, error) {
		in, err := decode[T](msg)
		if err != nil {
			return nil, err
		}

		return nil, fn(ctx, in)
	}
}

func decode[T any](msg *message.Message) (T, error) {
	var in T

	switch p := any(&in).(type) {
	case *string:
		*p = msg.Text()
	case *[]byte:
		*p = msg.Body
	case **message.Message:
		*p = msg
	default:
		if err := msg.Decode(&in); err != nil {
			return in, fmt.Errorf("decode %T: %w", in, errors.Join(berr.ErrValidationFailed, err))
		}
	}

	if err := validate(in, &in); err != nil {
		return in, fmt.Errorf("validate %T: %w", in, errors.Join(berr.ErrValidationFailed, err))
	}

	return in, nil
}

func validate(candidates ...any) error {
	for _, c := range candidates {
		if v, ok := c.(Validator); ok {
			return v.Validate()
		}
	}

	return nil
}
