// Package redis provides a Redis pub/sub producer for the broker.
// Messages travel as JSON envelopes; requests wait on a per-call reply:<correlation-id> channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
)

const replyPrefix = "reply:"

// Envelope is the wire format of a message on a Redis channel.
type Envelope struct {
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Decode reads an envelope published by this adapter.
func Decode(channel, payload string) (*message.Message, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("redis envelope: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return cbroker.MessageFromTransport(channel, env.Body, env.Headers), nil
}

// Reply publishes resp to the reply channel of req.
func Reply(ctx context.Context, rdb goredis.UniversalClient, req, resp *message.Message) error {
	if req.ReplyTo == "" {
		return nil
	}

	if resp.CorrelationID == "" {
		resp.CorrelationID = req.CorrelationID
	}

	b, err := encode(resp)
	if err != nil {
		return err
	}

	return rdb.Publish(ctx, req.ReplyTo, b).Err()
}

// Adapter implements cbroker.Producer on Redis pub/sub.
type Adapter struct {
	rdb goredis.UniversalClient
	// Mandatory fails publishes nobody received, mirroring the in-memory broker.
	Mandatory bool
}

var _ cbroker.Producer = (*Adapter)(nil)

// New creates a new Redis adapter instance with the provided client.
func New(rdb goredis.UniversalClient) *Adapter { return &Adapter{rdb: rdb} }

func (a *Adapter) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	msg, err := a.prepare(ctx, cmd, "publish")
	if err != nil {
		return err
	}

	return a.send(ctx, cbroker.Subject(cmd), msg)
}

func (a *Adapter) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	msg, err := a.prepare(ctx, cmd, "request")
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc

		reqCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	msg.ReplyTo = replyPrefix + msg.CorrelationID

	sub := a.rdb.Subscribe(reqCtx, msg.ReplyTo)
	defer func() { _ = sub.Close() }()

	// wait until the subscription is registered so the reply cannot be missed
	if _, err := sub.Receive(reqCtx); err != nil {
		return nil, requestErr(ctx, msg.ReplyTo, err)
	}

	if err := a.send(reqCtx, cbroker.Subject(cmd), msg); err != nil {
		return nil, err
	}

	var rm *goredis.Message

	select {
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, requestErr(ctx, msg.ReplyTo, goredis.ErrClosed)
		}

		rm = m
	case <-reqCtx.Done():
		return nil, requestErr(ctx, msg.ReplyTo, reqCtx.Err())
	}

	reply, err := Decode(cmd.Destination, rm.Payload)
	if err != nil {
		return nil, err
	}

	if reply.CorrelationID == "" {
		reply.CorrelationID = msg.CorrelationID
	}

	return reply, nil
}

func (a *Adapter) prepare(ctx context.Context, cmd cbroker.PublishCommand, label string) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.rdb == nil {
		return nil, fmt.Errorf("redis %s: %w", label, berr.ErrNotConnected)
	}

	msg, err := cmd.Message(nil)
	if err != nil {
		return nil, fmt.Errorf("redis %s serialize: %w", label, err)
	}

	return msg, nil
}

func (a *Adapter) send(ctx context.Context, ch string, msg *message.Message) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}

	n, err := a.rdb.Publish(ctx, ch, b).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("redis publish %s: %w", ch, errors.Join(berr.ErrPublishFailed, err))
	}

	if n == 0 && a.Mandatory {
		return fmt.Errorf("redis publish %s: %w", ch, berr.ErrSubscriberNotFound)
	}

	return nil
}

func requestErr(parent context.Context, ch string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	// go-redis may surface the context deadline as a socket read timeout
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("redis request %s: %w", ch, errors.Join(berr.ErrTimeout, err))
	}

	return fmt.Errorf("redis request %s: %w", ch, errors.Join(berr.ErrPublishFailed, err))
}

// helpers

func encode(msg *message.Message) ([]byte, error) {
	b, err := json.Marshal(Envelope{Body: msg.Body, Headers: cbroker.TransportHeaders(msg)})
	if err != nil {
		return nil, fmt.Errorf("redis envelope: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return b, nil
}
