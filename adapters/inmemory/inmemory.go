package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/message"
)

// Responder answers requests sent through a Recorder.
type Responder func(ctx context.Context, req *message.Message) (*message.Message, error)

// Recorder is a thread-safe in-memory cbroker.Producer that keeps every message it is given.
// It does no routing: use it to assert what a component sends, and testbroker.FakeProducer
// to exercise subscribers.
type Recorder struct {
	mu       sync.Mutex
	messages []*message.Message
	respond  Responder
}

var _ cbroker.Producer = (*Recorder)(nil)

// New creates a new in-memory recorder. respond may be nil, in which case Request is unsupported.
func New(respond Responder) *Recorder { return &Recorder{respond: respond} }

func (r *Recorder) Publish(ctx context.Context, cmd cbroker.PublishCommand) error {
	_, err := r.record(cmd)
	if err != nil {
		return fmt.Errorf("inmemory publish %s: %w", cmd.Destination, err)
	}

	return nil
}

func (r *Recorder) Request(ctx context.Context, cmd cbroker.PublishCommand) (*message.Message, error) {
	if r.respond == nil {
		return nil, fmt.Errorf("inmemory request %s: %w", cmd.Destination, berr.ErrRequestUnsupported)
	}

	req, err := r.record(cmd)
	if err != nil {
		return nil, fmt.Errorf("inmemory request %s: %w", cmd.Destination, err)
	}

	return r.respond(ctx, req.Clone())
}

func (r *Recorder) record(cmd cbroker.PublishCommand) (*message.Message, error) {
	msg, err := cmd.Message(nil)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	return msg, nil
}

// Messages returns a copy of everything recorded, oldest first.
func (r *Recorder) Messages() []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.messages)
}

// Sent returns recorded messages whose routing key equals key.
func (r *Recorder) Sent(key string) []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*message.Message

	for _, m := range r.messages {
		if m.RoutingKey == key {
			out = append(out, m)
		}
	}

	return out
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
