package testbroker

import (
	"context"

	"github.com/next-trace/scg-testbroker/broker"
	"github.com/next-trace/scg-testbroker/message"
)

// Executor invokes one matched subscriber with one message.
// Errors must be returned unchanged; executors do not retry.
type Executor interface {
	Execute(ctx context.Context, sub *broker.Subscriber, msg *message.Message) (*message.Message, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, sub *broker.Subscriber, msg *message.Message) (*message.Message, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, sub *broker.Subscriber, msg *message.Message) (*message.Message, error) {
	return f(ctx, sub, msg)
}

// ProcessExecutor runs the subscriber's own pipeline (decoding, middleware, reply building).
var ProcessExecutor Executor = ExecutorFunc(
	func(ctx context.Context, sub *broker.Subscriber, msg *message.Message) (*message.Message, error) {
		return sub.Process(ctx, msg)
	},
)
