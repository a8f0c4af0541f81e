package memory

import (
	"log/slog"

	"github.com/next-trace/scg-testbroker/broker"
	"github.com/next-trace/scg-testbroker/testbroker"
)

// New constructs a broker whose publishes are delivered in-process to its own subscribers,
// along with a cleanup function that closes the broker.
func New(logger *slog.Logger, opts ...broker.Option) (*broker.Broker, func()) {
	b := broker.New(nil, logger, opts...)
	b.UseProducer(testbroker.NewFakeProducer(b))

	cleanup := func() { _ = b.Close() }

	return b, cleanup
}
