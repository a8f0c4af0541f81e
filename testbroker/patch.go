package testbroker

import "github.com/next-trace/scg-testbroker/broker"

// Patch routes b through a FakeProducer and turns on call mocks.
// The returned func restores the previous producer and resets the mocks.
func Patch(b *broker.Broker, opts ...Option) (restore func()) {
	fake := NewFakeProducer(b, opts...)
	prev := b.UseProducer(fake)
	b.Mocking(true)

	return func() {
		prev()
		b.Mocking(false)
	}
}
