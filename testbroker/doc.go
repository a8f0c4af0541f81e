/*
Package testbroker emulates a message broker in-process for tests.

FakeProducer replaces a live connection: it builds the message a real client would send,
resolves which registered subscribers a real broker would deliver it to, and calls them
directly. Publishing to a destination nothing is bound to is an error, never a silent drop.

	restore := testbroker.Patch(b)
	defer restore()

	err := b.Publish(ctx, order, "orders.created", broker.WithExchange(orders))
*/
package testbroker
