package broker

import (
	"context"
	"slices"

	cbroker "github.com/next-trace/scg-testbroker/contract/broker"
	"github.com/next-trace/scg-testbroker/message"
)

// Publisher is a declared destination with default publish options.
// Successful sends are recorded on its Mock while the broker has mocking enabled,
// with the correlation id and propagated headers the producer received.
type Publisher struct {
	b           *Broker
	destination string
	opts        []cbroker.PublishOption

	mock Mock[cbroker.PublishCommand]
}

// Destination returns the routing key the publisher sends to.
func (p *Publisher) Destination() string { return p.destination }

// Mock returns the call recorder.
func (p *Publisher) Mock() *Mock[cbroker.PublishCommand] { return &p.mock }

// Publish sends body with the publisher defaults followed by extra options.
func (p *Publisher) Publish(ctx context.Context, body any, extra ...cbroker.PublishOption) error {
	cmd, err := p.command(body, extra)
	if err != nil {
		return err
	}

	sent, err := p.b.publish(ctx, cmd)
	if err != nil {
		return err
	}

	p.mock.record(sent)

	return nil
}

// Request sends body and waits for the reply.
func (p *Publisher) Request(ctx context.Context, body any, extra ...cbroker.PublishOption) (*message.Message, error) {
	cmd, err := p.command(body, extra)
	if err != nil {
		return nil, err
	}

	sent, reply, err := p.b.request(ctx, cmd)
	if err != nil {
		return nil, err
	}

	p.mock.record(sent)

	return reply, nil
}

func (p *Publisher) command(body any, extra []cbroker.PublishOption) (cbroker.PublishCommand, error) {
	return cbroker.NewPublishCommand(body, p.destination, slices.Concat(p.opts, extra)...)
}
