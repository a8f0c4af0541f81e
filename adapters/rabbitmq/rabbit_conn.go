package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	berr "github.com/next-trace/scg-testbroker/contract/errors"
	"github.com/next-trace/scg-testbroker/topology"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Concrete AMQP connection-backed constructor and publisher wrapper with auto-reconnect.

type Config struct {
	URL         string
	ConnTimeout time.Duration
	// Exchanges are declared on every (re)connect.
	Exchanges []topology.Exchange
}

var errReplyClosed = errors.New("reply consumer closed")

type reconnectingPublisher struct {
	cfg    Config
	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan struct{}
	ready  chan struct{} // closed when a channel is ready
}

func newReconnectingPublisher(cfg Config) (*reconnectingPublisher, func()) {
	rp := &reconnectingPublisher{
		cfg:    cfg,
		closed: make(chan struct{}),
		ready:  make(chan struct{}),
	}
	go rp.run()
	cleanup := func() { rp.close() }
	return rp, cleanup
}

// channel returns the live connection and channel, waiting for readiness.
func (rp *reconnectingPublisher) channel(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	// Fast path: ensure channel available
	rp.mu.RLock()
	conn, ch, ready := rp.conn, rp.ch, rp.ready
	rp.mu.RUnlock()
	if ch != nil {
		return conn, ch, nil
	}

	// Wait for readiness or context cancellation
	select {
	case <-ready:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	rp.mu.RLock()
	conn, ch = rp.conn, rp.ch
	rp.mu.RUnlock()
	if ch == nil {
		return nil, nil, fmt.Errorf("%w: rabbitmq not connected", berr.ErrNotConnected)
	}
	return conn, ch, nil
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	_, ch, err := rp.channel(ctx)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, m.Publishing)
}

// Request publishes over a dedicated channel consuming direct reply-to and waits for
// the delivery carrying the same correlation id.
func (rp *reconnectingPublisher) Request(ctx context.Context, m PubMsg) (amqp.Delivery, error) {
	conn, _, err := rp.channel(ctx)
	if err != nil {
		return amqp.Delivery{}, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return amqp.Delivery{}, err
	}
	defer func() { _ = ch.Close() }()

	replies, err := ch.Consume(DirectReplyTo, "", true, false, false, false, nil)
	if err != nil {
		return amqp.Delivery{}, err
	}
	if err := ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, m.Publishing); err != nil {
		return amqp.Delivery{}, err
	}

	for {
		select {
		case d, ok := <-replies:
			if !ok {
				return amqp.Delivery{}, errReplyClosed
			}
			if d.CorrelationId == m.Publishing.CorrelationId {
				return d, nil
			}
		case <-ctx.Done():
			return amqp.Delivery{}, ctx.Err()
		}
	}
}

func (rp *reconnectingPublisher) DeclareExchange(ctx context.Context, e topology.Exchange) error {
	_, ch, err := rp.channel(ctx)
	if err != nil {
		return err
	}
	return amqpChannel{ch: ch}.DeclareExchange(ctx, e)
}

func (rp *reconnectingPublisher) DeclareQueue(ctx context.Context, q topology.Queue) error {
	_, ch, err := rp.channel(ctx)
	if err != nil {
		return err
	}
	return amqpChannel{ch: ch}.DeclareQueue(ctx, q)
}

func (rp *reconnectingPublisher) BindQueue(
	ctx context.Context,
	q topology.Queue,
	e topology.Exchange,
	b topology.Binding,
) error {
	_, ch, err := rp.channel(ctx)
	if err != nil {
		return err
	}
	return amqpChannel{ch: ch}.BindQueue(ctx, q, e, b)
}

func (rp *reconnectingPublisher) run() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	// #nosec G404 -- non-crypto RNG is acceptable for backoff jitter
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // non-crypto RNG is acceptable for backoff jitter

	reconnect := func() (*amqp.Connection, *amqp.Channel, error) {
		conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
			Locale:     "en_US",
			Properties: amqp.Table{"product": "scg-testbroker"},
			Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
		})
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		for _, e := range rp.cfg.Exchanges {
			if e.IsDefault() {
				continue
			}
			if err := (amqpChannel{ch: ch}).DeclareExchange(context.Background(), e); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return nil, nil, err
			}
		}
		return conn, ch, nil
	}

	for {
		select {
		case <-rp.closed:
			return
		default:
		}

		conn, ch, err := reconnect()
		if err != nil {
			// exponential backoff with jitter
			jitter := time.Duration(rng.Int63n(int64(backoff / 2)))
			sleep := backoff + jitter/2
			if sleep > maxBackoff {
				sleep = maxBackoff
			}
			t := time.NewTimer(sleep)
			select {
			case <-rp.closed:
				t.Stop()
				return
			case <-t.C:
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}

		// success
		backoff = time.Second

		rp.mu.Lock()
		rp.conn = conn
		rp.ch = ch
		// wake waiters; later waiters see ch directly
		select {
		case <-rp.ready:
		default:
			close(rp.ready)
		}
		rp.mu.Unlock()

		// Block on connection close notifications to trigger reconnect
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-rp.closed:
			_ = ch.Close()
			_ = conn.Close()
			return
		case <-notify:
			rp.mu.Lock()
			rp.conn, rp.ch = nil, nil
			rp.ready = make(chan struct{})
			rp.mu.Unlock()
			_ = ch.Close()
			_ = conn.Close()
			// loop to reconnect
		}
	}
}

func (rp *reconnectingPublisher) close() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	select {
	case <-rp.closed:
		// already closed
		return
	default:
		close(rp.closed)
	}
	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}
	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

// NewWithAMQPConn dials RabbitMQ with auto-reconnect, declares the configured exchanges,
// and returns the Adapter, a Declarer on the same connection, and cleanup.
func NewWithAMQPConn(cfg Config) (*Adapter, Declarer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrNotConnected)
	}
	pub, cleanup := newReconnectingPublisher(cfg)
	return New(pub), pub, cleanup, nil
}
