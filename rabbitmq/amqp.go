package rabbitmq

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	heartbeat   = 10 * time.Second
	dialTimeout = 3 * time.Second

	// redeliveries per message before the broker drops it
	queueDeliveryLimit = 10
)

var ErrReconnecting = errors.New("amqp: connection is being re-established")

// connEvent tells running listeners what happened to the connection.
type connEvent int

const (
	connRestored connEvent = iota
	connLost
)

type AMQPClient interface {
	Listen(ctx context.Context, exchange string, routingKey string, queueName string, options ...ListenOption) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

// session is one live connection with its two channels. Publishing gets its
// own channel so broker flow control on publishes does not stall consumers.
type session struct {
	conn    *amqp.Connection
	consume *amqp.Channel
	publish *amqp.Channel
	closed  chan *amqp.Error
}

type defaultAMQPClient struct {
	uri    string
	logger *lecho.Logger

	mu      sync.RWMutex
	current *session

	reconnecting atomic.Bool

	watchersMu sync.Mutex
	watchers   []chan connEvent
}

type DialOption = func(client *defaultAMQPClient)

func WithAmqpLogger(logger *lecho.Logger) DialOption {
	return func(client *defaultAMQPClient) {
		client.logger = logger
	}
}

// DialAMQP connects to the broker and keeps reconnecting in the background
// whenever the connection drops.
func DialAMQP(uri string, options ...DialOption) (AMQPClient, error) {
	client := &defaultAMQPClient{
		uri:    uri,
		logger: lecho.New(os.Stdout, lecho.WithLevel(log.DEBUG), lecho.WithTimestamp()),
	}
	for _, opt := range options {
		opt(client)
	}

	s, err := client.open()
	if err != nil {
		return nil, err
	}
	client.current = s

	go client.supervise(s)

	return client, nil
}

func (c *defaultAMQPClient) open() (*session, error) {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}
	consume, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	publish, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	s := &session{conn: conn, consume: consume, publish: publish, closed: make(chan *amqp.Error, 1)}
	conn.NotifyClose(s.closed)
	return s, nil
}

func (c *defaultAMQPClient) active() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// supervise waits for the connection to drop and replaces it. After a minute
// of failed dials the listeners are told the connection is gone for good.
func (c *defaultAMQPClient) supervise(s *session) {
	for {
		amqpErr, ok := <-s.closed
		if !ok || amqpErr == nil {
			// closed on purpose
			return
		}
		c.logger.Errorf("amqp: connection lost: %v", amqpErr)
		c.reconnecting.Store(true)

		policy := backoff.NewExponentialBackOff()
		policy.MaxInterval = 10 * time.Second
		policy.MaxElapsedTime = time.Minute

		next, err := backoff.RetryNotifyWithData(c.open, policy, func(err error, wait time.Duration) {
			c.logger.Warnf("amqp: reconnect failed, next attempt in %s: %v", wait, err)
		})
		if err != nil {
			c.logger.Errorf("amqp: giving up on reconnecting: %v", err)
			c.broadcast(connLost)
			return
		}

		c.mu.Lock()
		c.current = next
		c.mu.Unlock()
		c.reconnecting.Store(false)
		c.logger.Info("amqp: reconnected")

		c.broadcast(connRestored)
		s = next
	}
}

func (c *defaultAMQPClient) watch() chan connEvent {
	events := make(chan connEvent, 2)
	c.watchersMu.Lock()
	c.watchers = append(c.watchers, events)
	c.watchersMu.Unlock()
	return events
}

func (c *defaultAMQPClient) unwatch(events chan connEvent) {
	c.watchersMu.Lock()
	defer c.watchersMu.Unlock()
	for i, w := range c.watchers {
		if w == events {
			c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
			return
		}
	}
}

func (c *defaultAMQPClient) broadcast(event connEvent) {
	c.watchersMu.Lock()
	defer c.watchersMu.Unlock()
	for _, w := range c.watchers {
		select {
		case w <- event:
		default:
			c.logger.Warnf("amqp: listener did not take connection event %d", event)
		}
	}
}

func (c *defaultAMQPClient) Close() error {
	return c.active().conn.Close()
}

// ExchangeDeclare uses a throwaway channel so a declare error cannot close
// the long lived ones.
func (c *defaultAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch, err := c.active().conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

// ListenOptions shape the exchange and queue a listener declares.
// Listen starts from a durable, shared queue with manual acks.
type ListenOptions struct {
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	AutoAck    bool
}

type ListenOption = func(opts *ListenOptions)

// WithTransientQueue declares a non durable queue removed with its last consumer.
func WithTransientQueue() ListenOption {
	return func(opts *ListenOptions) {
		opts.Durable = false
		opts.AutoDelete = true
	}
}

func WithExclusive(exclusive bool) ListenOption {
	return func(opts *ListenOptions) {
		opts.Exclusive = exclusive
	}
}

func WithAutoAck(autoAck bool) ListenOption {
	return func(opts *ListenOptions) {
		opts.AutoAck = autoAck
	}
}

// Listen returns one delivery channel that survives reconnects. It is closed
// when the client gives up on the broker.
func (c *defaultAMQPClient) Listen(ctx context.Context, exchange string, routingKey string, queueName string, options ...ListenOption) (<-chan amqp.Delivery, error) {
	opts := ListenOptions{Durable: true}
	for _, opt := range options {
		opt(&opts)
	}

	deliveries, err := c.consume(c.active(), exchange, routingKey, queueName, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan amqp.Delivery)
	events := c.watch()

	go func() {
		defer c.unwatch(events)
		for {
			select {
			case <-ctx.Done():
				return

			case event := <-events:
				if event == connLost {
					close(out)
					return
				}
				d, err := c.consume(c.active(), exchange, routingKey, queueName, opts)
				if err != nil {
					c.logger.Errorf("amqp: could not resume %s after reconnect: %v", routingKey, err)
					close(out)
					return
				}
				c.logger.Infof("amqp: consuming %s again", routingKey)
				deliveries = d

			case delivery, ok := <-deliveries:
				if !ok {
					// the channel died with the connection, wait for an event
					deliveries = nil
					continue
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// consume declares the topic exchange and the queue, binds them and starts
// consuming. Several qrishub instances on one queue share its messages.
func (c *defaultAMQPClient) consume(s *session, exchange, routingKey, queueName string, opts ListenOptions) (<-chan amqp.Delivery, error) {
	if err := s.consume.ExchangeDeclare(exchange, "topic", opts.Durable, opts.AutoDelete, false, false, nil); err != nil {
		return nil, err
	}

	queue, err := s.consume.QueueDeclare(queueName, opts.Durable, opts.AutoDelete, opts.Exclusive, false,
		amqp.Table{"delivery-limit": queueDeliveryLimit})
	if err != nil {
		return nil, err
	}

	if err := s.consume.QueueBind(queue.Name, routingKey, exchange, false, nil); err != nil {
		return nil, err
	}

	return s.consume.Consume(queue.Name, "", opts.AutoAck, opts.Exclusive, false, false, nil)
}

// PublishWithContext waits out a reconnect in progress before publishing.
func (c *defaultAMQPClient) PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error {
	if c.reconnecting.Load() {
		policy := backoff.NewExponentialBackOff()
		policy.MaxInterval = 10 * time.Second
		policy.MaxElapsedTime = time.Minute

		err := backoff.Retry(func() error {
			if c.reconnecting.Load() {
				return ErrReconnecting
			}
			return nil
		}, backoff.WithContext(policy, ctx))
		if err != nil {
			return err
		}
	}

	return c.active().publish.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}
