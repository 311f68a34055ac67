package amqp

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/bank-notifier/internal/jobs"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// consumeChannel is the part of *amqp091.Channel the consumer uses.
type consumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Consumer drains TransactionEvents from a durable queue bound to the
// publisher's exchange. Each event is handed to the job handler as a
// DeliverTransactionJob whose JobID is the event's message id.
//
// A failed delivery is requeued once; a second failure drops it.
type Consumer struct {
	conn    *amqp091.Connection
	channel consumeChannel
	queue   string
	log     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewConsumer dials url, declares the exchange and queue, and binds them with routingKey.
func NewConsumer(url, exchange, queue, routingKey string, prefetch int, log zerolog.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupQueue(ch, exchange, queue, routingKey, prefetch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	c := newConsumer(ch, queue, log)
	c.conn = conn
	return c, nil
}

func setupQueue(ch *amqp091.Channel, exchange, queue, routingKey string, prefetch int) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}
	return nil
}

func newConsumer(ch consumeChannel, queue string, log zerolog.Logger) *Consumer {
	return &Consumer{
		channel: ch,
		queue:   queue,
		log:     log.With().Str("queue", queue).Logger(),
	}
}

// Start implements jobs.Consumer. It returns once consuming has begun.
func (c *Consumer) Start(ctx context.Context, handler jobs.JobHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("consumer already started")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack (we want manual ack)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	// Stop cancels only the receive loop; a handler keeps the caller's ctx.
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true

	go func() {
		defer close(c.done)
		c.consume(loopCtx, ctx, msgs, handler)
	}()

	c.log.Info().Msg("Started consuming transaction events")
	return nil
}

func (c *Consumer) consume(loopCtx, ctx context.Context, msgs <-chan amqp091.Delivery, handler jobs.JobHandler) {
	for {
		select {
		case <-loopCtx.Done():
			c.log.Info().Err(loopCtx.Err()).Msg("Stopping message consumption")
			return
		case delivery, ok := <-msgs:
			if !ok {
				c.log.Warn().Msg("Delivery channel closed")
				return
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp091.Delivery, handler jobs.JobHandler) {
	event, err := TransactionEventFromJSON(d.Body)
	if err != nil {
		c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("Failed to unmarshal message")
		d.Nack(false, false)
		return
	}

	job := &jobs.DeliverTransactionJob{
		JobID:       event.MessageID,
		Transaction: event.Transaction,
		OccurredAt:  event.OccurredAt,
		Status:      jobs.JobStatusRunning,
		CreatedAt:   event.PublishedAt,
	}

	if err := handler(ctx, job); err != nil {
		requeue := !d.Redelivered
		c.log.Error().
			Err(err).
			Str("message_id", event.MessageID).
			Bool("requeue", requeue).
			Msg("Failed to handle message")
		d.Nack(false, requeue)
		return
	}

	d.Ack(false)
	c.log.Info().
		Str("message_id", event.MessageID).
		Str("sink_id", job.SinkID).
		Msg("Successfully processed transaction event")
}

// Stop implements jobs.Consumer. It waits for the message in flight, if any.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.cancel()
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel and the connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ jobs.Consumer = (*Consumer)(nil)
