package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, evt LifecycleEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID.String(),
		Timestamp:    evt.OccurredAt,
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type RabbitConsumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
}

// NewRabbitConsumer binds queue to every appointment event on exchange.
// Each delivery is handled under timeout when it is positive.
func NewRabbitConsumer(url, exchange, queue string, timeout time.Duration) (*RabbitConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*RabbitConsumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKey("*"), exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		return fail("set qos", err)
	}
	return &RabbitConsumer{conn: conn, ch: ch, queue: q.Name, timeout: timeout}, nil
}

// Run delivers events to handler until ctx is done. Undecodable messages are
// dropped, handled ones acked.
func (c *RabbitConsumer) Run(ctx context.Context, handler Handler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			evt, err := Decode(d.Body)
			if err != nil {
				log.Errorf("dropping message %s: %v", d.RoutingKey, err)
				_ = d.Nack(false, false)
				continue
			}
			c.handle(ctx, handler, evt)
			_ = d.Ack(false)
		}
	}
}

func (c *RabbitConsumer) handle(ctx context.Context, handler Handler, evt LifecycleEvent) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := handler.Handle(ctx, evt); err != nil {
		log.Errorf("failed to handle %s event %s: %v", evt.Type, evt.ID, err)
	}
}

func (c *RabbitConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
