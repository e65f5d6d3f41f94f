// Package rabbitmq implements the broker gateway with publisher confirms:
// a publish blocks until the broker durably accepts the message or the
// attempt fails, so a returned receipt is a real delivery guarantee.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmarkov/user-microservice/internal/application"
	"github.com/dmarkov/user-microservice/internal/domain/event"
)

var errNacked = errors.New("broker rejected the message")

// Publisher wraps an AMQP channel in confirm mode publishing to a single
// durable queue. It never retries; failed publishes stay in the outbox.
type Publisher struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	Queue   string
	timeout time.Duration
}

func NewPublisher(url, queue string, timeout time.Duration) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Confirm mode: the broker acks every publish once persisted.
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, Queue: queue, timeout: timeout}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends one user lifecycle event and waits for the broker's
// confirmation. key becomes the MessageId so consumers can deduplicate
// redeliveries; single-queue FIFO preserves per-user emission order.
func (p *Publisher) Publish(ctx context.Context, key string, evt event.UserEvent) (*application.Receipt, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
	if err != nil {
		return nil, &application.PublishError{At: time.Now().UTC(), Err: err}
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return nil, &application.PublishError{At: time.Now().UTC(), Err: err}
	}
	if !acked {
		return nil, &application.PublishError{At: time.Now().UTC(), Err: errNacked}
	}

	return &application.Receipt{
		Queue:       p.Queue,
		DeliveryTag: conf.DeliveryTag,
		Timestamp:   time.Now().UTC(),
	}, nil
}

var _ application.Producer = (*Publisher)(nil)
