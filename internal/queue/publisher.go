package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

type AMQPPub struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) (*AMQPPub, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return &AMQPPub{conn: conn, ch: ch}, nil
}

func (p *AMQPPub) Close() error {
	p.ch.Close()
	return p.conn.Close()
}

func (p *AMQPPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	body, _ := json.Marshal(event)
	return p.ch.PublishWithContext(ctx, exchange, key, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			MessageId:   uuid.NewString(),
			Timestamp:   time.Now(),
			Headers: amqp.Table{
				"X-Request-ID": reqID,
			},
		})
}
