package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Event names published by the payment engine.
const (
	EventPaymentSettled = "payment.settled"
	EventPaymentFailed  = "payment.failed"
	EventWalletUpdated  = "wallet.updated"
)

// Publisher is the fire-and-forget notification sink. Callers log
// publish failures and move on; a lost event never blocks or rolls back
// a balance change.
type Publisher interface {
	Publish(ctx context.Context, eventName string, payload interface{}) error
	Close()
}

// AMQPPublisher publishes JSON events to a topic exchange with the
// event name as routing key.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.DialConfig(amqpURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, p.exchange, eventName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher is used in sandbox mode and when the broker is down at
// startup; events are logged and dropped.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	log.Printf("events: publish skipped (noop) event=%s", eventName)
	return nil
}

func (NoopPublisher) Close() {}
