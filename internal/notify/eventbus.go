package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	eventExchange  = "panel.events"
	publishTimeout = 5 * time.Second
)

// EventBusNotifier publishes crash/error events to a durable topic
// exchange, fire-and-forget, so out-of-process consumers (e.g. the
// Discord bot) can subscribe without the core depending on them. Adapted
// from the shared rmq publisher's exchange-declare-then-publish pattern.
type EventBusNotifier struct {
	channel *amqp.Channel
}

// NewEventBusNotifier dials url, opens a channel, and declares the
// "panel.events" topic exchange.
func NewEventBusNotifier(url string) (*EventBusNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(eventExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &EventBusNotifier{channel: ch}, nil
}

func (n *EventBusNotifier) Crash(ctx context.Context, serverName string) error {
	return n.publish(ctx, "crash", map[string]string{"server_name": serverName})
}

func (n *EventBusNotifier) Error(ctx context.Context, payload ErrorPayload) error {
	return n.publish(ctx, "error", payload)
}

func (n *EventBusNotifier) publish(ctx context.Context, routingKey string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	bodyBytes, err := marshalBody(body)
	if err != nil {
		return err
	}

	return n.channel.PublishWithContext(ctx, eventExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         bodyBytes,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func marshalBody(body any) ([]byte, error) {
	if b, ok := body.([]byte); ok {
		return b, nil
	}
	return json.Marshal(body)
}

func (n *EventBusNotifier) Close() error {
	if n.channel != nil {
		return n.channel.Close()
	}
	return nil
}
