package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ClickEvent is the message the api service emits for every redirect and
// the analytics worker aggregates into per code totals.
type ClickEvent struct {
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
}

// ClickPublisher fans click events out to whoever counts them.
type ClickPublisher interface {
	Publish(ctx context.Context, event ClickEvent) error
}

// RabbitClickPublisher publishes click events to a durable RabbitMQ queue.
type RabbitClickPublisher struct {
	ch    *amqp091.Channel
	queue string
}

// NewRabbitClickPublisher declares the queue and returns a publisher bound
// to it. Declaring on both ends keeps publisher and worker startup order
// irrelevant.
func NewRabbitClickPublisher(ch *amqp091.Channel, queue string) (*RabbitClickPublisher, error) {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return &RabbitClickPublisher{ch: ch, queue: queue}, nil
}

func (p *RabbitClickPublisher) Publish(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal click event: %w", err)
	}
	err = p.ch.PublishWithContext(
		ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}
