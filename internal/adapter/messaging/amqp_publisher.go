package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

// KitchenOrder is the message the kitchen consumes for each persisted order.
type KitchenOrder struct {
	OrderID   string             `json:"order_id"`
	UserID    string             `json:"user_id"`
	Lines     []domain.OrderLine `json:"lines"`
	Total     string             `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewKitchenOrder(order domain.Order) KitchenOrder {
	return KitchenOrder{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Lines:     order.Lines,
		Total:     order.Total.StringFixed(2),
		CreatedAt: order.CreatedAt,
	}
}

// AMQPPublisher publishes orders to a durable queue. The channel is shared
// between checkout workers, so publishes are serialized.
type AMQPPublisher struct {
	mu    sync.Mutex
	ch    *amqp.Channel
	queue string
}

func NewAMQPPublisher(conn *amqp.Connection, queue string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPPublisher{ch: ch, queue: q.Name}, nil
}

func (p *AMQPPublisher) PublishOrder(ctx context.Context, order domain.Order) error {
	body, err := json.Marshal(NewKitchenOrder(order))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.ID,
			Timestamp:    order.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
