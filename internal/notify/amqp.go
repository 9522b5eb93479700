package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует JSON в topic exchange
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
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
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// EventMessage тело сообщения о событии бронирования
type EventMessage struct {
	Event       model.EventType `json:"event"`
	RecipientID int64           `json:"recipient_id"`
	BookingID   string          `json:"booking_id"`
	Payload     map[string]any  `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// EventNotifier отдаёт уведомления во внешние сервисы через брокер.
// Ключ маршрутизации совпадает с типом события (booking.confirmed и т.д.).
type EventNotifier struct {
	pub jsonPublisher
}

func NewEventNotifier(pub jsonPublisher) *EventNotifier {
	return &EventNotifier{pub: pub}
}

func (n *EventNotifier) Notify(ctx context.Context, msg model.Notification) error {
	body := EventMessage{
		Event:       msg.Event,
		RecipientID: msg.RecipientID,
		BookingID:   msg.BookingID.String(),
		Payload:     msg.Payload,
		OccurredAt:  msg.OccurredAt,
	}
	if err := n.pub.PublishJSON(ctx, string(msg.Event), body); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Event, err)
	}
	return nil
}
