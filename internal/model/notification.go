package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingRequested EventType = "booking.requested"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingDeclined  EventType = "booking.declined"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingExpired   EventType = "booking.expired"
	EventBookingStarted   EventType = "booking.started"
	EventBookingCompleted EventType = "booking.completed"
	EventBookingDisputed  EventType = "booking.disputed"
	EventPaymentCaptured  EventType = "payment.captured"
	EventReviewReceived   EventType = "review.received"
	EventReviewDisputed   EventType = "review.disputed"
)

// Notification событие для одного получателя
type Notification struct {
	Event       EventType      `json:"event"`
	RecipientID int64          `json:"recipient_id"`
	BookingID   uuid.UUID      `json:"booking_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// ArchiveRequest запрос на архивацию переписки участников
type ArchiveRequest struct {
	BookingID uuid.UUID `json:"booking_id"`
	PartyA    int64     `json:"party_a"`
	PartyB    int64     `json:"party_b"`
	At        time.Time `json:"at"`
}

// ContentVerdict результат проверки текста
type ContentVerdict struct {
	IsSafe bool     `json:"is_safe"`
	Flags  []string `json:"flags,omitempty"`
}
