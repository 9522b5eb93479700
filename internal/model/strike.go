package model

import (
	"time"

	"github.com/google/uuid"
)

type StrikeKind string

const (
	StrikeKindLateCancellation      StrikeKind = "late_cancellation"
	StrikeKindNoShow                StrikeKind = "no_show"
	StrikeKindEmergencyCancellation StrikeKind = "emergency_cancellation"
)

type StrikeStatus string

const (
	StrikeStatusActive  StrikeStatus = "active"
	StrikeStatusPending StrikeStatus = "pending" // Ждёт ручной проверки
	StrikeStatusVoided  StrikeStatus = "voided"
)

type Strike struct {
	ID         uuid.UUID    `json:"id"`
	UserID     int64        `json:"user_id"`
	BookingID  uuid.UUID    `json:"booking_id"`
	Kind       StrikeKind   `json:"kind"`
	Status     StrikeStatus `json:"status"`
	Reason     string       `json:"reason"`
	IssuedAt   time.Time    `json:"issued_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	VoidedAt   *time.Time   `json:"voided_at,omitempty"`
	VoidReason string       `json:"void_reason,omitempty"`
}

// IsInForce страйк не аннулирован и не истёк
func (s *Strike) IsInForce(now time.Time) bool {
	return s.Status != StrikeStatusVoided && now.Before(s.ExpiresAt)
}
