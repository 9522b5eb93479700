package model

import (
	"time"

	"github.com/google/uuid"
)

// Earning неизменяемая запись о выплате компаньону
type Earning struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	CompanionID int64     `json:"companion_id"`
	GrossAmount int64     `json:"gross_amount"`
	PlatformFee int64     `json:"platform_fee"`
	NetAmount   int64     `json:"net_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReportKind string

const ReportKindNoShow ReportKind = "no_show"

type Report struct {
	ID          uuid.UUID  `json:"id"`
	BookingID   uuid.UUID  `json:"booking_id"`
	ReporterID  int64      `json:"reporter_id"`
	ReportedID  int64      `json:"reported_id"`
	Kind        ReportKind `json:"kind"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}
