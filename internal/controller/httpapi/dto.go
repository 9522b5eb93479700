package httpapi

import (
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

type CreateBookingRequest struct {
	CompanionID int64     `json:"companion_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status model.BookingStatus `json:"status" binding:"required"`
	Reason string              `json:"reason"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type PaymentRequest struct {
	Status model.PaymentStatus `json:"status" binding:"required"`
}

type ResolveDisputeRequest struct {
	Upheld *bool `json:"upheld" binding:"required"`
}

type PlatformFeeRequest struct {
	Fee string `json:"fee" binding:"required"`
}

type AvailabilityResponse struct {
	CompanionID int64     `json:"companion_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Available   bool      `json:"available"`
}

type ScheduleResponse struct {
	CompanionID int64             `json:"companion_id"`
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Busy        []model.TimeRange `json:"busy"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
