package model

import (
	"time"

	"github.com/google/uuid"
)

type DisputeResolution string

const (
	DisputeResolutionNone     DisputeResolution = "none"
	DisputeResolutionUpheld   DisputeResolution = "upheld"   // Отзыв остаётся скрытым
	DisputeResolutionRejected DisputeResolution = "rejected" // Отзыв снова виден
)

type Review struct {
	ID                uuid.UUID         `json:"id"`
	BookingID         uuid.UUID         `json:"booking_id"`
	ReviewerID        int64             `json:"reviewer_id"`
	RevieweeID        int64             `json:"reviewee_id"`
	Rating            int               `json:"rating"`
	Comment           string            `json:"comment"`
	Disputed          bool              `json:"disputed"`
	DisputeReason     string            `json:"dispute_reason,omitempty"`
	DisputedAt        *time.Time        `json:"disputed_at,omitempty"`
	DisputeResolution DisputeResolution `json:"dispute_resolution"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsVisible участвует ли отзыв в рейтинге
func (r *Review) IsVisible() bool {
	return !r.Disputed || r.DisputeResolution == DisputeResolutionRejected
}

// DisputeEligibility ответ на вопрос "можно ли оспорить отзыв"
type DisputeEligibility struct {
	CanDispute bool   `json:"can_dispute"`
	Reason     string `json:"reason,omitempty"`
}
