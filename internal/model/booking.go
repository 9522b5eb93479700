package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Ожидает ответа компаньона
	BookingStatusConfirmed BookingStatus = "CONFIRMED" // Подтверждено, ждём оплату/начало
	BookingStatusActive    BookingStatus = "ACTIVE"    // Встреча идёт
	BookingStatusCompleted BookingStatus = "COMPLETED" // Завершено
	BookingStatusCancelled BookingStatus = "CANCELLED" // Отменено
	BookingStatusDisputed  BookingStatus = "DISPUTED"  // Спор по неявке
)

// BlockingStatuses статусы, которые занимают календарь компаньона
var BlockingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsBlocking возвращает true если статус занимает время компаньона
func (s BookingStatus) IsBlocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // Оплата не получена
	PaymentStatusHeld     PaymentStatus = "held"     // Деньги заморожены
	PaymentStatusPaid     PaymentStatus = "paid"     // Оплачено
	PaymentStatusReleased PaymentStatus = "released" // Выплачено компаньону
	PaymentStatusRefunded PaymentStatus = "refunded" // Возвращено клиенту
)

// IsCaptured возвращает true если деньги получены от клиента
func (p PaymentStatus) IsCaptured() bool {
	return p == PaymentStatusHeld || p == PaymentStatusPaid
}

type CancellationKind string

const (
	CancellationByHirer     CancellationKind = "hirer"
	CancellationByCompanion CancellationKind = "companion"
	CancellationDeclined    CancellationKind = "decline"
	CancellationExpired     CancellationKind = "expired"
	CancellationUnpaid      CancellationKind = "unpaid"
	CancellationEmergency   CancellationKind = "emergency"
)

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	HirerID         int64         `json:"hirer_id"`
	CompanionID     int64         `json:"companion_id"`
	Status          BookingStatus `json:"status"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	DurationMinutes int           `json:"duration_minutes"`
	BasePrice       int64         `json:"base_price"`
	PlatformFee     int64         `json:"platform_fee"`
	SurgeFee        int64         `json:"surge_fee"`
	TotalPrice      int64         `json:"total_price"`
	PaymentStatus   PaymentStatus `json:"payment_status"`

	RequestExpiresAt time.Time  `json:"request_expires_at"`
	PaymentDeadline  *time.Time `json:"payment_deadline,omitempty"`

	CancelledBy        *int64            `json:"cancelled_by,omitempty"` // nil: отменено планировщиком
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancellationKind   *CancellationKind `json:"cancellation_kind,omitempty"`
	RefundAmount       int64             `json:"refund_amount"`
	ReleasedAmount     int64             `json:"released_amount"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsParty проверяет что пользователь участник бронирования
func (b *Booking) IsParty(userID int64) bool {
	return b.HirerID == userID || b.CompanionID == userID
}

// Counterpart возвращает второго участника
func (b *Booking) Counterpart(userID int64) int64 {
	if userID == b.HirerID {
		return b.CompanionID
	}
	return b.HirerID
}

// Clone возвращает копию без общих указателей
func (b *Booking) Clone() *Booking {
	c := *b
	if b.PaymentDeadline != nil {
		t := *b.PaymentDeadline
		c.PaymentDeadline = &t
	}
	if b.CancelledBy != nil {
		v := *b.CancelledBy
		c.CancelledBy = &v
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	if b.CancellationKind != nil {
		k := *b.CancellationKind
		c.CancellationKind = &k
	}
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if b.StartedAt != nil {
		t := *b.StartedAt
		c.StartedAt = &t
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// TimeRange полуоткрытый интервал [Start, End)
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
