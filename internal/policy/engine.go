// Package policy содержит чистые правила ценообразования, возвратов,
// лимитов и окон для отзывов. Пакет не ходит в базу и не знает про время
// "сейчас": все моменты передаются явно.
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	SameDaySurge  decimal.Decimal // Доля от базы при бронировании менее чем за SameDayWindow
	SameDayWindow time.Duration
	MinDuration   time.Duration // Короче встречу забронировать нельзя

	RequestTTL      time.Duration // Сколько компаньон может думать над запросом
	PaymentWindow   time.Duration // Время на оплату после подтверждения
	PaymentLeadTime time.Duration // Оплата должна прийти не позже чем за это время до начала

	FullRefundBefore    time.Duration
	PartialRefundBefore time.Duration
	PartialRefundShare  decimal.Decimal
	StrikeTTL           time.Duration

	AutoCompleteGrace time.Duration
	ArchiveDelay      time.Duration // Через сколько после завершения архивировать переписку

	ReviewWindow     time.Duration
	ReviewEditWindow time.Duration
	DisputeWindow    time.Duration

	Limits   Limits
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		SameDaySurge:        decimal.RequireFromString("0.30"),
		SameDayWindow:       24 * time.Hour,
		MinDuration:         30 * time.Minute,
		RequestTTL:          24 * time.Hour,
		PaymentWindow:       2 * time.Hour,
		PaymentLeadTime:     2 * time.Hour,
		FullRefundBefore:    48 * time.Hour,
		PartialRefundBefore: 24 * time.Hour,
		PartialRefundShare:  decimal.RequireFromString("0.5"),
		StrikeTTL:           90 * 24 * time.Hour,
		AutoCompleteGrace:   24 * time.Hour,
		ArchiveDelay:        72 * time.Hour,
		ReviewWindow:        7 * 24 * time.Hour,
		ReviewEditWindow:    24 * time.Hour,
		DisputeWindow:       7 * 24 * time.Hour,
		Limits: Limits{
			Daily:              3,
			Weekly:             10,
			SameCompanionDaily: 1,
		},
		Location: time.UTC,
	}
}

// Engine единая точка правил; безопасен для конкурентного использования
type Engine struct {
	cfg      Config
	holidays *HolidayCalendar
}

func NewEngine(cfg Config, holidays *HolidayCalendar) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if holidays == nil {
		holidays = EmptyCalendar()
	}
	return &Engine{cfg: cfg, holidays: holidays}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// RequestExpiresAt момент, после которого неотвеченный запрос истекает
func (e *Engine) RequestExpiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(e.cfg.RequestTTL)
}

// PaymentDeadline = min(confirmedAt+окно, start-запас). Если запас уже
// прошёл, крайний срок: начало встречи.
func (e *Engine) PaymentDeadline(confirmedAt, start time.Time) time.Time {
	deadline := confirmedAt.Add(e.cfg.PaymentWindow)
	if lead := start.Add(-e.cfg.PaymentLeadTime); lead.Before(deadline) {
		deadline = lead
	}
	if deadline.Before(confirmedAt) {
		return start
	}
	return deadline
}

// AutoCompleteAt момент, после которого планировщик закрывает встречу
func (e *Engine) AutoCompleteAt(end time.Time) time.Time {
	return end.Add(e.cfg.AutoCompleteGrace)
}

func (e *Engine) ArchiveAt(completedAt time.Time) time.Time {
	return completedAt.Add(e.cfg.ArchiveDelay)
}

func (e *Engine) StrikeExpiresAt(issuedAt time.Time) time.Time {
	return issuedAt.Add(e.cfg.StrikeTTL)
}
