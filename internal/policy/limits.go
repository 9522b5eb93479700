package policy

import (
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

// Limits ограничения частоты запросов клиента. Ноль: без ограничения.
type Limits struct {
	Daily              int
	Weekly             int
	SameCompanionDaily int
}

// RequestCounts сколько запросов клиент уже создал в текущих окнах
type RequestCounts struct {
	Day              int
	Week             int
	SameCompanionDay int
}

// DayWindow календарный день в зоне движка, содержащий now
func (e *Engine) DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(e.cfg.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.cfg.Location)
	return start, start.AddDate(0, 0, 1)
}

// WeekWindow календарная неделя (с понедельника), содержащая now
func (e *Engine) WeekWindow(now time.Time) (time.Time, time.Time) {
	dayStart, _ := e.DayWindow(now)
	offset := (int(dayStart.Weekday()) + 6) % 7
	start := dayStart.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// CheckLimits возвращает PolicyViolation с оставшимися попытками и временем сброса
func (e *Engine) CheckLimits(counts RequestCounts, now time.Time) error {
	_, dayEnd := e.DayWindow(now)
	_, weekEnd := e.WeekWindow(now)
	l := e.cfg.Limits

	if l.SameCompanionDaily > 0 && counts.SameCompanionDay >= l.SameCompanionDaily {
		return limitError("same_companion_daily", l.SameCompanionDaily, counts.SameCompanionDay, dayEnd)
	}
	if l.Daily > 0 && counts.Day >= l.Daily {
		return limitError("daily", l.Daily, counts.Day, dayEnd)
	}
	if l.Weekly > 0 && counts.Week >= l.Weekly {
		return limitError("weekly", l.Weekly, counts.Week, weekEnd)
	}
	return nil
}

func limitError(name string, max, used int, resetAt time.Time) error {
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}
	return model.PolicyViolation("%s booking request limit reached", name).
		With("limit", name).
		With("max", max).
		With("remaining", remaining).
		With("reset_at", resetAt)
}
