package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

// FormatAmount разбивает сумму на разряды: 1180000 -> "1 180 000"
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTimeRange "01.06.2026 18:00-20:00"; если встреча переходит через полночь, дата конца пишется полностью
func FormatTimeRange(start, end time.Time) string {
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s-%s", FormatDateTime(start), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", FormatDateTime(start), FormatDateTime(end))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

// PluralizeStars склонение слова "звезда"
func PluralizeStars(count int) string {
	if count%10 == 1 && count%100 != 11 {
		return "звезда"
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return "звезды"
	}
	return "звёзд"
}

type StatusDisplay struct {
	Emoji string
	Text  string
}

// BookingStatusDisplay emoji и текст для статуса бронирования
func BookingStatusDisplay(status model.BookingStatus) StatusDisplay {
	displays := map[model.BookingStatus]StatusDisplay{
		model.BookingStatusPending:   {"⏳", "Ожидает ответа"},
		model.BookingStatusConfirmed: {"✅", "Подтверждено"},
		model.BookingStatusActive:    {"▶️", "Идёт встреча"},
		model.BookingStatusCompleted: {"✔️", "Завершено"},
		model.BookingStatusCancelled: {"❌", "Отменено"},
		model.BookingStatusDisputed:  {"⚠️", "Спор"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Неизвестно"}
}
