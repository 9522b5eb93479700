package model

import "time"

type User struct {
	ID                int64     `json:"id"`
	TelegramID        int64     `json:"telegram_id"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"display_name"`
	IsCompanion       bool      `json:"is_companion"`
	AcceptingBookings bool      `json:"accepting_bookings"` // Компаньон принимает новые запросы
	HourlyRate        int64     `json:"hourly_rate"`
	RatingAvg         float64   `json:"rating_avg"`
	RatingCount       int       `json:"rating_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// CanBeBooked проверяет что у пользователя можно забронировать время
func (u *User) CanBeBooked() bool {
	return u.IsCompanion && u.AcceptingBookings && u.HourlyRate > 0
}
