package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `
	id, COALESCE(telegram_id, 0), username, display_name, is_companion, accepting_bookings,
	hourly_rate, rating_avg::float8, rating_count, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(r *base.Repository) *UserRepository {
	return &UserRepository{Repository: r}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.DisplayName,
		&user.IsCompanion,
		&user.AcceptingBookings,
		&user.HourlyRate,
		&user.RatingAvg,
		&user.RatingCount,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, display_name, is_companion, accepting_bookings, hourly_rate)
		VALUES (NULLIF($1, 0), $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.DisplayName,
		user.IsCompanion,
		user.AcceptingBookings,
		user.HourlyRate,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", base.MapError(err))
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by id: %w", base.MapError(err))
	}

	return user, nil
}

// GetByIDForUpdate блокирует строку пользователя до конца транзакции
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock user: %w", base.MapError(err))
	}

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", base.MapError(err))
	}

	return user, nil
}

// UpdateCompanionProfile меняет ставку и приём заявок
func (r *UserRepository) UpdateCompanionProfile(ctx context.Context, userID int64, hourlyRate int64, accepting bool) error {
	query := `
		UPDATE users
		SET is_companion = TRUE, hourly_rate = $2, accepting_bookings = $3
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, userID, hourlyRate, accepting)
	if err != nil {
		return fmt.Errorf("update companion profile: %w", err)
	}
	if affected == 0 {
		return model.NotFound("user %d not found", userID)
	}
	return nil
}

// UpdateRating записывает пересчитанный рейтинг
func (r *UserRepository) UpdateRating(ctx context.Context, userID int64, avg float64, count int) error {
	query := `UPDATE users SET rating_avg = $2, rating_count = $3 WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, userID, avg, count)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if affected == 0 {
		return model.NotFound("user %d not found", userID)
	}
	return nil
}
