package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const strikeColumns = `id, user_id, booking_id, kind, status, reason, issued_at, expires_at, voided_at, void_reason`

type StrikeRepository struct {
	*base.Repository
}

func NewStrikeRepository(r *base.Repository) *StrikeRepository {
	return &StrikeRepository{Repository: r}
}

func scanStrike(row pgx.Row) (*model.Strike, error) {
	var s model.Strike
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.BookingID,
		&s.Kind,
		&s.Status,
		&s.Reason,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.VoidedAt,
		&s.VoidReason,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StrikeRepository) Create(ctx context.Context, s *model.Strike) error {
	query := `
		INSERT INTO strikes (id, user_id, booking_id, kind, status, reason, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.ExecAffected(ctx, query, s.ID, s.UserID, s.BookingID, s.Kind, s.Status, s.Reason, s.IssuedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create strike: %w", err)
	}
	return nil
}

func (r *StrikeRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Strike, error) {
	query := `SELECT ` + strikeColumns + ` FROM strikes WHERE id = $1 FOR UPDATE`

	s, err := scanStrike(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get strike: %w", base.MapError(err))
	}
	return s, nil
}

// Void аннулирует страйк
func (r *StrikeRepository) Void(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	query := `UPDATE strikes SET status = $2, void_reason = $3, voided_at = $4 WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, model.StrikeStatusVoided, reason, at)
	if err != nil {
		return fmt.Errorf("void strike: %w", err)
	}
	if affected == 0 {
		return model.NotFound("strike %s not found", id)
	}
	return nil
}

// Activate переводит страйк из проверки в активные
func (r *StrikeRepository) Activate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE strikes SET status = $2 WHERE id = $1`

	affected, err := r.ExecAffected(ctx, query, id, model.StrikeStatusActive)
	if err != nil {
		return fmt.Errorf("activate strike: %w", err)
	}
	if affected == 0 {
		return model.NotFound("strike %s not found", id)
	}
	return nil
}

// ListInForce действующие (не аннулированные и не истёкшие) страйки пользователя
func (r *StrikeRepository) ListInForce(ctx context.Context, userID int64, now time.Time) ([]*model.Strike, error) {
	query := `
		SELECT ` + strikeColumns + `
		FROM strikes
		WHERE user_id = $1 AND status <> $2 AND expires_at > $3
		ORDER BY issued_at DESC
	`

	rows, err := r.Query(ctx, query, userID, model.StrikeStatusVoided, now)
	if err != nil {
		return nil, fmt.Errorf("list strikes: %w", err)
	}
	defer rows.Close()

	var strikes []*model.Strike
	for rows.Next() {
		s, err := scanStrike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strike: %w", err)
		}
		strikes = append(strikes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list strikes: %w", base.MapError(err))
	}
	return strikes, nil
}
