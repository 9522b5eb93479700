package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reviewColumns = `
	id, booking_id, reviewer_id, reviewee_id, rating, comment,
	disputed, dispute_reason, disputed_at, dispute_resolution, resolved_at,
	created_at, updated_at`

type ReviewRepository struct {
	*base.Repository
}

func NewReviewRepository(r *base.Repository) *ReviewRepository {
	return &ReviewRepository{Repository: r}
}

func scanReview(row pgx.Row) (*model.Review, error) {
	var review model.Review
	err := row.Scan(
		&review.ID,
		&review.BookingID,
		&review.ReviewerID,
		&review.RevieweeID,
		&review.Rating,
		&review.Comment,
		&review.Disputed,
		&review.DisputeReason,
		&review.DisputedAt,
		&review.DisputeResolution,
		&review.ResolvedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Create сохраняет отзыв. Повтор по (booking, reviewer) даёт PolicyViolation.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, reviewee_id, rating, comment, dispute_resolution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	_, err := r.ExecAffected(ctx, query,
		review.ID,
		review.BookingID,
		review.ReviewerID,
		review.RevieweeID,
		review.Rating,
		review.Comment,
		review.DisputeResolution,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// GetByIDForUpdate получает отзыв с блокировкой строки
func (r *ReviewRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1 FOR UPDATE`

	review, err := scanReview(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", base.MapError(err))
	}
	return review, nil
}

// GetByBookingAndReviewer ищет отзыв автора по бронированию
func (r *ReviewRepository) GetByBookingAndReviewer(ctx context.Context, bookingID uuid.UUID, reviewerID int64) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE booking_id = $1 AND reviewer_id = $2`

	review, err := scanReview(r.QueryRow(ctx, query, bookingID, reviewerID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review by booking: %w", base.MapError(err))
	}
	return review, nil
}

// Update сохраняет оценку, текст и состояние спора
func (r *ReviewRepository) Update(ctx context.Context, review *model.Review) error {
	query := `
		UPDATE reviews SET
			rating = $2,
			comment = $3,
			disputed = $4,
			dispute_reason = $5,
			disputed_at = $6,
			dispute_resolution = $7,
			resolved_at = $8,
			updated_at = $9
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query,
		review.ID,
		review.Rating,
		review.Comment,
		review.Disputed,
		review.DisputeReason,
		review.DisputedAt,
		review.DisputeResolution,
		review.ResolvedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if affected == 0 {
		return model.NotFound("review %s not found", review.ID)
	}
	return nil
}

// ListByReviewee все отзывы о пользователе
func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID int64) ([]*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC`

	rows, err := r.Query(ctx, query, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: %w", base.MapError(err))
	}
	return reviews, nil
}
