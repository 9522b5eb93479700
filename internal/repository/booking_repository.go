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

const bookingColumns = `
	id, hirer_id, companion_id, status, start_time, end_time, duration_minutes,
	base_price, platform_fee, surge_fee, total_price, payment_status,
	request_expires_at, payment_deadline,
	cancelled_by, cancelled_at, cancellation_reason, cancellation_kind,
	refund_amount, released_amount,
	confirmed_at, started_at, completed_at, created_at, updated_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(r *base.Repository) *BookingRepository {
	return &BookingRepository{Repository: r}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.HirerID,
		&b.CompanionID,
		&b.Status,
		&b.StartTime,
		&b.EndTime,
		&b.DurationMinutes,
		&b.BasePrice,
		&b.PlatformFee,
		&b.SurgeFee,
		&b.TotalPrice,
		&b.PaymentStatus,
		&b.RequestExpiresAt,
		&b.PaymentDeadline,
		&b.CancelledBy,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.CancellationKind,
		&b.RefundAmount,
		&b.ReleasedAmount,
		&b.ConfirmedAt,
		&b.StartedAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, base.MapError(err)
	}
	return bookings, nil
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, hirer_id, companion_id, status, start_time, end_time, duration_minutes,
			base_price, platform_fee, surge_fee, total_price, payment_status,
			request_expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`

	_, err := r.ExecAffected(ctx, query,
		b.ID,
		b.HirerID,
		b.CompanionID,
		b.Status,
		b.StartTime,
		b.EndTime,
		b.DurationMinutes,
		b.BasePrice,
		b.PlatformFee,
		b.SurgeFee,
		b.TotalPrice,
		b.PaymentStatus,
		b.RequestExpiresAt,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	b.UpdatedAt = b.CreatedAt
	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", base.MapError(err))
	}
	return b, nil
}

// GetByIDForUpdate читает бронирование с блокировкой строки (только внутри транзакции)
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock booking: %w", base.MapError(err))
	}
	return b, nil
}

// FindOverlapping ищет занимающие время компаньона бронирования,
// пересекающиеся с [start, end)
func (r *BookingRepository) FindOverlapping(ctx context.Context, companionID int64, start, end time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE companion_id = $1
		  AND status = ANY($2)
		  AND (
		        (start_time <= $3 AND end_time > $3)
		     OR (start_time < $4 AND end_time >= $4)
		     OR ($3 <= start_time AND $4 >= end_time)
		  )
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, companionID, statusStrings(model.BlockingStatuses), start, end)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return collectBookings(rows)
}

// Update сохраняет изменяемые поля бронирования
func (r *BookingRepository) Update(ctx context.Context, b *model.Booking) error {
	query := `
		UPDATE bookings SET
			status = $2,
			payment_status = $3,
			payment_deadline = $4,
			cancelled_by = $5,
			cancelled_at = $6,
			cancellation_reason = $7,
			cancellation_kind = $8,
			refund_amount = $9,
			released_amount = $10,
			confirmed_at = $11,
			started_at = $12,
			completed_at = $13,
			updated_at = $14
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query,
		b.ID,
		b.Status,
		b.PaymentStatus,
		b.PaymentDeadline,
		b.CancelledBy,
		b.CancelledAt,
		b.CancellationReason,
		b.CancellationKind,
		b.RefundAmount,
		b.ReleasedAmount,
		b.ConfirmedAt,
		b.StartedAt,
		b.CompletedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if affected == 0 {
		return model.NotFound("booking %s not found", b.ID)
	}
	return nil
}

// CountCreatedByHirer сколько запросов клиент создал в [from, to)
func (r *BookingRepository) CountCreatedByHirer(ctx context.Context, hirerID int64, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE hirer_id = $1 AND created_at >= $2 AND created_at < $3`

	var count int
	if err := r.QueryRow(ctx, query, hirerID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count hirer bookings: %w", base.MapError(err))
	}
	return count, nil
}

// CountCreatedByHirerForCompanion то же, но к конкретному компаньону
func (r *BookingRepository) CountCreatedByHirerForCompanion(ctx context.Context, hirerID, companionID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE hirer_id = $1 AND companion_id = $2 AND created_at >= $3 AND created_at < $4
	`

	var count int
	if err := r.QueryRow(ctx, query, hirerID, companionID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count hirer bookings for companion: %w", base.MapError(err))
	}
	return count, nil
}

// ListByCompanionInRange расписание компаньона: занимающие бронирования, пересекающие [from, to)
func (r *BookingRepository) ListByCompanionInRange(ctx context.Context, companionID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE companion_id = $1
		  AND status = ANY($2)
		  AND start_time < $4
		  AND end_time > $3
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, companionID, statusStrings(model.BlockingStatuses), from, to)
	if err != nil {
		return nil, fmt.Errorf("list companion schedule: %w", err)
	}
	return collectBookings(rows)
}

// ListByUser все бронирования пользователя (в любой роли), новые первыми
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE hirer_id = $1 OR companion_id = $1
		ORDER BY start_time DESC
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return collectBookings(rows)
}

// DueForStart подтверждённые и оплаченные бронирования, время которых наступило.
// exclude отсекает уже просмотренные в текущем проходе.
func (r *BookingRepository) DueForStart(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND payment_status = ANY($2) AND start_time <= $3
		  AND id <> ALL($4::uuid[])
		ORDER BY start_time, id
		LIMIT $5
	`
	captured := []string{string(model.PaymentStatusHeld), string(model.PaymentStatusPaid)}
	return r.listIDs(ctx, "due for start", query, model.BookingStatusConfirmed, captured, now, uuidStrings(exclude), limit)
}

// DueForCompletion активные бронирования, закончившиеся до endedBefore
func (r *BookingRepository) DueForCompletion(ctx context.Context, endedBefore time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND end_time <= $2
		  AND id <> ALL($3::uuid[])
		ORDER BY end_time, id
		LIMIT $4
	`
	return r.listIDs(ctx, "due for completion", query, model.BookingStatusActive, endedBefore, uuidStrings(exclude), limit)
}

// ExpiredRequests запросы без ответа компаньона с истёкшим сроком
func (r *BookingRepository) ExpiredRequests(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND request_expires_at <= $2
		  AND id <> ALL($3::uuid[])
		ORDER BY request_expires_at, id
		LIMIT $4
	`
	return r.listIDs(ctx, "expired requests", query, model.BookingStatusPending, now, uuidStrings(exclude), limit)
}

// UnpaidPastDeadline подтверждённые бронирования без оплаты после дедлайна
func (r *BookingRepository) UnpaidPastDeadline(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND payment_status = $2 AND payment_deadline <= $3
		  AND id <> ALL($4::uuid[])
		ORDER BY payment_deadline, id
		LIMIT $5
	`
	return r.listIDs(ctx, "unpaid past deadline", query,
		model.BookingStatusConfirmed, model.PaymentStatusPending, now, uuidStrings(exclude), limit)
}

func (r *BookingRepository) listIDs(ctx context.Context, what, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings %s: %w", what, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings %s: %w", what, base.MapError(err))
	}
	return ids, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func statusStrings(statuses []model.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
