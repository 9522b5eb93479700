package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/google/uuid"
)

// EarningRepository журнал выплат компаньонам, только вставка
type EarningRepository struct {
	*base.Repository
}

func NewEarningRepository(r *base.Repository) *EarningRepository {
	return &EarningRepository{Repository: r}
}

func (r *EarningRepository) Create(ctx context.Context, e *model.Earning) error {
	query := `
		INSERT INTO earnings (id, booking_id, companion_id, gross_amount, platform_fee, net_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.ExecAffected(ctx, query, e.ID, e.BookingID, e.CompanionID, e.GrossAmount, e.PlatformFee, e.NetAmount, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create earning: %w", err)
	}
	return nil
}

func (r *EarningRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Earning, error) {
	query := `
		SELECT id, booking_id, companion_id, gross_amount, platform_fee, net_amount, created_at
		FROM earnings
		WHERE booking_id = $1
	`

	var e model.Earning
	err := r.QueryRow(ctx, query, bookingID).Scan(
		&e.ID,
		&e.BookingID,
		&e.CompanionID,
		&e.GrossAmount,
		&e.PlatformFee,
		&e.NetAmount,
		&e.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get earning: %w", base.MapError(err))
	}
	return &e, nil
}

type ReportRepository struct {
	*base.Repository
}

func NewReportRepository(r *base.Repository) *ReportRepository {
	return &ReportRepository{Repository: r}
}

func (r *ReportRepository) Create(ctx context.Context, rep *model.Report) error {
	query := `
		INSERT INTO reports (id, booking_id, reporter_id, reported_id, kind, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.ExecAffected(ctx, query, rep.ID, rep.BookingID, rep.ReporterID, rep.ReportedID, rep.Kind, rep.Description, rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// ArchiveRepository отметки об архивации переписки после встречи
type ArchiveRepository struct {
	*base.Repository
}

func NewArchiveRepository(r *base.Repository) *ArchiveRepository {
	return &ArchiveRepository{Repository: r}
}

// MarkArchived идемпотентно отмечает переписку как архивную
func (r *ArchiveRepository) MarkArchived(ctx context.Context, bookingID uuid.UUID, partyA, partyB int64, at time.Time) error {
	query := `
		INSERT INTO conversation_archives (booking_id, party_a, party_b, archived_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id) DO NOTHING
	`

	if _, err := r.ExecAffected(ctx, query, bookingID, partyA, partyB, at); err != nil {
		return fmt.Errorf("mark conversation archived: %w", err)
	}
	return nil
}
