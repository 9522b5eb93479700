package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transactor открывает транзакции; репозитории берут её из контекста
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithinSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindOverlapping(ctx context.Context, companionID int64, start, end time.Time) ([]*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	CountCreatedByHirer(ctx context.Context, hirerID int64, from, to time.Time) (int, error)
	CountCreatedByHirerForCompanion(ctx context.Context, hirerID, companionID int64, from, to time.Time) (int, error)
	ListByCompanionInRange(ctx context.Context, companionID int64, from, to time.Time) ([]*model.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error)

	DueForStart(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)
	DueForCompletion(ctx context.Context, endedBefore time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)
	ExpiredRequests(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)
	UnpaidPastDeadline(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.User, error)
	UpdateRating(ctx context.Context, userID int64, avg float64, count int) error
}

type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Review, error)
	GetByBookingAndReviewer(ctx context.Context, bookingID uuid.UUID, reviewerID int64) (*model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	ListByReviewee(ctx context.Context, revieweeID int64) ([]*model.Review, error)
}

type StrikeStore interface {
	Create(ctx context.Context, s *model.Strike) error
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Strike, error)
	Activate(ctx context.Context, id uuid.UUID) error
	Void(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	ListInForce(ctx context.Context, userID int64, now time.Time) ([]*model.Strike, error)
}

type EarningStore interface {
	Create(ctx context.Context, e *model.Earning) error
}

type ReportStore interface {
	Create(ctx context.Context, r *model.Report) error
}

// Stores набор хранилищ, общий для сервисов
type Stores struct {
	Tx       Transactor
	Bookings BookingStore
	Users    UserStore
	Reviews  ReviewStore
	Strikes  StrikeStore
	Earnings EarningStore
	Reports  ReportStore
}

// FeeProvider источник текущей комиссии платформы
type FeeProvider interface {
	PlatformFeeFraction(ctx context.Context) (decimal.Decimal, error)
}

// Notifier доставка уведомлений. Ошибки не влияют на бронирование.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// ContentReviewer проверка пользовательского текста
type ContentReviewer interface {
	ReviewText(ctx context.Context, text string) (model.ContentVerdict, error)
}

// Archiver планирует архивацию переписки после встречи
type Archiver interface {
	ScheduleArchive(ctx context.Context, req model.ArchiveRequest) error
}

// Clock источник текущего времени
type Clock func() time.Time
