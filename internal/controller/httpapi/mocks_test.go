package httpapi

import (
	"context"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) booking(args mock.Arguments) (*model.Booking, error) {
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error) {
	return m.booking(m.Called(ctx, in))
}

func (m *mockBookings) GetBooking(ctx context.Context, id uuid.UUID, userID int64) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, userID))
}

func (m *mockBookings) ListBookings(ctx context.Context, userID int64) ([]*model.Booking, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]*model.Booking)
	return list, args.Error(1)
}

func (m *mockBookings) ConfirmBooking(ctx context.Context, id uuid.UUID, companionID int64) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, companionID))
}

func (m *mockBookings) DeclineBooking(ctx context.Context, id uuid.UUID, companionID int64, reason string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, companionID, reason))
}

func (m *mockBookings) StartBooking(ctx context.Context, id uuid.UUID, companionID int64) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, companionID))
}

func (m *mockBookings) CompleteBooking(ctx context.Context, id uuid.UUID, companionID int64) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, companionID))
}

func (m *mockBookings) CompleteBookingEarly(ctx context.Context, id uuid.UUID, userID int64) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, userID))
}

func (m *mockBookings) CancelBooking(ctx context.Context, id uuid.UUID, userID int64, reason string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, userID, reason))
}

func (m *mockBookings) EmergencyCancelBooking(ctx context.Context, id uuid.UUID, userID int64, reason string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, userID, reason))
}

func (m *mockBookings) ReportNoShow(ctx context.Context, id uuid.UUID, reporterID int64, description string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, reporterID, description))
}

func (m *mockBookings) UpdateBookingStatus(ctx context.Context, id uuid.UUID, userID int64, target model.BookingStatus, reason string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, userID, target, reason))
}

func (m *mockBookings) RecordPaymentCaptured(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Booking, error) {
	return m.booking(m.Called(ctx, id, status))
}

func (m *mockBookings) GetSchedule(ctx context.Context, companionID int64, from, to time.Time) ([]model.TimeRange, error) {
	args := m.Called(ctx, companionID, from, to)
	busy, _ := args.Get(0).([]model.TimeRange)
	return busy, args.Error(1)
}

func (m *mockBookings) CheckAvailability(ctx context.Context, companionID int64, start, end time.Time) (bool, error) {
	args := m.Called(ctx, companionID, start, end)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookings) RunScheduledTransitions(ctx context.Context) ([]service.SweepResult, error) {
	args := m.Called(ctx)
	results, _ := args.Get(0).([]service.SweepResult)
	return results, args.Error(1)
}

type mockReviews struct {
	mock.Mock
}

func (m *mockReviews) review(args mock.Arguments) (*model.Review, error) {
	r, _ := args.Get(0).(*model.Review)
	return r, args.Error(1)
}

func (m *mockReviews) SubmitReview(ctx context.Context, in service.SubmitReviewInput) (*model.Review, error) {
	return m.review(m.Called(ctx, in))
}

func (m *mockReviews) EditReview(ctx context.Context, id uuid.UUID, reviewerID int64, rating int, comment string) (*model.Review, error) {
	return m.review(m.Called(ctx, id, reviewerID, rating, comment))
}

func (m *mockReviews) CanDisputeReview(ctx context.Context, id uuid.UUID, userID int64) (model.DisputeEligibility, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(model.DisputeEligibility), args.Error(1)
}

func (m *mockReviews) DisputeReview(ctx context.Context, id uuid.UUID, companionID int64, reason string) (*model.Review, error) {
	return m.review(m.Called(ctx, id, companionID, reason))
}

func (m *mockReviews) ResolveReviewDispute(ctx context.Context, id uuid.UUID, upheld bool) (*model.Review, error) {
	return m.review(m.Called(ctx, id, upheld))
}

func (m *mockReviews) ListReviews(ctx context.Context, revieweeID int64) ([]*model.Review, error) {
	args := m.Called(ctx, revieweeID)
	list, _ := args.Get(0).([]*model.Review)
	return list, args.Error(1)
}

type mockStrikes struct {
	mock.Mock
}

func (m *mockStrikes) ListActiveStrikes(ctx context.Context, userID int64) ([]*model.Strike, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]*model.Strike)
	return list, args.Error(1)
}

func (m *mockStrikes) VoidStrike(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockStrikes) ConfirmStrike(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockFees struct {
	mock.Mock
}

func (m *mockFees) SetPlatformFeeFraction(ctx context.Context, fee decimal.Decimal) error {
	return m.Called(ctx, fee).Error(0)
}
