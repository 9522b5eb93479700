package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxScheduleRange = 62 * 24 * time.Hour

type BookingService struct {
	stores   Stores
	engine   *policy.Engine
	fees     FeeProvider
	notifier Notifier
	archiver Archiver
	now      Clock
	logger   *zap.Logger

	scanBatch int // Размер страницы выборки планировщика

	// Фоновые уведомления после коммита
	background sync.WaitGroup
}

func NewBookingService(
	stores Stores,
	engine *policy.Engine,
	fees FeeProvider,
	notifier Notifier,
	archiver Archiver,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		stores:   stores,
		engine:   engine,
		fees:     fees,
		notifier: notifier,
		archiver: archiver,
		now:      time.Now,
		logger:   logger,

		scanBatch: defaultScanBatch,
	}
}

// WithClock подменяет источник времени
func (s *BookingService) WithClock(clock Clock) *BookingService {
	s.now = clock
	return s
}

// Wait дожидается отправки фоновых уведомлений
func (s *BookingService) Wait() {
	s.background.Wait()
}

type CreateBookingInput struct {
	HirerID     int64
	CompanionID int64
	StartTime   time.Time
	EndTime     time.Time
}

// CreateBooking создаёт запрос на бронирование без пересечений по времени компаньона
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	now := s.now()

	if !in.EndTime.After(in.StartTime) {
		return nil, model.Validation("end time must be after start time").
			With("start_time", in.StartTime).
			With("end_time", in.EndTime)
	}
	if err := s.engine.CheckDuration(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if !in.StartTime.After(now) {
		return nil, model.Validation("start time must be in the future")
	}
	if in.HirerID == in.CompanionID {
		return nil, model.Validation("cannot book yourself")
	}

	hirer, err := s.stores.Users.GetByID(ctx, in.HirerID)
	if err != nil {
		return nil, fmt.Errorf("get hirer: %w", err)
	}
	if hirer == nil {
		return nil, model.NotFound("user %d not found", in.HirerID)
	}

	companion, err := s.stores.Users.GetByID(ctx, in.CompanionID)
	if err != nil {
		return nil, fmt.Errorf("get companion: %w", err)
	}
	if companion == nil {
		return nil, model.NotFound("companion %d not found", in.CompanionID)
	}
	if !companion.CanBeBooked() {
		return nil, model.PolicyViolation("companion is not accepting bookings")
	}

	// Лимиты проверяются до транзакции: дешёвый отказ без блокировок
	if err := s.checkLimits(ctx, in.HirerID, in.CompanionID, now); err != nil {
		return nil, err
	}

	feeFraction, err := s.fees.PlatformFeeFraction(ctx)
	if err != nil {
		return nil, fmt.Errorf("get platform fee: %w", err)
	}

	quote, err := s.engine.Price(policy.PriceRequest{
		HourlyRate:  companion.HourlyRate,
		Start:       in.StartTime,
		End:         in.EndTime,
		CreatedAt:   now,
		FeeFraction: feeFraction,
	})
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:               uuid.New(),
		HirerID:          in.HirerID,
		CompanionID:      in.CompanionID,
		Status:           model.BookingStatusPending,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		DurationMinutes:  quote.DurationMinutes,
		BasePrice:        quote.BasePrice,
		PlatformFee:      quote.PlatformFee,
		SurgeFee:         quote.SurgeFee,
		TotalPrice:       quote.TotalPrice,
		PaymentStatus:    model.PaymentStatusPending,
		RequestExpiresAt: s.engine.RequestExpiresAt(now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.stores.Tx.WithinSerializableTx(ctx, func(ctx context.Context) error {
		overlapping, err := s.stores.Bookings.FindOverlapping(ctx, in.CompanionID, in.StartTime, in.EndTime)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if len(overlapping) > 0 {
			return model.Conflict("companion is already booked for this time").
				With("conflicting_booking_id", overlapping[0].ID.String())
		}
		return s.stores.Bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking requested",
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("hirer_id", booking.HirerID),
		zap.Int64("companion_id", booking.CompanionID),
		zap.Time("start_time", booking.StartTime),
		zap.Int64("total_price", booking.TotalPrice),
		zap.String("holiday", quote.Holiday),
	)

	s.dispatch(ctx, booking, notify(model.EventBookingRequested, booking.CompanionID), now)

	return booking, nil
}

func (s *BookingService) checkLimits(ctx context.Context, hirerID, companionID int64, now time.Time) error {
	dayStart, dayEnd := s.engine.DayWindow(now)
	weekStart, weekEnd := s.engine.WeekWindow(now)

	var (
		counts policy.RequestCounts
		err    error
	)
	if counts.Day, err = s.stores.Bookings.CountCreatedByHirer(ctx, hirerID, dayStart, dayEnd); err != nil {
		return fmt.Errorf("count daily requests: %w", err)
	}
	if counts.Week, err = s.stores.Bookings.CountCreatedByHirer(ctx, hirerID, weekStart, weekEnd); err != nil {
		return fmt.Errorf("count weekly requests: %w", err)
	}
	if counts.SameCompanionDay, err = s.stores.Bookings.CountCreatedByHirerForCompanion(ctx, hirerID, companionID, dayStart, dayEnd); err != nil {
		return fmt.Errorf("count companion requests: %w", err)
	}

	return s.engine.CheckLimits(counts, now)
}

// ConfirmBooking компаньон принимает запрос
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.UserActor(companionID), model.TransitionConfirm,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			if !now.Before(b.RequestExpiresAt) {
				return nil, model.PolicyViolation("booking request has expired")
			}
			deadline := s.engine.PaymentDeadline(now, b.StartTime)
			b.ConfirmedAt = &now
			b.PaymentDeadline = &deadline

			return notify(model.EventBookingConfirmed, b.HirerID), nil
		})
}

// StartBooking ручной старт компаньоном (возможен раньше времени начала)
func (s *BookingService) StartBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error) {
	return s.start(ctx, bookingID, model.UserActor(companionID))
}

func (s *BookingService) start(ctx context.Context, bookingID uuid.UUID, actor model.Actor) (*model.Booking, error) {
	return s.transition(ctx, bookingID, actor, model.TransitionStart,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			if !b.PaymentStatus.IsCaptured() {
				return nil, model.PolicyViolation("payment has not been captured").
					With("payment_status", string(b.PaymentStatus))
			}
			if actor.System && now.Before(b.StartTime) {
				return nil, model.PolicyViolation("booking has not reached its start time")
			}
			b.StartedAt = &now

			return notify(model.EventBookingStarted, b.HirerID, b.CompanionID), nil
		})
}

// CompleteBooking компаньон завершает встречу после её окончания
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID, companionID int64) (*model.Booking, error) {
	return s.complete(ctx, bookingID, model.UserActor(companionID))
}

func (s *BookingService) complete(ctx context.Context, bookingID uuid.UUID, actor model.Actor) (*model.Booking, error) {
	return s.transition(ctx, bookingID, actor, model.TransitionComplete,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			if actor.System {
				if now.Before(s.engine.AutoCompleteAt(b.EndTime)) {
					return nil, model.PolicyViolation("auto-complete grace period has not elapsed")
				}
			} else if now.Before(b.EndTime) {
				return nil, model.PolicyViolation("booking has not ended yet, use early completion").
					With("end_time", b.EndTime)
			}
			return s.settleCompletion(ctx, b, now)
		})
}

// CompleteBookingEarly любой участник завершает активную встречу досрочно
func (s *BookingService) CompleteBookingEarly(ctx context.Context, bookingID uuid.UUID, userID int64) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.UserActor(userID), model.TransitionCompleteEarly,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			return s.settleCompletion(ctx, b, now)
		})
}

// settleCompletion выплата компаньону полной суммы за вычетом комиссии
func (s *BookingService) settleCompletion(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
	net := b.TotalPrice - b.PlatformFee
	b.CompletedAt = &now
	b.PaymentStatus = model.PaymentStatusReleased
	b.ReleasedAmount = net
	b.RefundAmount = 0

	earning := &model.Earning{
		ID:          uuid.New(),
		BookingID:   b.ID,
		CompanionID: b.CompanionID,
		GrossAmount: b.TotalPrice,
		PlatformFee: b.PlatformFee,
		NetAmount:   net,
		CreatedAt:   now,
	}
	if err := s.stores.Earnings.Create(ctx, earning); err != nil {
		return nil, fmt.Errorf("record earning: %w", err)
	}

	effects := notify(model.EventBookingCompleted, b.HirerID, b.CompanionID)
	effects.archive = &model.ArchiveRequest{
		BookingID: b.ID,
		PartyA:    b.HirerID,
		PartyB:    b.CompanionID,
		At:        s.engine.ArchiveAt(now),
	}
	return effects, nil
}

// CancelBooking отмена любым участником до начала встречи.
// Клиент платит по шкале возвратов, при отмене компаньоном полный возврат.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID int64, reason string) (*model.Booking, error) {
	actor := model.UserActor(userID)
	return s.transition(ctx, bookingID, actor, model.TransitionCancel,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			kind := model.CancellationByCompanion
			settlement := policy.FullRefund(b.TotalPrice)
			if actor.RoleIn(b) == model.RoleHirer {
				kind = model.CancellationByHirer
				settlement = s.engine.HirerCancellation(b.TotalPrice, b.PlatformFee, b.StartTime, now)
			}

			if settlement.IssueStrike {
				if err := s.issueStrike(ctx, b.HirerID, b.ID, model.StrikeKindLateCancellation, model.StrikeStatusActive,
					"cancelled less than 24 hours before start", now); err != nil {
					return nil, err
				}
			}
			if err := s.settleCancellation(ctx, b, settlement, &userID, kind, reason, now); err != nil {
				return nil, err
			}

			return notify(model.EventBookingCancelled, b.Counterpart(userID)), nil
		})
}

// DeclineBooking компаньон отклоняет запрос
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID uuid.UUID, companionID int64, reason string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.UserActor(companionID), model.TransitionDecline,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			if err := s.settleCancellation(ctx, b, policy.FullRefund(b.TotalPrice), &companionID,
				model.CancellationDeclined, reason, now); err != nil {
				return nil, err
			}
			return notify(model.EventBookingDeclined, b.HirerID), nil
		})
}

// EmergencyCancelBooking отмена без штрафной шкалы. Причина обязательна,
// на отменившего заводится страйк на ручную проверку.
func (s *BookingService) EmergencyCancelBooking(ctx context.Context, bookingID uuid.UUID, userID int64, reason string) (*model.Booking, error) {
	if reason == "" {
		return nil, model.Validation("emergency cancellation requires a reason")
	}

	return s.transition(ctx, bookingID, model.UserActor(userID), model.TransitionEmergencyCancel,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			if err := s.issueStrike(ctx, userID, b.ID, model.StrikeKindEmergencyCancellation, model.StrikeStatusPending,
				reason, now); err != nil {
				return nil, err
			}
			if err := s.settleCancellation(ctx, b, policy.FullRefund(b.TotalPrice), &userID,
				model.CancellationEmergency, reason, now); err != nil {
				return nil, err
			}
			return notify(model.EventBookingCancelled, b.Counterpart(userID)), nil
		})
}

// ReportNoShow участник сообщает о неявке второго: встреча уходит в спор
func (s *BookingService) ReportNoShow(ctx context.Context, bookingID uuid.UUID, reporterID int64, description string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, model.UserActor(reporterID), model.TransitionReportNoShow,
		func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
			reported := b.Counterpart(reporterID)
			report := &model.Report{
				ID:          uuid.New(),
				BookingID:   b.ID,
				ReporterID:  reporterID,
				ReportedID:  reported,
				Kind:        model.ReportKindNoShow,
				Description: description,
				CreatedAt:   now,
			}
			if err := s.stores.Reports.Create(ctx, report); err != nil {
				return nil, fmt.Errorf("create report: %w", err)
			}
			if err := s.issueStrike(ctx, reported, b.ID, model.StrikeKindNoShow, model.StrikeStatusPending,
				"reported no-show", now); err != nil {
				return nil, err
			}

			return notify(model.EventBookingDisputed, reported), nil
		})
}

// RecordPaymentCaptured отметка платёжного шлюза о получении денег
func (s *BookingService) RecordPaymentCaptured(ctx context.Context, bookingID uuid.UUID, status model.PaymentStatus) (*model.Booking, error) {
	if !status.IsCaptured() {
		return nil, model.Validation("payment status must be held or paid").
			With("payment_status", string(status))
	}

	var (
		booking *model.Booking
		now     = s.now()
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.stores.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return model.NotFound("booking %s not found", bookingID)
		}
		if b.Status != model.BookingStatusPending && b.Status != model.BookingStatusConfirmed {
			return model.InvalidTransition("cannot capture payment for booking in status %s", b.Status).
				With("current_status", string(b.Status))
		}
		if b.PaymentStatus != model.PaymentStatusPending {
			return model.PolicyViolation("payment already recorded").
				With("payment_status", string(b.PaymentStatus))
		}

		b.PaymentStatus = status
		b.UpdatedAt = now
		if err := s.stores.Bookings.Update(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment captured",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_status", string(status)),
	)

	s.dispatch(ctx, booking, notify(model.EventPaymentCaptured, booking.CompanionID), now)
	return booking, nil
}

// UpdateBookingStatus общий вход по целевому статусу; выбирает переход
// по текущему статусу и роли инициатора
func (s *BookingService) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, userID int64, target model.BookingStatus, reason string) (*model.Booking, error) {
	if !target.Valid() {
		return nil, model.Validation("unknown status %q", target)
	}

	b, err := s.stores.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, model.NotFound("booking %s not found", bookingID)
	}
	role := model.UserActor(userID).RoleIn(b)

	switch target {
	case model.BookingStatusConfirmed:
		return s.ConfirmBooking(ctx, bookingID, userID)
	case model.BookingStatusActive:
		return s.StartBooking(ctx, bookingID, userID)
	case model.BookingStatusCompleted:
		if role == model.RoleCompanion && !s.now().Before(b.EndTime) {
			return s.CompleteBooking(ctx, bookingID, userID)
		}
		return s.CompleteBookingEarly(ctx, bookingID, userID)
	case model.BookingStatusCancelled:
		if role == model.RoleCompanion && b.Status == model.BookingStatusPending {
			return s.DeclineBooking(ctx, bookingID, userID, reason)
		}
		return s.CancelBooking(ctx, bookingID, userID, reason)
	case model.BookingStatusDisputed:
		return s.ReportNoShow(ctx, bookingID, userID, reason)
	}
	return nil, model.InvalidTransition("cannot move booking to %s", target).
		With("current_status", string(b.Status))
}

// GetBooking бронирование доступно только участникам
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, userID int64) (*model.Booking, error) {
	b, err := s.stores.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, model.NotFound("booking %s not found", bookingID)
	}
	if !b.IsParty(userID) {
		return nil, model.Forbidden("user %d is not a party to booking %s", userID, bookingID)
	}
	return b, nil
}

// ListBookings бронирования пользователя в любой роли
func (s *BookingService) ListBookings(ctx context.Context, userID int64) ([]*model.Booking, error) {
	bookings, err := s.stores.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// GetSchedule занятые интервалы компаньона в [from, to)
func (s *BookingService) GetSchedule(ctx context.Context, companionID int64, from, to time.Time) ([]model.TimeRange, error) {
	if !to.After(from) {
		return nil, model.Validation("schedule range end must be after start")
	}
	if to.Sub(from) > maxScheduleRange {
		return nil, model.Validation("schedule range is too long").
			With("max_days", int(maxScheduleRange/(24*time.Hour)))
	}

	bookings, err := s.stores.Bookings.ListByCompanionInRange(ctx, companionID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	busy := make([]model.TimeRange, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, model.TimeRange{Start: b.StartTime, End: b.EndTime})
	}
	return busy, nil
}

// CheckAvailability свободен ли компаньон в [start, end). Результат
// не резервирует время: окончательная проверка идёт при создании.
func (s *BookingService) CheckAvailability(ctx context.Context, companionID int64, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, model.Validation("end time must be after start time")
	}

	overlapping, err := s.stores.Bookings.FindOverlapping(ctx, companionID, start, end)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return len(overlapping) == 0, nil
}
