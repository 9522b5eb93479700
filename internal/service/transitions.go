package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sideEffects выполняются только после успешного коммита
type sideEffects struct {
	events  []bookingEvent
	archive *model.ArchiveRequest
}

type bookingEvent struct {
	event       model.EventType
	recipientID int64
}

func notify(event model.EventType, recipients ...int64) *sideEffects {
	effects := &sideEffects{}
	for _, id := range recipients {
		effects.events = append(effects.events, bookingEvent{event: event, recipientID: id})
	}
	return effects
}

type applyFunc func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error)

// transition единственная точка смены статуса бронирования. Строка
// блокируется на время транзакции, побочные записи (выплата, страйк,
// жалоба) пишутся в той же транзакции.
func (s *BookingService) transition(
	ctx context.Context,
	bookingID uuid.UUID,
	actor model.Actor,
	kind model.TransitionKind,
	apply applyFunc,
) (*model.Booking, error) {
	rule, ok := model.Transitions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown transition %q", kind)
	}

	var (
		booking *model.Booking
		effects *sideEffects
		from    model.BookingStatus
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
		if err := rule.Authorize(kind, b, actor); err != nil {
			return err
		}

		from = b.Status
		if effects, err = apply(ctx, b, now); err != nil {
			return err
		}

		b.Status = rule.To
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

	s.logger.Info("Booking status changed",
		zap.String("booking_id", bookingID.String()),
		zap.String("transition", string(kind)),
		zap.String("from", string(from)),
		zap.String("to", string(booking.Status)),
		zap.Bool("system", actor.System),
		zap.Int64("actor_id", actor.UserID),
	)

	s.dispatch(ctx, booking, effects, now)
	return booking, nil
}

// settleCancellation переводит деньги по итогам отмены. Если оплата
// ещё не поступала, возвращать и выплачивать нечего.
func (s *BookingService) settleCancellation(
	ctx context.Context,
	b *model.Booking,
	settlement policy.Settlement,
	cancelledBy *int64,
	kind model.CancellationKind,
	reason string,
	now time.Time,
) error {
	if !b.PaymentStatus.IsCaptured() {
		settlement.RefundAmount = 0
		settlement.ReleasedAmount = 0
	}

	b.CancelledBy = cancelledBy
	b.CancelledAt = &now
	b.CancellationKind = &kind
	b.CancellationReason = reason
	b.RefundAmount = settlement.RefundAmount
	b.ReleasedAmount = settlement.ReleasedAmount

	if settlement.ReleasedAmount == 0 {
		b.PaymentStatus = model.PaymentStatusRefunded
		return nil
	}

	b.PaymentStatus = model.PaymentStatusReleased
	gross := b.TotalPrice - settlement.RefundAmount
	earning := &model.Earning{
		ID:          uuid.New(),
		BookingID:   b.ID,
		CompanionID: b.CompanionID,
		GrossAmount: gross,
		PlatformFee: gross - settlement.ReleasedAmount,
		NetAmount:   settlement.ReleasedAmount,
		CreatedAt:   now,
	}
	if err := s.stores.Earnings.Create(ctx, earning); err != nil {
		return fmt.Errorf("record cancellation earning: %w", err)
	}
	return nil
}

func (s *BookingService) issueStrike(
	ctx context.Context,
	userID int64,
	bookingID uuid.UUID,
	kind model.StrikeKind,
	status model.StrikeStatus,
	reason string,
	now time.Time,
) error {
	strike := &model.Strike{
		ID:        uuid.New(),
		UserID:    userID,
		BookingID: bookingID,
		Kind:      kind,
		Status:    status,
		Reason:    reason,
		IssuedAt:  now,
		ExpiresAt: s.engine.StrikeExpiresAt(now),
	}
	if err := s.stores.Strikes.Create(ctx, strike); err != nil {
		return fmt.Errorf("issue strike: %w", err)
	}

	s.logger.Info("Strike issued",
		zap.Int64("user_id", userID),
		zap.String("booking_id", bookingID.String()),
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
	)
	return nil
}

// dispatch отправляет уведомления и архивацию в фоне. Ошибки только логируются.
func (s *BookingService) dispatch(ctx context.Context, b *model.Booking, effects *sideEffects, now time.Time) {
	if effects == nil {
		return
	}
	bg := context.WithoutCancel(ctx)

	for _, e := range effects.events {
		n := bookingNotification(e.event, e.recipientID, b, now)
		s.background.Add(1)
		go func(n model.Notification) {
			defer s.background.Done()
			if err := s.notifier.Notify(bg, n); err != nil {
				s.logger.Warn("Failed to send notification",
					zap.String("event", string(n.Event)),
					zap.Int64("recipient_id", n.RecipientID),
					zap.String("booking_id", n.BookingID.String()),
					zap.Error(err),
				)
			}
		}(n)
	}

	if effects.archive != nil {
		req := *effects.archive
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.archiver.ScheduleArchive(bg, req); err != nil {
				s.logger.Warn("Failed to schedule conversation archive",
					zap.String("booking_id", req.BookingID.String()),
					zap.Error(err),
				)
			}
		}()
	}
}

func bookingNotification(event model.EventType, recipientID int64, b *model.Booking, now time.Time) model.Notification {
	payload := map[string]any{
		"status":       string(b.Status),
		"start_time":   b.StartTime,
		"end_time":     b.EndTime,
		"total_price":  b.TotalPrice,
		"hirer_id":     b.HirerID,
		"companion_id": b.CompanionID,
	}
	if b.RefundAmount > 0 {
		payload["refund_amount"] = b.RefundAmount
	}
	if b.CancellationReason != "" {
		payload["reason"] = b.CancellationReason
	}
	return model.Notification{
		Event:       event,
		RecipientID: recipientID,
		BookingID:   b.ID,
		Payload:     payload,
		OccurredAt:  now,
	}
}
