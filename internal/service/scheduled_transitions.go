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

const defaultScanBatch = 200

// SweepResult итог одного прохода задачи планировщика
type SweepResult struct {
	Task      string `json:"task"`
	Scanned   int    `json:"scanned"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// AutoStartDue переводит в ACTIVE оплаченные бронирования, время которых наступило
func (s *BookingService) AutoStartDue(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, "auto_start",
		func(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
			return s.stores.Bookings.DueForStart(ctx, now, exclude, limit)
		},
		func(ctx context.Context, id uuid.UUID) error {
			_, err := s.start(ctx, id, model.SystemActor())
			return err
		})
}

// AutoCompleteDue закрывает активные встречи после окончания и льготного периода
func (s *BookingService) AutoCompleteDue(ctx context.Context) (SweepResult, error) {
	grace := s.engine.Config().AutoCompleteGrace
	return s.sweep(ctx, "auto_complete",
		func(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
			return s.stores.Bookings.DueForCompletion(ctx, now.Add(-grace), exclude, limit)
		},
		func(ctx context.Context, id uuid.UUID) error {
			_, err := s.complete(ctx, id, model.SystemActor())
			return err
		})
}

// ExpirePendingRequests отменяет запросы, на которые компаньон не ответил вовремя
func (s *BookingService) ExpirePendingRequests(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, "expire_pending",
		func(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
			return s.stores.Bookings.ExpiredRequests(ctx, now, exclude, limit)
		},
		func(ctx context.Context, id uuid.UUID) error {
			_, err := s.transition(ctx, id, model.SystemActor(), model.TransitionExpire,
				func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
					if now.Before(b.RequestExpiresAt) {
						return nil, model.PolicyViolation("booking request has not expired")
					}
					if err := s.settleCancellation(ctx, b, policy.FullRefund(b.TotalPrice), nil,
						model.CancellationExpired, "request expired", now); err != nil {
						return nil, err
					}
					return notify(model.EventBookingExpired, b.HirerID, b.CompanionID), nil
				})
			return err
		})
}

// ExpireUnpaidBookings отменяет подтверждённые бронирования без оплаты к дедлайну
func (s *BookingService) ExpireUnpaidBookings(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, "expire_unpaid",
		func(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error) {
			return s.stores.Bookings.UnpaidPastDeadline(ctx, now, exclude, limit)
		},
		func(ctx context.Context, id uuid.UUID) error {
			_, err := s.transition(ctx, id, model.SystemActor(), model.TransitionExpireUnpaid,
				func(ctx context.Context, b *model.Booking, now time.Time) (*sideEffects, error) {
					if b.PaymentStatus != model.PaymentStatusPending {
						return nil, model.PolicyViolation("payment already recorded")
					}
					if b.PaymentDeadline == nil || now.Before(*b.PaymentDeadline) {
						return nil, model.PolicyViolation("payment deadline has not passed")
					}
					if err := s.settleCancellation(ctx, b, policy.FullRefund(b.TotalPrice), nil,
						model.CancellationUnpaid, "payment not received before deadline", now); err != nil {
						return nil, err
					}
					return notify(model.EventBookingExpired, b.HirerID, b.CompanionID), nil
				})
			return err
		})
}

// RunScheduledTransitions один проход всех задач подряд
func (s *BookingService) RunScheduledTransitions(ctx context.Context) ([]SweepResult, error) {
	tasks := []func(context.Context) (SweepResult, error){
		s.ExpirePendingRequests,
		s.ExpireUnpaidBookings,
		s.AutoStartDue,
		s.AutoCompleteDue,
	}

	results := make([]SweepResult, 0, len(tasks))
	for _, task := range tasks {
		res, err := task(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

type listFunc func(ctx context.Context, now time.Time, exclude []uuid.UUID, limit int) ([]uuid.UUID, error)

// sweep выбирает кандидатов страницами и применяет переход к каждому
// отдельно. Просмотренные в этом проходе id исключаются из следующих
// страниц, поэтому бронирования, падающие на каждом цикле, не заслоняют
// остальных. Ошибка по одному бронированию не прерывает проход.
func (s *BookingService) sweep(
	ctx context.Context,
	task string,
	list listFunc,
	apply func(ctx context.Context, id uuid.UUID) error,
) (SweepResult, error) {
	res := SweepResult{Task: task}
	now := s.now()
	batch := s.scanBatch
	if batch <= 0 {
		batch = defaultScanBatch
	}

	var seen []uuid.UUID
	for {
		ids, err := list(ctx, now, seen, batch)
		if err != nil {
			return res, fmt.Errorf("%s: list candidates: %w", task, err)
		}
		res.Scanned += len(ids)

		for _, id := range ids {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if err := apply(ctx, id); err != nil {
				res.Failed++
				s.logger.Warn("Scheduled transition failed",
					zap.String("task", task),
					zap.String("booking_id", id.String()),
					zap.String("kind", string(model.KindOf(err))),
					zap.Error(err),
				)
				continue
			}
			res.Succeeded++
		}

		seen = append(seen, ids...)
		if len(ids) < batch {
			break
		}
	}

	if res.Scanned > 0 {
		s.logger.Info("Scheduled transitions processed",
			zap.String("task", task),
			zap.Int("scanned", res.Scanned),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}
