package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StrikeService struct {
	stores Stores
	now    Clock
	logger *zap.Logger
}

func NewStrikeService(stores Stores, logger *zap.Logger) *StrikeService {
	return &StrikeService{stores: stores, now: time.Now, logger: logger}
}

func (s *StrikeService) WithClock(clock Clock) *StrikeService {
	s.now = clock
	return s
}

// ListActiveStrikes действующие страйки пользователя (активные и на проверке)
func (s *StrikeService) ListActiveStrikes(ctx context.Context, userID int64) ([]*model.Strike, error) {
	strikes, err := s.stores.Strikes.ListInForce(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list strikes: %w", err)
	}
	return strikes, nil
}

// VoidStrike аннулирование страйка по итогам ручной проверки
func (s *StrikeService) VoidStrike(ctx context.Context, strikeID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Validation("void reason is required")
	}

	now := s.now()
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		strike, err := s.stores.Strikes.GetByIDForUpdate(ctx, strikeID)
		if err != nil {
			return fmt.Errorf("get strike: %w", err)
		}
		if strike == nil {
			return model.NotFound("strike %s not found", strikeID)
		}
		if strike.Status == model.StrikeStatusVoided {
			return model.PolicyViolation("strike is already voided")
		}
		return s.stores.Strikes.Void(ctx, strikeID, reason, now)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Strike voided",
		zap.String("strike_id", strikeID.String()),
		zap.String("reason", reason),
	)
	return nil
}

// ConfirmStrike подтверждает страйк, ожидавший ручной проверки
func (s *StrikeService) ConfirmStrike(ctx context.Context, strikeID uuid.UUID) error {
	var userID int64
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		strike, err := s.stores.Strikes.GetByIDForUpdate(ctx, strikeID)
		if err != nil {
			return fmt.Errorf("get strike: %w", err)
		}
		if strike == nil {
			return model.NotFound("strike %s not found", strikeID)
		}
		if strike.Status != model.StrikeStatusPending {
			return model.PolicyViolation("only pending strikes can be confirmed").
				With("status", string(strike.Status))
		}
		userID = strike.UserID
		return s.stores.Strikes.Activate(ctx, strikeID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Strike confirmed",
		zap.String("strike_id", strikeID.String()),
		zap.Int64("user_id", userID),
	)
	return nil
}
