package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentLength = 2000

type ReviewService struct {
	stores   Stores
	engine   *policy.Engine
	content  ContentReviewer
	notifier Notifier
	now      Clock
	logger   *zap.Logger

	background sync.WaitGroup
}

func NewReviewService(
	stores Stores,
	engine *policy.Engine,
	content ContentReviewer,
	notifier Notifier,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		stores:   stores,
		engine:   engine,
		content:  content,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *ReviewService) WithClock(clock Clock) *ReviewService {
	s.now = clock
	return s
}

// Wait дожидается фоновых уведомлений
func (s *ReviewService) Wait() {
	s.background.Wait()
}

type SubmitReviewInput struct {
	BookingID  uuid.UUID
	ReviewerID int64
	Rating     int
	Comment    string
}

// SubmitReview клиент оценивает завершённую встречу
func (s *ReviewService) SubmitReview(ctx context.Context, in SubmitReviewInput) (*model.Review, error) {
	if err := policy.ValidateRating(in.Rating); err != nil {
		return nil, err
	}
	comment, err := s.checkComment(ctx, in.Comment)
	if err != nil {
		return nil, err
	}

	now := s.now()
	review := &model.Review{
		ID:                uuid.New(),
		BookingID:         in.BookingID,
		ReviewerID:        in.ReviewerID,
		Rating:            in.Rating,
		Comment:           comment,
		DisputeResolution: model.DisputeResolutionNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.stores.Bookings.GetByID(ctx, in.BookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return model.NotFound("booking %s not found", in.BookingID)
		}
		if b.HirerID != in.ReviewerID {
			return model.Forbidden("only the hirer can review this booking")
		}
		if b.Status != model.BookingStatusCompleted || b.CompletedAt == nil {
			return model.PolicyViolation("booking is not completed").
				With("status", string(b.Status))
		}
		if !s.engine.CanReview(*b.CompletedAt, now) {
			return model.PolicyViolation("review window has closed").
				With("completed_at", *b.CompletedAt)
		}

		existing, err := s.stores.Reviews.GetByBookingAndReviewer(ctx, b.ID, in.ReviewerID)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if existing != nil {
			return model.PolicyViolation("booking has already been reviewed").
				With("review_id", existing.ID.String())
		}

		review.RevieweeID = b.CompanionID
		if err := s.lockReviewee(ctx, b.CompanionID); err != nil {
			return err
		}
		if err := s.stores.Reviews.Create(ctx, review); err != nil {
			return err
		}
		return s.recomputeRating(ctx, b.CompanionID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("booking_id", review.BookingID.String()),
		zap.Int64("reviewee_id", review.RevieweeID),
		zap.Int("rating", review.Rating),
	)
	s.notify(ctx, model.EventReviewReceived, review.RevieweeID, review, now)

	return review, nil
}

// EditReview автор правит отзыв в течение окна редактирования
func (s *ReviewService) EditReview(ctx context.Context, reviewID uuid.UUID, reviewerID int64, rating int, comment string) (*model.Review, error) {
	if err := policy.ValidateRating(rating); err != nil {
		return nil, err
	}
	comment, err := s.checkComment(ctx, comment)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var review *model.Review
	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.stores.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if r == nil {
			return model.NotFound("review %s not found", reviewID)
		}
		if r.ReviewerID != reviewerID {
			return model.Forbidden("only the author can edit a review")
		}
		if r.Disputed {
			return model.PolicyViolation("disputed review cannot be edited")
		}
		if !s.engine.CanEditReview(r.CreatedAt, now) {
			return model.PolicyViolation("edit window has closed").
				With("created_at", r.CreatedAt)
		}

		r.Rating = rating
		r.Comment = comment
		r.UpdatedAt = now
		if err := s.lockReviewee(ctx, r.RevieweeID); err != nil {
			return err
		}
		if err := s.stores.Reviews.Update(ctx, r); err != nil {
			return err
		}
		review = r
		return s.recomputeRating(ctx, r.RevieweeID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review edited",
		zap.String("review_id", reviewID.String()),
		zap.Int("rating", rating),
	)
	return review, nil
}

// CanDisputeReview может ли пользователь оспорить отзыв, и если нет, то почему
func (s *ReviewService) CanDisputeReview(ctx context.Context, reviewID uuid.UUID, userID int64) (model.DisputeEligibility, error) {
	var eligibility model.DisputeEligibility
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.stores.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if r == nil {
			return model.NotFound("review %s not found", reviewID)
		}
		eligibility = s.disputeEligibility(r, userID, s.now())
		return nil
	})
	return eligibility, err
}

func (s *ReviewService) disputeEligibility(r *model.Review, userID int64, now time.Time) model.DisputeEligibility {
	switch {
	case r.RevieweeID != userID:
		return model.DisputeEligibility{Reason: "only the reviewed companion can dispute this review"}
	case r.Disputed:
		return model.DisputeEligibility{Reason: "review has already been disputed"}
	case !s.engine.CanDisputeReview(r.CreatedAt, now):
		return model.DisputeEligibility{Reason: "dispute window has closed"}
	}
	return model.DisputeEligibility{CanDispute: true}
}

// DisputeReview компаньон оспаривает отзыв; до решения отзыв не учитывается в рейтинге
func (s *ReviewService) DisputeReview(ctx context.Context, reviewID uuid.UUID, companionID int64, reason string) (*model.Review, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, model.Validation("dispute reason is required")
	}

	now := s.now()
	var review *model.Review
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.stores.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if r == nil {
			return model.NotFound("review %s not found", reviewID)
		}
		if r.RevieweeID != companionID {
			return model.Forbidden("only the reviewed companion can dispute this review")
		}
		if e := s.disputeEligibility(r, companionID, now); !e.CanDispute {
			return model.PolicyViolation("%s", e.Reason)
		}

		r.Disputed = true
		r.DisputeReason = reason
		r.DisputedAt = &now
		r.UpdatedAt = now
		if err := s.lockReviewee(ctx, r.RevieweeID); err != nil {
			return err
		}
		if err := s.stores.Reviews.Update(ctx, r); err != nil {
			return err
		}
		review = r
		return s.recomputeRating(ctx, r.RevieweeID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review disputed",
		zap.String("review_id", reviewID.String()),
		zap.Int64("companion_id", companionID),
	)
	s.notify(ctx, model.EventReviewDisputed, review.ReviewerID, review, now)

	return review, nil
}

// ResolveReviewDispute решение модератора. при upheld отзыв остаётся скрытым,
// иначе возвращается в рейтинг. Повторно оспорить нельзя.
func (s *ReviewService) ResolveReviewDispute(ctx context.Context, reviewID uuid.UUID, upheld bool) (*model.Review, error) {
	now := s.now()
	var review *model.Review
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.stores.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if r == nil {
			return model.NotFound("review %s not found", reviewID)
		}
		if !r.Disputed {
			return model.PolicyViolation("review is not disputed")
		}
		if r.DisputeResolution != model.DisputeResolutionNone {
			return model.PolicyViolation("dispute already resolved").
				With("resolution", string(r.DisputeResolution))
		}

		r.DisputeResolution = model.DisputeResolutionRejected
		if upheld {
			r.DisputeResolution = model.DisputeResolutionUpheld
		}
		r.ResolvedAt = &now
		r.UpdatedAt = now
		if err := s.lockReviewee(ctx, r.RevieweeID); err != nil {
			return err
		}
		if err := s.stores.Reviews.Update(ctx, r); err != nil {
			return err
		}
		review = r
		return s.recomputeRating(ctx, r.RevieweeID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review dispute resolved",
		zap.String("review_id", reviewID.String()),
		zap.String("resolution", string(review.DisputeResolution)),
	)
	return review, nil
}

// ListReviews видимые отзывы о пользователе
func (s *ReviewService) ListReviews(ctx context.Context, revieweeID int64) ([]*model.Review, error) {
	all, err := s.stores.Reviews.ListByReviewee(ctx, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	visible := make([]*model.Review, 0, len(all))
	for _, r := range all {
		if r.IsVisible() {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

func (s *ReviewService) checkComment(ctx context.Context, comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxCommentLength {
		return "", model.Validation("comment is too long").
			With("max_length", maxCommentLength)
	}
	if comment == "" {
		return comment, nil
	}

	verdict, err := s.content.ReviewText(ctx, comment)
	if err != nil {
		return "", fmt.Errorf("review comment content: %w", err)
	}
	if !verdict.IsSafe {
		return "", model.PolicyViolation("comment violates content rules").
			With("flags", verdict.Flags)
	}
	return comment, nil
}

// lockReviewee сериализует пересчёт рейтинга одного пользователя
func (s *ReviewService) lockReviewee(ctx context.Context, userID int64) error {
	u, err := s.stores.Users.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock reviewee: %w", err)
	}
	if u == nil {
		return model.NotFound("user %d not found", userID)
	}
	return nil
}

// recomputeRating пересчёт с нуля по видимым отзывам
func (s *ReviewService) recomputeRating(ctx context.Context, userID int64) error {
	reviews, err := s.stores.Reviews.ListByReviewee(ctx, userID)
	if err != nil {
		return fmt.Errorf("list reviews for rating: %w", err)
	}

	rating := policy.AggregateRating(reviews)
	if err := s.stores.Users.UpdateRating(ctx, userID, rating.Average, rating.Count); err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

func (s *ReviewService) notify(ctx context.Context, event model.EventType, recipientID int64, r *model.Review, now time.Time) {
	n := model.Notification{
		Event:       event,
		RecipientID: recipientID,
		BookingID:   r.BookingID,
		Payload: map[string]any{
			"review_id": r.ID.String(),
			"rating":    r.Rating,
		},
		OccurredAt: now,
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
			s.logger.Warn("Failed to send review notification",
				zap.String("event", string(event)),
				zap.Int64("recipient_id", recipientID),
				zap.Error(err),
			)
		}
	}()
}
