package policy

import (
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

const (
	MinRating = 1
	MaxRating = 5
)

// CanReview отзыв можно оставить в течение окна после завершения
func (e *Engine) CanReview(completedAt, now time.Time) bool {
	return !now.After(completedAt.Add(e.cfg.ReviewWindow))
}

func (e *Engine) CanEditReview(createdAt, now time.Time) bool {
	return !now.After(createdAt.Add(e.cfg.ReviewEditWindow))
}

func (e *Engine) CanDisputeReview(createdAt, now time.Time) bool {
	return !now.After(createdAt.Add(e.cfg.DisputeWindow))
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return model.Validation("rating must be between %d and %d", MinRating, MaxRating).
			With("rating", rating)
	}
	return nil
}

// Rating агрегат по видимым отзывам
type Rating struct {
	Average float64
	Count   int
}

// AggregateRating пересчитывает рейтинг с нуля. Спорные отзывы
// (без решения в пользу автора) не учитываются. Среднее хранится точным,
// округление только при показе.
func AggregateRating(reviews []*model.Review) Rating {
	sum, count := 0, 0
	for _, r := range reviews {
		if !r.IsVisible() {
			continue
		}
		sum += r.Rating
		count++
	}
	if count == 0 {
		return Rating{}
	}
	return Rating{Average: float64(sum) / float64(count), Count: count}
}
