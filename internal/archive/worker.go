package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Marker фиксирует архивацию переписки
type Marker interface {
	MarkArchived(ctx context.Context, bookingID uuid.UUID, partyA, partyB int64, at time.Time) error
}

// NewHandler обработчик задачи conversation:archive
func NewHandler(marker Marker, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p Payload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid archive payload", zap.Error(err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		bookingID, err := uuid.Parse(p.BookingID)
		if err != nil {
			logger.Error("Invalid booking id in archive payload", zap.String("booking_id", p.BookingID))
			return fmt.Errorf("parse booking id: %v: %w", err, asynq.SkipRetry)
		}

		if err := marker.MarkArchived(ctx, bookingID, p.PartyA, p.PartyB, time.Now()); err != nil {
			logger.Warn("Failed to archive conversation",
				zap.String("booking_id", p.BookingID),
				zap.Error(err),
			)
			return err
		}

		logger.Info("Conversation archived",
			zap.String("booking_id", p.BookingID),
			zap.Int64("party_a", p.PartyA),
			zap.Int64("party_b", p.PartyB),
		)
		return nil
	}
}

// Worker сервер asynq, обрабатывающий задачи архивации
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewWorker(redisAddr string, concurrency int, marker Marker, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeArchiveConversation, NewHandler(marker, logger))

	return &Worker{srv: srv, mux: mux, logger: logger}
}

// Run обрабатывает задачи до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting archive worker")
	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("start archive worker: %w", err)
	}

	<-ctx.Done()
	w.srv.Shutdown()
	w.logger.Info("Archive worker stopped")
	return nil
}
