// Package archive откладывает закрытие переписки участников после встречи.
// Задачи ставятся в очередь asynq с ProcessAt и выполняются воркером.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeArchiveConversation = "conversation:archive"

type Payload struct {
	BookingID string `json:"booking_id"`
	PartyA    int64  `json:"party_a"`
	PartyB    int64  `json:"party_b"`
}

// NewArchiveTask одна задача на бронирование: повторная постановка отбрасывается по TaskID
func NewArchiveTask(req model.ArchiveRequest) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(Payload{
		BookingID: req.BookingID.String(),
		PartyA:    req.PartyA,
		PartyB:    req.PartyB,
	})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeArchiveConversation, b)
	opts := []asynq.Option{
		asynq.ProcessAt(req.At),
		asynq.TaskID("archive:" + req.BookingID.String()),
		asynq.MaxRetry(10),
	}
	return task, opts, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler ставит задачи архивации в Redis
type Scheduler struct {
	client enqueuer
	logger *zap.Logger
}

func NewScheduler(client enqueuer, logger *zap.Logger) *Scheduler {
	return &Scheduler{client: client, logger: logger}
}

// NewRedisScheduler клиент asynq поверх Redis по адресу addr
func NewRedisScheduler(addr string, logger *zap.Logger) (*Scheduler, *asynq.Client) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: addr})
	return NewScheduler(client, logger), client
}

func (s *Scheduler) ScheduleArchive(ctx context.Context, req model.ArchiveRequest) error {
	task, opts, err := NewArchiveTask(req)
	if err != nil {
		return fmt.Errorf("build archive task: %w", err)
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Debug("Archive already scheduled", zap.String("booking_id", req.BookingID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue archive task: %w", err)
	}

	s.logger.Info("Conversation archive scheduled",
		zap.String("booking_id", req.BookingID.String()),
		zap.String("task_id", info.ID),
		zap.Time("process_at", req.At),
	)
	return nil
}

// Noop используется без Redis: архивация не планируется
type Noop struct {
	Logger *zap.Logger
}

func (n Noop) ScheduleArchive(_ context.Context, req model.ArchiveRequest) error {
	if n.Logger != nil {
		n.Logger.Debug("Archive scheduling disabled", zap.String("booking_id", req.BookingID.String()))
	}
	return nil
}
