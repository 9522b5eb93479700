package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/service"
	"go.uber.org/zap"
)

// TransitionRunner плановые переходы бронирований
type TransitionRunner interface {
	ExpirePendingRequests(ctx context.Context) (service.SweepResult, error)
	ExpireUnpaidBookings(ctx context.Context) (service.SweepResult, error)
	AutoStartDue(ctx context.Context) (service.SweepResult, error)
	AutoCompleteDue(ctx context.Context) (service.SweepResult, error)
}

type ScheduleIntervals struct {
	Expire   time.Duration
	Unpaid   time.Duration
	Start    time.Duration
	Complete time.Duration
}

type periodicTask struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (service.SweepResult, error)
}

// Scheduler управляет фоновыми задачами. У каждой задачи свой тикер,
// повторный запуск задачи не начинается, пока не закончился предыдущий.
type Scheduler struct {
	tasks    []periodicTask
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(runner TransitionRunner, intervals ScheduleIntervals, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks: []periodicTask{
			{"expire_pending", intervals.Expire, runner.ExpirePendingRequests},
			{"expire_unpaid", intervals.Unpaid, runner.ExpireUnpaidBookings},
			{"auto_start", intervals.Start, runner.AutoStartDue},
			{"auto_complete", intervals.Complete, runner.AutoCompleteDue},
		},
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	for _, task := range s.tasks {
		if task.interval <= 0 {
			s.logger.Warn("Scheduler task disabled", zap.String("task", task.name))
			continue
		}
		s.wg.Add(1)
		go s.runTask(ctx, task)
	}
}

// Stop останавливает фоновые задачи и ждёт завершения текущих проходов
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task periodicTask) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.runOnce(ctx, task)

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, task)
		case <-s.stopChan:
			s.logger.Info("Scheduler task stopped", zap.String("task", task.name))
			return
		case <-ctx.Done():
			s.logger.Info("Scheduler task cancelled", zap.String("task", task.name))
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task periodicTask) {
	if _, err := task.run(ctx); err != nil {
		s.logger.Error("Scheduler task failed",
			zap.String("task", task.name),
			zap.Error(err),
		)
	}
}
