package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/archive"
	"github.com/Freeeeeet/companion_booking/internal/config"
	"github.com/Freeeeeet/companion_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/companion_booking/internal/moderation"
	"github.com/Freeeeeet/companion_booking/internal/notify"
	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/Freeeeeet/companion_booking/internal/repository"
	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/Freeeeeet/companion_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App собранное приложение: пул БД, репозитории, сервисы и внешние каналы
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool

	users    *repository.UserRepository
	settings *repository.SettingsRepository
	archives *repository.ArchiveRepository

	Bookings *service.BookingService
	Reviews  *service.ReviewService
	Strikes  *service.StrikeService

	closers []func() error
}

// New подключается к БД и собирает зависимости
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := openPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, pool: pool}
	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DB_DSN: %w", err)
	}
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (a *App) build() error {
	cfg := a.cfg

	policyCfg, err := cfg.PolicyConfig()
	if err != nil {
		return err
	}
	holidays, err := policy.LoadHolidayCalendar(cfg.HolidayCalendar)
	if err != nil {
		return err
	}
	engine := policy.NewEngine(policyCfg, holidays)

	defaultFee, err := cfg.FeeFraction()
	if err != nil {
		return err
	}

	repo := base.NewRepository(a.pool)
	tx := base.NewTxManager(a.pool,
		base.TxTimeouts{Total: cfg.TxTimeout, Lock: cfg.LockTimeout, Statement: cfg.StatementTimeout},
		base.TxTimeouts{Total: cfg.CreateTxTimeout, Lock: cfg.LockTimeout, Statement: cfg.StatementTimeout},
		a.logger,
	)

	a.users = repository.NewUserRepository(repo)
	a.settings = repository.NewSettingsRepository(repo, defaultFee, a.logger)
	a.archives = repository.NewArchiveRepository(repo)

	stores := service.Stores{
		Tx:       tx,
		Bookings: repository.NewBookingRepository(repo),
		Users:    a.users,
		Reviews:  repository.NewReviewRepository(repo),
		Strikes:  repository.NewStrikeRepository(repo),
		Earnings: repository.NewEarningRepository(repo),
		Reports:  repository.NewReportRepository(repo),
	}

	notifier, err := a.buildNotifier()
	if err != nil {
		return err
	}

	var archiver service.Archiver = archive.Noop{Logger: a.logger}
	if cfg.RedisAddr != "" {
		scheduler, client := archive.NewRedisScheduler(cfg.RedisAddr, a.logger)
		a.closers = append(a.closers, client.Close)
		archiver = scheduler
	} else {
		a.logger.Warn("REDIS_ADDR is empty, conversation archiving disabled")
	}

	a.Bookings = service.NewBookingService(stores, engine, a.settings, notifier, archiver, a.logger)
	a.Reviews = service.NewReviewService(stores, engine, moderation.NewKeywordReviewer(), notifier, a.logger)
	a.Strikes = service.NewStrikeService(stores, a.logger)
	return nil
}

func (a *App) buildNotifier() (service.Notifier, error) {
	var fanout notify.Fanout

	tg, err := notify.NewTelegramNotifier(a.cfg.TelegramToken, a.users, a.logger)
	if err != nil {
		return nil, err
	}
	fanout = append(fanout, tg)

	if a.cfg.RabbitURL != "" {
		pub, err := notify.NewPublisher(a.cfg.RabbitURL, a.cfg.RabbitExchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		fanout = append(fanout, notify.NewEventNotifier(pub))
	} else {
		a.logger.Warn("RABBIT_URL is empty, event publishing disabled")
	}

	return fanout, nil
}

// Migrate применяет миграции схемы
func (a *App) Migrate(ctx context.Context) error {
	m, err := NewMigrator(a.pool, a.logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Run(ctx)
}

// Serve поднимает HTTP API и планировщик переходов; блокируется до отмены ctx
func (a *App) Serve(ctx context.Context) error {
	mode := gin.DebugMode
	if a.cfg.Environment == "production" {
		mode = gin.ReleaseMode
	}
	h := httpapi.NewHandler(a.Bookings, a.Reviews, a.Strikes, a.settings, a.logger)
	router := httpapi.NewRouter(mode, h, a.cfg.AdminToken, a.cfg.HTTPRequestTimeout, a.logger)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	scheduler := a.newScheduler()
	scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	scheduler.Stop()
	a.wait()

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// RunWorker планировщик переходов и обработчик задач архивации без HTTP
func (a *App) RunWorker(ctx context.Context) error {
	scheduler := a.newScheduler()
	scheduler.Start(ctx)
	defer func() {
		scheduler.Stop()
		a.wait()
	}()

	if a.cfg.RedisAddr == "" {
		a.logger.Warn("REDIS_ADDR is empty, running transition scheduler only")
		<-ctx.Done()
		return nil
	}

	worker := archive.NewWorker(a.cfg.RedisAddr, a.cfg.WorkerConcurrency, a.archives, a.logger)
	return worker.Run(ctx)
}

// Tick один проход всех задач планировщика (для cron)
func (a *App) Tick(ctx context.Context) ([]service.SweepResult, error) {
	defer a.wait()
	return a.Bookings.RunScheduledTransitions(ctx)
}

func (a *App) newScheduler() *Scheduler {
	return NewScheduler(a.Bookings, ScheduleIntervals{
		Expire:   a.cfg.ExpireInterval,
		Unpaid:   a.cfg.UnpaidInterval,
		Start:    a.cfg.StartInterval,
		Complete: a.cfg.CompleteInterval,
	}, a.logger)
}

// wait дожидается фоновых уведомлений
func (a *App) wait() {
	if a.Bookings != nil {
		a.Bookings.Wait()
	}
	if a.Reviews != nil {
		a.Reviews.Wait()
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.pool.Close()
}
