package base

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type txKey struct{}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// TxTimeouts ограничения на транзакцию. Нулевые значения: без ограничения.
type TxTimeouts struct {
	Total     time.Duration // Общий дедлайн на транзакцию
	Lock      time.Duration // SET LOCAL lock_timeout
	Statement time.Duration // SET LOCAL statement_timeout
}

// TxManager открывает транзакции и кладёт их в контекст
type TxManager struct {
	pool         *pgxpool.Pool
	timeouts     TxTimeouts
	serializable TxTimeouts
	logger       *zap.Logger
}

func NewTxManager(pool *pgxpool.Pool, timeouts, serializable TxTimeouts, logger *zap.Logger) *TxManager {
	return &TxManager{
		pool:         pool,
		timeouts:     timeouts,
		serializable: serializable,
		logger:       logger,
	}
}

// WithinTx выполняет fn в транзакции READ COMMITTED
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, m.timeouts, fn)
}

// WithinSerializableTx выполняет fn в SERIALIZABLE транзакции.
// Ошибка сериализации возвращается как Conflict без повтора.
func (m *TxManager) WithinSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, m.serializable, fn)
}

func (m *TxManager) run(ctx context.Context, opts pgx.TxOptions, t TxTimeouts, fn func(ctx context.Context) error) error {
	// Вложенный вызов переиспользует внешнюю транзакцию
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	if t.Total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Total)
		defer cancel()
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return MapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && err != pgx.ErrTxClosed {
			m.logger.Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	if t.Lock > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", t.Lock.Milliseconds())); err != nil {
			return MapError(fmt.Errorf("set lock_timeout: %w", err))
		}
	}
	if t.Statement > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", t.Statement.Milliseconds())); err != nil {
			return MapError(fmt.Errorf("set statement_timeout: %w", err))
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
