package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/companion_booking/internal/repository/base"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const settingPlatformFee = "platform_fee_fraction"

// SettingsRepository настройки платформы из таблицы platform_settings
type SettingsRepository struct {
	*base.Repository
	defaultFee decimal.Decimal
	logger     *zap.Logger
}

func NewSettingsRepository(r *base.Repository, defaultFee decimal.Decimal, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{Repository: r, defaultFee: defaultFee, logger: logger}
}

// PlatformFeeFraction доля комиссии; без записи в таблице берётся значение из конфига
func (r *SettingsRepository) PlatformFeeFraction(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := r.QueryRow(ctx, `SELECT value FROM platform_settings WHERE key = $1`, settingPlatformFee).Scan(&raw)
	if err != nil {
		if base.IsNotFound(err) {
			return r.defaultFee, nil
		}
		return decimal.Zero, fmt.Errorf("get platform fee: %w", base.MapError(err))
	}

	fee, err := decimal.NewFromString(raw)
	if err != nil {
		r.logger.Warn("Invalid platform fee in settings, using default",
			zap.String("value", raw),
			zap.String("default", r.defaultFee.String()),
		)
		return r.defaultFee, nil
	}
	return fee, nil
}

// SetPlatformFeeFraction меняет комиссию для новых бронирований
func (r *SettingsRepository) SetPlatformFeeFraction(ctx context.Context, fee decimal.Decimal) error {
	query := `
		INSERT INTO platform_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.ExecAffected(ctx, query, settingPlatformFee, fee.String()); err != nil {
		return fmt.Errorf("set platform fee: %w", err)
	}
	return nil
}
