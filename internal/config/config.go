package config

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/policy"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Environment string `envconfig:"ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Транзакции
	TxTimeout          time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
	CreateTxTimeout    time.Duration `envconfig:"CREATE_TX_TIMEOUT" default:"3s"`
	LockTimeout        time.Duration `envconfig:"LOCK_TIMEOUT" default:"2s"`
	StatementTimeout   time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"2s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	HTTPRequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"10s"`

	// Правила
	PlatformFee      string        `envconfig:"PLATFORM_FEE_FRACTION" default:"0.18"`
	SameDaySurge     string        `envconfig:"SAME_DAY_SURGE" default:"0.30"`
	DailyLimit       int           `envconfig:"DAILY_REQUEST_LIMIT" default:"3"`
	WeeklyLimit      int           `envconfig:"WEEKLY_REQUEST_LIMIT" default:"10"`
	CompanionLimit   int           `envconfig:"SAME_COMPANION_DAILY_LIMIT" default:"1"`
	TimeZone         string        `envconfig:"TIME_ZONE" default:"UTC"`
	HolidayCalendar  string        `envconfig:"HOLIDAY_CALENDAR" default:"configs/holidays.yaml"`
	MinDuration      time.Duration `envconfig:"MIN_BOOKING_DURATION" default:"30m"`
	RequestTTL       time.Duration `envconfig:"REQUEST_TTL" default:"24h"`
	AutoCompleteWait time.Duration `envconfig:"AUTO_COMPLETE_GRACE" default:"24h"`
	ArchiveDelay     time.Duration `envconfig:"ARCHIVE_DELAY" default:"72h"`

	// Планировщик
	ExpireInterval   time.Duration `envconfig:"EXPIRE_INTERVAL" default:"5m"`
	CompleteInterval time.Duration `envconfig:"COMPLETE_INTERVAL" default:"1h"`
	StartInterval    time.Duration `envconfig:"START_INTERVAL" default:"1m"`
	UnpaidInterval   time.Duration `envconfig:"UNPAID_INTERVAL" default:"5m"`

	// Внешние каналы; пустое значение отключает канал
	TelegramToken     string `envconfig:"TELEGRAM_TOKEN"`
	RabbitURL         string `envconfig:"RABBIT_URL"`
	RabbitExchange    string `envconfig:"RABBIT_EXCHANGE" default:"booking.events"`
	RedisAddr         string `envconfig:"REDIS_ADDR"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`

	// Токен служебных маршрутов /internal; пустой отключает их
	AdminToken string `envconfig:"ADMIN_TOKEN"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Файла может не быть: тогда работаем только с окружением
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if _, err := cfg.FeeFraction(); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	return &cfg, nil
}

// FeeFraction комиссия платформы по умолчанию (если не задана в platform_settings)
func (c *Config) FeeFraction() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.PlatformFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid PLATFORM_FEE_FRACTION %q: %w", c.PlatformFee, err)
	}
	if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("PLATFORM_FEE_FRACTION must be in [0, 1), got %s", c.PlatformFee)
	}
	return fee, nil
}

// PolicyConfig собирает настройки движка правил поверх значений по умолчанию
func (c *Config) PolicyConfig() (policy.Config, error) {
	pc := policy.DefaultConfig()

	surge, err := decimal.NewFromString(c.SameDaySurge)
	if err != nil {
		return pc, fmt.Errorf("invalid SAME_DAY_SURGE %q: %w", c.SameDaySurge, err)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return pc, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}

	pc.SameDaySurge = surge
	pc.MinDuration = c.MinDuration
	pc.RequestTTL = c.RequestTTL
	pc.AutoCompleteGrace = c.AutoCompleteWait
	pc.ArchiveDelay = c.ArchiveDelay
	pc.Limits = policy.Limits{
		Daily:              c.DailyLimit,
		Weekly:             c.WeeklyLimit,
		SameCompanionDaily: c.CompanionLimit,
	}
	pc.Location = loc
	return pc, nil
}
