package policy

import (
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// Quote разбивка цены бронирования в минимальных единицах валюты
type Quote struct {
	DurationMinutes int
	BasePrice       int64
	PlatformFee     int64
	SurgeFee        int64
	TotalPrice      int64
	SurgeRate       decimal.Decimal
	Holiday         string
}

// PriceRequest входные данные расчёта цены
type PriceRequest struct {
	HourlyRate  int64
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	FeeFraction decimal.Decimal
}

// Price считает базу, комиссию и надбавки. Половины округляются от нуля.
func (e *Engine) Price(req PriceRequest) (Quote, error) {
	if !req.End.After(req.Start) {
		return Quote{}, model.Validation("end time must be after start time").
			With("start_time", req.Start).
			With("end_time", req.End)
	}
	if req.HourlyRate <= 0 {
		return Quote{}, model.Validation("hourly rate must be positive")
	}
	if req.FeeFraction.IsNegative() || req.FeeFraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Quote{}, model.Validation("platform fee fraction must be in [0, 1)").
			With("fee_fraction", req.FeeFraction.String())
	}

	if err := e.CheckDuration(req.Start, req.End); err != nil {
		return Quote{}, err
	}

	minutes := int(req.End.Sub(req.Start) / time.Minute)
	base := decimal.NewFromInt(req.HourlyRate).
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(minutesPerHour).
		Round(0)

	fee := base.Mul(req.FeeFraction).Round(0)

	rate := decimal.Zero
	if req.Start.Sub(req.CreatedAt) < e.cfg.SameDayWindow {
		rate = rate.Add(e.cfg.SameDaySurge)
	}
	holiday, ok := e.holidays.Lookup(req.Start.In(e.cfg.Location))
	if ok {
		rate = rate.Add(holiday.Surge)
	}
	surge := base.Mul(rate).Round(0)

	q := Quote{
		DurationMinutes: minutes,
		BasePrice:       base.IntPart(),
		PlatformFee:     fee.IntPart(),
		SurgeFee:        surge.IntPart(),
		TotalPrice:      base.Add(fee).Add(surge).IntPart(),
		SurgeRate:       rate,
	}
	if ok {
		q.Holiday = holiday.Name
	}
	return q, nil
}

// CheckDuration длительность встречи должна быть целым числом минут и не
// короче MinDuration, иначе цена округлится вниз вплоть до нуля.
func (e *Engine) CheckDuration(start, end time.Time) error {
	d := end.Sub(start)
	if d%time.Minute != 0 {
		return model.Validation("duration must be a whole number of minutes").
			With("duration", d.String())
	}
	if d < e.cfg.MinDuration {
		return model.Validation("duration must be at least %s", e.cfg.MinDuration).
			With("duration", d.String()).
			With("min_duration", e.cfg.MinDuration.String())
	}
	return nil
}
