package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Holiday праздничный день или диапазон дат с надбавкой
type Holiday struct {
	Name  string
	Surge decimal.Decimal

	month time.Month
	day   int
	from  time.Time
	to    time.Time
	fixed bool
}

// HolidayCalendar версионированный календарь праздников.
// Фиксированные даты (месяц-день) повторяются каждый год, плавающие
// праздники (лунный Новый год и т.п.) задаются явными диапазонами.
type HolidayCalendar struct {
	Version  string
	holidays []Holiday
}

type holidayFile struct {
	Version  string `yaml:"version"`
	Holidays []struct {
		Name     string `yaml:"name"`
		MonthDay string `yaml:"month_day"`
		From     string `yaml:"from"`
		To       string `yaml:"to"`
		Surge    string `yaml:"surge"`
	} `yaml:"holidays"`
}

func EmptyCalendar() *HolidayCalendar {
	return &HolidayCalendar{Version: "empty"}
}

// LoadHolidayCalendar читает календарь из YAML файла
func LoadHolidayCalendar(path string) (*HolidayCalendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday calendar: %w", err)
	}
	return ParseHolidayCalendar(data)
}

func ParseHolidayCalendar(data []byte) (*HolidayCalendar, error) {
	var f holidayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holiday calendar: %w", err)
	}

	cal := &HolidayCalendar{Version: f.Version}
	for i, raw := range f.Holidays {
		surge, err := decimal.NewFromString(raw.Surge)
		if err != nil {
			return nil, fmt.Errorf("holiday %d (%s): invalid surge %q: %w", i, raw.Name, raw.Surge, err)
		}
		if surge.IsNegative() {
			return nil, fmt.Errorf("holiday %d (%s): surge must not be negative", i, raw.Name)
		}

		h := Holiday{Name: raw.Name, Surge: surge}
		switch {
		case raw.MonthDay != "":
			t, err := time.Parse("01-02", raw.MonthDay)
			if err != nil {
				return nil, fmt.Errorf("holiday %d (%s): invalid month_day %q: %w", i, raw.Name, raw.MonthDay, err)
			}
			h.fixed = true
			h.month = t.Month()
			h.day = t.Day()
		case raw.From != "":
			from, err := time.Parse(dateLayout, raw.From)
			if err != nil {
				return nil, fmt.Errorf("holiday %d (%s): invalid from %q: %w", i, raw.Name, raw.From, err)
			}
			to := from
			if raw.To != "" {
				to, err = time.Parse(dateLayout, raw.To)
				if err != nil {
					return nil, fmt.Errorf("holiday %d (%s): invalid to %q: %w", i, raw.Name, raw.To, err)
				}
			}
			if to.Before(from) {
				return nil, fmt.Errorf("holiday %d (%s): range ends before it starts", i, raw.Name)
			}
			h.from = from
			h.to = to
		default:
			return nil, fmt.Errorf("holiday %d (%s): either month_day or from is required", i, raw.Name)
		}
		cal.holidays = append(cal.holidays, h)
	}

	return cal, nil
}

// Lookup ищет праздник по календарной дате t (в её собственной зоне).
// При пересечении записей берётся наибольшая надбавка.
func (c *HolidayCalendar) Lookup(t time.Time) (Holiday, bool) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	var (
		best  Holiday
		found bool
	)
	for _, h := range c.holidays {
		if !h.matches(day) {
			continue
		}
		if !found || h.Surge.GreaterThan(best.Surge) {
			best = h
			found = true
		}
	}
	return best, found
}

func (c *HolidayCalendar) Len() int {
	return len(c.holidays)
}

func (h Holiday) matches(day time.Time) bool {
	if h.fixed {
		return day.Month() == h.month && day.Day() == h.day
	}
	return !day.Before(h.from) && !day.After(h.to)
}
