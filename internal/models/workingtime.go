package models

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay хранит время суток в минутах от полуночи.
// Арифметика замкнута по модулю суток: ресторан может закрываться
// после полуночи (open 22:00, close 04:00).
type TimeOfDay int

// ParseTimeOfDay parses "15:04" wall-clock notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is a test/fixture helper; panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add shifts the time of day, wrapping past midnight in both directions.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	m := (int(t) + int(d/time.Minute)) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay(m)
}

// At anchors the time of day to the calendar date of day.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, day.Location())
}

// Before compares within a single day, no wrapping.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }

// After compares within a single day, no wrapping.
func (t TimeOfDay) After(other TimeOfDay) bool { return t > other }

// WorkingTime задаёт окно работы ресторана в один день недели.
// Close раньше Open означает закрытие после полуночи следующего дня.
type WorkingTime struct {
	ID           int64        `json:"id"`
	RestaurantID int64        `json:"restaurant_id"`
	Weekday      time.Weekday `json:"weekday"`
	Open         TimeOfDay    `json:"open"`
	Close        TimeOfDay    `json:"close"`
}
