package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultOpening     = TimeOfDay(9 * 60)
	DefaultClosing     = TimeOfDay(17 * 60)
	DefaultDuration    = 30
	DefaultCapacity    = 1
	DefaultTimezone    = "UTC"
	minutesInDay       = 24 * 60
	maxDurationMinutes = minutesInDay
)

// TimeOfDay is a shop-local wall clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as end of day so a shop
// can close at midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return minutesInDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

type Shop struct {
	ID           int64
	ShopkeeperID string
	Name         string
	Address      string
	Timezone     string
	Opening      TimeOfDay
	Closing      TimeOfDay
	// Duration is the slot length in minutes.
	Duration  int
	Capacity  int
	CreatedAt time.Time
}

// ApplyDefaults fills unset scheduling fields with the standard 09:00-17:00,
// 30 minute, single capacity configuration.
func (s *Shop) ApplyDefaults() {
	if s.Opening == 0 && s.Closing == 0 {
		s.Opening, s.Closing = DefaultOpening, DefaultClosing
	}
	if s.Duration == 0 {
		s.Duration = DefaultDuration
	}
	if s.Capacity == 0 {
		s.Capacity = DefaultCapacity
	}
	if strings.TrimSpace(s.Timezone) == "" {
		s.Timezone = DefaultTimezone
	}
}

func (s Shop) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("shop_name is required"))
	}
	if s.Opening < 0 || s.Closing > minutesInDay {
		errs = append(errs, errors.New("opening and closing must be within the day"))
	}
	if s.Opening >= s.Closing {
		errs = append(errs, errors.New("opening_time must be before closing_time"))
	}
	if s.Duration <= 0 || s.Duration > maxDurationMinutes {
		errs = append(errs, errors.New("appointment_duration must be between 1 and 1440 minutes"))
	}
	if s.Capacity < 1 {
		errs = append(errs, errors.New("slot_capacity must be at least 1"))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		errs = append(errs, fmt.Errorf("unknown timezone %q", s.Timezone))
	}
	return errors.Join(errs...)
}

// Location returns the shop's time zone, falling back to UTC for values that
// slipped past validation.
func (s Shop) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Shop) SlotDuration() time.Duration {
	return time.Duration(s.Duration) * time.Minute
}
