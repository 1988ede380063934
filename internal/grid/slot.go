// Package grid turns candidate windows into per-day, per-timezone slot
// coordinates and column layouts for a half-hour calendar grid.
//
// Everything here is pure: functions take value snapshots and return freshly
// allocated results, so they are safe to call from any goroutine.
package grid

import (
	"errors"
	"fmt"
	"time"
)

const (
	// SlotsPerDay is the number of 30-minute slots in a local day.
	SlotsPerDay = 48
	// SlotMinutes is the width of a single slot.
	SlotMinutes = 30
	// InitialScrollSlot is where grids open (08:00).
	InitialScrollSlot = 16

	dayKeyLayout = "2006-01-02"
)

var (
	// ErrUnknownTimezone is returned when the host tz database has no such zone.
	ErrUnknownTimezone = errors.New("grid: unknown timezone")
	// ErrInvalidDayKey is returned for keys that are not YYYY-MM-DD.
	ErrInvalidDayKey = errors.New("grid: invalid day key")
	// ErrInvalidSlot is returned for slots outside [0, SlotsPerDay].
	ErrInvalidSlot = errors.New("grid: invalid slot")
)

// LoadLocation resolves an IANA zone name. Unlike time.LoadLocation it
// rejects the empty string, which would otherwise silently mean UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, name, err)
	}
	return loc, nil
}

// DayKeyOf renders the local calendar date of t in loc as YYYY-MM-DD.
func DayKeyOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// SlotOf returns the half-hour slot index of t's wall clock in loc.
func SlotOf(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*2 + local.Minute()/SlotMinutes
}

// InstantOf converts a (day key, slot) pair in loc back to an instant.
// Slot SlotsPerDay is accepted and means midnight of the following day.
//
// Wall-clock times skipped by a DST gap are normalized by time.Date, and a
// wall-clock time repeated by a DST fold resolves to its first occurrence.
func InstantOf(dayKey string, slot int, loc *time.Location) (time.Time, error) {
	day, err := ParseDayKey(dayKey, loc)
	if err != nil {
		return time.Time{}, err
	}
	if slot < 0 || slot > SlotsPerDay {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	y, m, d := day.Date()
	if slot == SlotsPerDay {
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc), nil
	}
	return time.Date(y, m, d, slot/2, (slot%2)*SlotMinutes, 0, 0, loc), nil
}

// ParseDayKey returns local midnight of dayKey in loc.
func ParseDayKey(dayKey string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, dayKey, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDayKey, dayKey)
	}
	return t, nil
}
