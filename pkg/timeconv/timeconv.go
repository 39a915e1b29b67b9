package timeconv

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

// ErrUnknownTimeZone is returned for empty or unresolvable zone identifiers.
var ErrUnknownTimeZone = errors.New("unknown time zone")

// LoadZone resolves an IANA time zone identifier such as "Europe/Zurich".
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownTimeZone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownTimeZone, name, err)
	}
	return loc, nil
}

// ToInstant combines a civil date and time-of-day in loc into an absolute
// instant, using the zone offset in effect at that wall time.
func ToInstant(date civil.Date, clock civil.Time, loc *time.Location) models.Instant {
	t := time.Date(date.Year, date.Month, date.Day,
		clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, loc)
	return models.InstantOf(t)
}

// ToCivil returns the local date and time-of-day of i in loc.
func ToCivil(i models.Instant, loc *time.Location) (civil.Date, civil.Time) {
	t := i.In(loc)
	return civil.DateOf(t), civil.TimeOf(t)
}

// FormatRFC3339 renders i with the offset of loc, e.g. 2026-10-16T13:00:00+02:00.
func FormatRFC3339(i models.Instant, loc *time.Location) string {
	return i.In(loc).Format(time.RFC3339)
}

// ParseRFC3339 parses an RFC 3339 timestamp into an Instant.
func ParseRFC3339(s string) (models.Instant, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return models.InstantOf(t), nil
}

// Tomorrow returns the civil date following now in loc.
func Tomorrow(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc)).AddDays(1)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("date %q: %w", s, err)
	}
	return d, nil
}

// ParseWorkingHours parses a "HH:MM-HH:MM" window such as "09:00-18:00".
// Range checks are left to the scheduler's validation.
func ParseWorkingHours(s string) (models.WorkingHours, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return models.WorkingHours{}, fmt.Errorf("working hours %q: want HH:MM-HH:MM", s)
	}
	start, err := time.Parse("15:04", strings.TrimSpace(from))
	if err != nil {
		return models.WorkingHours{}, fmt.Errorf("working hours %q: %w", s, err)
	}
	end, err := time.Parse("15:04", strings.TrimSpace(to))
	if err != nil {
		return models.WorkingHours{}, fmt.Errorf("working hours %q: %w", s, err)
	}
	return models.WorkingHours{
		StartHour:   start.Hour(),
		StartMinute: start.Minute(),
		EndHour:     end.Hour(),
		EndMinute:   end.Minute(),
	}, nil
}
