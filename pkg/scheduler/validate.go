package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

var (
	ErrInvalidWorkingHours = errors.New("invalid working hours")
	ErrInvalidDuration     = errors.New("invalid task duration")
	ErrInvalidItem         = errors.New("invalid work item")
	ErrInvalidRange        = errors.New("invalid date range")
	ErrInvalidBusyInterval = errors.New("invalid busy interval")
	ErrUnknownTimeZone     = timeconv.ErrUnknownTimeZone
)

var validate = validator.New()

// ValidateWorkingHours checks field ranges and that the window ends strictly
// after it starts on the same day.
func ValidateWorkingHours(h models.WorkingHours) error {
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWorkingHours, err)
	}
	if h.EndHour*60+h.EndMinute <= h.StartHour*60+h.StartMinute {
		return fmt.Errorf("%w: end %02d:%02d must be after start %02d:%02d",
			ErrInvalidWorkingHours, h.EndHour, h.EndMinute, h.StartHour, h.StartMinute)
	}
	return nil
}

// ValidateDuration checks that d is a positive whole number of milliseconds.
func ValidateDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s is not positive", ErrInvalidDuration, d)
	}
	if d%time.Millisecond != 0 {
		return fmt.Errorf("%w: %s is not a whole number of milliseconds", ErrInvalidDuration, d)
	}
	return nil
}

// ValidateRequest rejects every input the packer treats as a precondition.
func ValidateRequest(req models.ScheduleRequest) error {
	if _, err := timeconv.LoadZone(req.TimeZone); err != nil {
		return err
	}
	if err := ValidateWorkingHours(req.WorkingHours); err != nil {
		return err
	}
	if !req.RangeStart.IsValid() || !req.RangeEnd.IsValid() {
		return fmt.Errorf("%w: %s..%s", ErrInvalidRange, req.RangeStart, req.RangeEnd)
	}
	if req.RangeEnd.Before(req.RangeStart) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, req.RangeEnd, req.RangeStart)
	}
	for i, b := range req.Busy {
		if b.End <= b.Start {
			return fmt.Errorf("%w: interval %d ends at or before its start", ErrInvalidBusyInterval, i)
		}
	}
	for i, item := range req.Items {
		if item == nil {
			return fmt.Errorf("%w: item %d is nil", ErrInvalidItem, i)
		}
		if item.Scheduled() {
			return fmt.Errorf("%w: item %q is already scheduled", ErrInvalidItem, item.ID)
		}
		if err := ValidateDuration(item.Duration); err != nil {
			return fmt.Errorf("item %q: %w", item.ID, err)
		}
	}
	return nil
}
