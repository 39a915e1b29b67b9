package models

import (
	"time"

	"github.com/golang-sql/civil"
)

// Instant is an absolute point in time in milliseconds since the Unix epoch.
type Instant int64

// InstantOf converts t to an Instant, dropping sub-millisecond precision.
func InstantOf(t time.Time) Instant {
	return Instant(t.UnixMilli())
}

// Time returns the instant as a UTC time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

// In returns the instant as a time.Time in loc.
func (i Instant) In(loc *time.Location) time.Time {
	return time.UnixMilli(int64(i)).In(loc)
}

// Add returns i+d, truncating d to whole milliseconds.
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d.Milliseconds())
}

// Sub returns the duration i-j.
func (i Instant) Sub(j Instant) time.Duration {
	return time.Duration(i-j) * time.Millisecond
}

// BusyInterval represents one calendar commitment as [Start, End).
type BusyInterval struct {
	Start Instant `json:"start"`
	End   Instant `json:"end"`
}

// Overlaps reports whether the half-open intervals [b.Start, b.End) and
// [start, end) intersect.
func (b BusyInterval) Overlaps(start, end Instant) bool {
	return b.Start < end && start < b.End
}

// Gap is a maximal free sub-interval [Start, End) of a day's working window.
type Gap struct {
	Start Instant `json:"start"`
	End   Instant `json:"end"`
}

// Room returns the length of the gap.
func (g Gap) Room() time.Duration {
	return g.End.Sub(g.Start)
}

// WorkItem is a schedulable unit of work with an estimated duration.
// AssignedStart stays nil until the scheduler places the item.
type WorkItem struct {
	ID            string        `json:"id"`
	Title         string        `json:"title,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Duration      time.Duration `json:"duration"`
	AssignedStart *Instant      `json:"assigned_start,omitempty"`
}

// Scheduled reports whether the item has been placed.
func (w *WorkItem) Scheduled() bool {
	return w.AssignedStart != nil
}

// Interval returns the placed interval of the item. It must only be called
// on scheduled items.
func (w *WorkItem) Interval() BusyInterval {
	start := *w.AssignedStart
	return BusyInterval{Start: start, End: start.Add(w.Duration)}
}

// WorkingHours is the civil-time daily window eligible for scheduling.
type WorkingHours struct {
	StartHour   int `json:"start_hour" validate:"min=0,max=23"`
	StartMinute int `json:"start_minute" validate:"min=0,max=59"`
	EndHour     int `json:"end_hour" validate:"min=0,max=23"`
	EndMinute   int `json:"end_minute" validate:"min=0,max=59"`
}

// StartClock returns the start of the window as a civil time.
func (h WorkingHours) StartClock() civil.Time {
	return civil.Time{Hour: h.StartHour, Minute: h.StartMinute}
}

// EndClock returns the end of the window as a civil time.
func (h WorkingHours) EndClock() civil.Time {
	return civil.Time{Hour: h.EndHour, Minute: h.EndMinute}
}

// ScheduleRequest carries everything a single scheduling run needs.
// RangeEnd is inclusive.
type ScheduleRequest struct {
	Busy         []BusyInterval
	Items        []*WorkItem
	TimeZone     string
	WorkingHours WorkingHours
	RangeStart   civil.Date
	RangeEnd     civil.Date
}

// ScheduleSummary describes the outcome of a scheduling run.
type ScheduleSummary struct {
	Requested   int      `json:"requested"`
	Scheduled   int      `json:"scheduled"`
	Unscheduled []string `json:"unscheduled"`
	Message     string   `json:"message"`
}
