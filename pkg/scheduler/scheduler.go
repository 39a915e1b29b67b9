package scheduler

import (
	"time"

	"github.com/golang-sql/civil"
	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

// DefaultTaskDuration is used for tasks that carry no estimate.
const DefaultTaskDuration = 30 * time.Minute

// Scheduler places pending work items into the free time of working days,
// largest item that still fits first.
type Scheduler struct {
	Busy     []models.BusyInterval
	Hours    models.WorkingHours
	Location *time.Location

	index  *durationIndex
	logger *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger routes per-day diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler over the given busy time and pending
// items. Inputs are assumed valid; see ValidateRequest.
func NewScheduler(busy []models.BusyInterval, items []*models.WorkItem, loc *time.Location, hours models.WorkingHours, opts ...Option) *Scheduler {
	s := &Scheduler{
		Busy:     busy,
		Hours:    hours,
		Location: loc,
		index:    newDurationIndex(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, item := range items {
		s.index.insert(item)
	}
	return s
}

// Pending returns the number of items not placed yet.
func (s *Scheduler) Pending() int {
	return s.index.len()
}

// DayWindow returns the working window of day as instants.
func (s *Scheduler) DayWindow(day civil.Date) (models.Instant, models.Instant) {
	return timeconv.ToInstant(day, s.Hours.StartClock(), s.Location),
		timeconv.ToInstant(day, s.Hours.EndClock(), s.Location)
}

// ScheduleDay places items on a single day.
func (s *Scheduler) ScheduleDay(day civil.Date) []*models.WorkItem {
	return s.ScheduleInRange(day, day)
}

// ScheduleInRange walks the days from start to end inclusive and returns the
// items placed, in placement order. It stops early once nothing is pending.
func (s *Scheduler) ScheduleInRange(start, end civil.Date) []*models.WorkItem {
	placed := make([]*models.WorkItem, 0, s.index.len())
	days := 0
	for day := start; !day.After(end) && !s.index.isEmpty(); day = day.AddDays(1) {
		placed = s.scheduleDay(day, placed)
		days++
	}
	s.logger.Debug("schedule finished",
		zap.Stringer("from", start),
		zap.Stringer("to", end),
		zap.Int("days_scanned", days),
		zap.Int("placed", len(placed)),
		zap.Int("pending", s.index.len()),
	)
	return placed
}

func (s *Scheduler) scheduleDay(day civil.Date, placed []*models.WorkItem) []*models.WorkItem {
	dayStart, dayEnd := s.DayWindow(day)
	gaps := FreeGaps(dayStart, dayEnd, s.Busy)

	before := len(placed)
	for _, gap := range gaps {
		placed = s.fillGap(gap, placed)
		if s.index.isEmpty() {
			break
		}
	}

	s.logger.Debug("day scanned",
		zap.Stringer("date", day),
		zap.Int("gaps", len(gaps)),
		zap.Int("placed", len(placed)-before),
	)
	return placed
}

// fillGap packs the gap from its start, each time taking the longest pending
// item that fits the remaining room. Leftover room is not reused.
func (s *Scheduler) fillGap(gap models.Gap, placed []*models.WorkItem) []*models.WorkItem {
	cursor := gap.Start
	for !s.index.isEmpty() {
		duration, ok := s.index.floor(int64(gap.End - cursor))
		if !ok {
			break
		}
		item := s.index.takeOneOf(duration)
		start := cursor
		item.AssignedStart = &start
		placed = append(placed, item)
		cursor += models.Instant(duration)
	}
	return placed
}

// Schedule validates req and runs it start to finish. Only invalid input is
// reported as an error; running out of free time is not.
func Schedule(req models.ScheduleRequest, opts ...Option) ([]*models.WorkItem, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	loc, err := timeconv.LoadZone(req.TimeZone)
	if err != nil {
		return nil, err
	}
	s := NewScheduler(req.Busy, req.Items, loc, req.WorkingHours, opts...)
	return s.ScheduleInRange(req.RangeStart, req.RangeEnd), nil
}
