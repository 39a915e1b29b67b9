package scheduler

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

const zurichZone = "Europe/Zurich"

var nineToSix = models.WorkingHours{StartHour: 9, EndHour: 18}

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := timeconv.LoadZone(name)
	require.NoError(t, err)
	return loc
}

func at(loc *time.Location, day civil.Date, hour, minute int) models.Instant {
	return timeconv.ToInstant(day, civil.Time{Hour: hour, Minute: minute}, loc)
}

func busy(loc *time.Location, day civil.Date, h1, m1, h2, m2 int) models.BusyInterval {
	return models.BusyInterval{Start: at(loc, day, h1, m1), End: at(loc, day, h2, m2)}
}

func newItems(n int, d time.Duration) []*models.WorkItem {
	items := make([]*models.WorkItem, n)
	for i := range items {
		items[i] = &models.WorkItem{ID: fmt.Sprintf("task-%d", i+1), Duration: d}
	}
	return items
}

func startsOf(placed []*models.WorkItem) []models.Instant {
	out := make([]models.Instant, len(placed))
	for i, item := range placed {
		out[i] = *item.AssignedStart
	}
	return out
}

func runSchedule(t *testing.T, busy []models.BusyInterval, items []*models.WorkItem, from, to civil.Date) []*models.WorkItem {
	t.Helper()
	placed, err := Schedule(models.ScheduleRequest{
		Busy:         busy,
		Items:        items,
		TimeZone:     zurichZone,
		WorkingHours: nineToSix,
		RangeStart:   from,
		RangeEnd:     to,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return placed
}

func TestSchedule_NotEnoughRoomOneEvent(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2020, Month: time.August, Day: 20}

	placed := runSchedule(t, []models.BusyInterval{busy(zurich, day, 9, 0, 18, 0)}, newItems(3, DefaultTaskDuration), day, day)

	assert.Empty(t, placed)
	assert.NotNil(t, placed)
}

func TestSchedule_JustOneTask(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2010, Month: time.March, Day: 9}
	events := []models.BusyInterval{
		busy(zurich, day, 9, 0, 13, 0),
		busy(zurich, day, 13, 30, 18, 0),
	}

	placed := runSchedule(t, events, newItems(1, DefaultTaskDuration), day, day)

	require.Len(t, placed, 1)
	assert.Equal(t, at(zurich, day, 13, 0), *placed[0].AssignedStart)
}

func TestSchedule_ConsecutiveTasks(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2048, Month: time.June, Day: 23}
	events := []models.BusyInterval{
		busy(zurich, day, 9, 0, 10, 0),
		busy(zurich, day, 11, 0, 13, 0),
	}

	placed := runSchedule(t, events, newItems(5, DefaultTaskDuration), day, day)

	assert.Equal(t, []models.Instant{
		at(zurich, day, 10, 0),
		at(zurich, day, 10, 30),
		at(zurich, day, 13, 0),
		at(zurich, day, 13, 30),
		at(zurich, day, 14, 0),
	}, startsOf(placed))
	for i, item := range placed {
		assert.Equal(t, fmt.Sprintf("task-%d", i+1), item.ID, "same-length items keep insertion order")
	}
}

func TestSchedule_TasksAtStartAndEnd(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.December, Day: 31}

	placed := runSchedule(t, []models.BusyInterval{busy(zurich, day, 9, 30, 17, 30)}, newItems(2, DefaultTaskDuration), day, day)

	assert.Equal(t, []models.Instant{at(zurich, day, 9, 0), at(zurich, day, 17, 30)}, startsOf(placed))
}

func TestSchedule_OutOfPhaseEvents(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2110, Month: time.September, Day: 28}
	events := []models.BusyInterval{
		busy(zurich, day, 17, 15, 19, 0),
		busy(zurich, day, 8, 0, 10, 0),
		busy(zurich, day, 14, 37, 16, 34),
		busy(zurich, day, 10, 41, 13, 50),
	}

	items := newItems(5, DefaultTaskDuration)
	placed := runSchedule(t, events, items, day, day)

	assert.Equal(t, []models.Instant{
		at(zurich, day, 10, 0),
		at(zurich, day, 13, 50),
		at(zurich, day, 16, 34),
	}, startsOf(placed))
	assert.False(t, items[3].Scheduled())
	assert.False(t, items[4].Scheduled())
}

func TestSchedule_FullWindowTaskOnly(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.October, Day: 19}

	long := &models.WorkItem{ID: "long", Duration: 9 * time.Hour}
	items := append([]*models.WorkItem{long}, newItems(3, DefaultTaskDuration)...)

	placed := runSchedule(t, nil, items, day, day)

	require.Len(t, placed, 1)
	assert.Equal(t, "long", placed[0].ID)
	assert.Equal(t, at(zurich, day, 9, 0), *placed[0].AssignedStart)
	for _, item := range items[1:] {
		assert.False(t, item.Scheduled())
	}
}

func TestSchedule_FullWindowTaskThenNextDay(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.October, Day: 19}
	next := day.AddDays(1)

	items := []*models.WorkItem{
		{ID: "short", Duration: 30 * time.Minute},
		{ID: "long", Duration: 9 * time.Hour},
		{ID: "medium", Duration: time.Hour},
	}

	placed := runSchedule(t, nil, items, day, next)

	require.Len(t, placed, 3)
	assert.Equal(t, []string{"long", "medium", "short"}, []string{placed[0].ID, placed[1].ID, placed[2].ID})
	assert.Equal(t, []models.Instant{
		at(zurich, day, 9, 0),
		at(zurich, next, 9, 0),
		at(zurich, next, 10, 0),
	}, startsOf(placed))
}

func TestSchedule_OverlappingEventsMerge(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.October, Day: 20}
	events := []models.BusyInterval{
		busy(zurich, day, 9, 0, 10, 0),
		busy(zurich, day, 9, 0, 11, 0),
	}

	placed := runSchedule(t, events, newItems(1, DefaultTaskDuration), day, day)

	require.Len(t, placed, 1)
	assert.Equal(t, at(zurich, day, 11, 0), *placed[0].AssignedStart)
}

func TestSchedule_FirstDayFullyBooked(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day1 := civil.Date{Year: 2026, Month: time.October, Day: 21}
	day2 := day1.AddDays(1)

	placed := runSchedule(t, []models.BusyInterval{busy(zurich, day1, 8, 0, 19, 0)}, newItems(4, DefaultTaskDuration), day1, day2)

	require.Len(t, placed, 4)
	for _, item := range placed {
		date, _ := timeconv.ToCivil(*item.AssignedStart, zurich)
		assert.Equal(t, day2, date)
	}
	assert.Equal(t, at(zurich, day2, 9, 0), *placed[0].AssignedStart)
}

func TestSchedule_LongestFitFirst(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.October, Day: 22}
	events := []models.BusyInterval{
		busy(zurich, day, 9, 0, 10, 0),
		busy(zurich, day, 11, 0, 18, 0),
	}
	items := []*models.WorkItem{
		{ID: "thirty", Duration: 30 * time.Minute},
		{ID: "fifteen", Duration: 15 * time.Minute},
		{ID: "ninety", Duration: 90 * time.Minute},
		{ID: "forty-five", Duration: 45 * time.Minute},
	}

	placed := runSchedule(t, events, items, day, day)

	require.Len(t, placed, 2)
	assert.Equal(t, "forty-five", placed[0].ID)
	assert.Equal(t, at(zurich, day, 10, 0), *placed[0].AssignedStart)
	assert.Equal(t, "fifteen", placed[1].ID)
	assert.Equal(t, at(zurich, day, 10, 45), *placed[1].AssignedStart)
	assert.False(t, items[0].Scheduled())
	assert.False(t, items[2].Scheduled())
}

func TestSchedule_NoTasks(t *testing.T) {
	day := civil.Date{Year: 2026, Month: time.October, Day: 23}

	placed := runSchedule(t, nil, nil, day, day.AddDays(30))

	assert.NotNil(t, placed)
	assert.Empty(t, placed)
}

func TestSchedule_EventsExpressedInOtherZones(t *testing.T) {
	day := civil.Date{Year: 2048, Month: time.June, Day: 23}
	parse := func(s string) models.Instant {
		i, err := timeconv.ParseRFC3339(s)
		require.NoError(t, err)
		return i
	}

	// The same two meetings, written with Zurich and with Los Angeles offsets.
	inZurich := []models.BusyInterval{
		{Start: parse("2048-06-23T09:00:00+02:00"), End: parse("2048-06-23T10:00:00+02:00")},
		{Start: parse("2048-06-23T11:00:00+02:00"), End: parse("2048-06-23T13:00:00+02:00")},
	}
	// Out of order, with Los Angeles and UTC offsets.
	inOtherZones := []models.BusyInterval{
		{Start: parse("2048-06-23T09:00:00Z"), End: parse("2048-06-23T11:00:00Z")},
		{Start: parse("2048-06-23T00:00:00-07:00"), End: parse("2048-06-23T01:00:00-07:00")},
	}

	a := runSchedule(t, inZurich, newItems(5, DefaultTaskDuration), day, day)
	b := runSchedule(t, inOtherZones, newItems(5, DefaultTaskDuration), day, day)

	assert.Equal(t, startsOf(a), startsOf(b))
}

func TestSchedule_OtherTimeZones(t *testing.T) {
	for _, zone := range []string{"UTC", "America/Los_Angeles", "Asia/Shanghai"} {
		t.Run(zone, func(t *testing.T) {
			loc := mustZone(t, zone)
			day := civil.Date{Year: 2026, Month: time.March, Day: 9}
			events := []models.BusyInterval{busy(loc, day, 9, 0, 17, 0)}

			placed, err := Schedule(models.ScheduleRequest{
				Busy:         events,
				Items:        newItems(3, DefaultTaskDuration),
				TimeZone:     zone,
				WorkingHours: nineToSix,
				RangeStart:   day,
				RangeEnd:     day,
			})
			require.NoError(t, err)

			assert.Equal(t, []models.Instant{at(loc, day, 17, 0), at(loc, day, 17, 30)}, startsOf(placed))
			date, clock := timeconv.ToCivil(*placed[0].AssignedStart, loc)
			assert.Equal(t, day, date)
			assert.Equal(t, civil.Time{Hour: 17}, clock)
		})
	}
}

func TestSchedule_EventSpanningMidnight(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day1 := civil.Date{Year: 2026, Month: time.November, Day: 2}
	day2 := day1.AddDays(1)
	overnight := models.BusyInterval{Start: at(zurich, day1, 16, 0), End: at(zurich, day2, 10, 0)}

	placed := runSchedule(t, []models.BusyInterval{overnight}, newItems(15, time.Hour), day1, day2)

	require.Len(t, placed, 15)
	assert.Equal(t, at(zurich, day1, 9, 0), *placed[0].AssignedStart)
	assert.Equal(t, at(zurich, day1, 15, 0), *placed[6].AssignedStart)
	assert.Equal(t, at(zurich, day2, 10, 0), *placed[7].AssignedStart)
	assert.Equal(t, at(zurich, day2, 17, 0), *placed[14].AssignedStart)
}

func TestSchedule_InvalidRequest(t *testing.T) {
	day := civil.Date{Year: 2026, Month: time.October, Day: 23}
	_, err := Schedule(models.ScheduleRequest{
		TimeZone:     "Nowhere/Special",
		WorkingHours: nineToSix,
		RangeStart:   day,
		RangeEnd:     day,
	})
	assert.ErrorIs(t, err, ErrUnknownTimeZone)
}

func TestScheduler_ScheduleDayKeepsLeftovers(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	day := civil.Date{Year: 2026, Month: time.October, Day: 26}

	s := NewScheduler(nil, newItems(20, time.Hour), zurich, nineToSix)
	first := s.ScheduleDay(day)
	assert.Len(t, first, 9)
	assert.Equal(t, 11, s.Pending())

	second := s.ScheduleDay(day.AddDays(1))
	assert.Len(t, second, 9)
	assert.Equal(t, 2, s.Pending())
}

func TestScheduler_DayWindowAcrossDST(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	s := NewScheduler(nil, nil, zurich, nineToSix)

	// Clocks go back on the last Sunday of October; the window stays 9 hours.
	start, end := s.DayWindow(civil.Date{Year: 2026, Month: time.October, Day: 25})
	assert.Equal(t, 9*time.Hour, end.Sub(start))
	assert.Equal(t, "2026-10-25T09:00:00+01:00", timeconv.FormatRFC3339(start, zurich))
}

func TestSchedule_RandomizedInvariants(t *testing.T) {
	zurich := mustZone(t, zurichZone)
	from := civil.Date{Year: 2026, Month: time.October, Day: 26}
	to := from.AddDays(4)
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var events []models.BusyInterval
		for i, n := 0, r.Intn(15); i < n; i++ {
			day := from.AddDays(r.Intn(6) - 1)
			start := at(zurich, day, 6+r.Intn(14), r.Intn(60))
			events = append(events, models.BusyInterval{
				Start: start,
				End:   start.Add(time.Duration(5+r.Intn(300)) * time.Minute),
			})
		}
		var items []*models.WorkItem
		for i, n := 0, r.Intn(40); i < n; i++ {
			items = append(items, &models.WorkItem{
				ID:       fmt.Sprintf("r%d-%d", round, i),
				Duration: time.Duration(5+r.Intn(240)) * time.Minute,
			})
		}

		placed := runSchedule(t, events, items, from, to)

		scheduled := 0
		for _, item := range items {
			if item.Scheduled() {
				scheduled++
			}
		}
		require.Equal(t, scheduled, len(placed))

		for i, item := range placed {
			iv := item.Interval()
			for _, b := range events {
				assert.False(t, b.Overlaps(iv.Start, iv.End), "round %d: %s overlaps a busy interval", round, item.ID)
			}
			for _, other := range placed[i+1:] {
				assert.False(t, iv.Overlaps(other.Interval().Start, other.Interval().End),
					"round %d: %s overlaps %s", round, item.ID, other.ID)
			}

			date, _ := timeconv.ToCivil(iv.Start, zurich)
			assert.False(t, date.Before(from) || date.After(to), "round %d: %s outside range", round, item.ID)
			dayStart := at(zurich, date, 9, 0)
			dayEnd := at(zurich, date, 18, 0)
			assert.True(t, iv.Start >= dayStart && iv.End <= dayEnd, "round %d: %s outside working hours", round, item.ID)

			if i > 0 {
				assert.True(t, placed[i-1].Interval().End <= iv.Start, "round %d: placements out of order", round)
			}
		}
	}
}
