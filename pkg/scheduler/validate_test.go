package scheduler

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

func validRequest() models.ScheduleRequest {
	day := civil.Date{Year: 2026, Month: time.October, Day: 16}
	return models.ScheduleRequest{
		Busy:         []models.BusyInterval{{Start: 10, End: 20}},
		Items:        []*models.WorkItem{{ID: "a", Duration: time.Minute}},
		TimeZone:     "Europe/Zurich",
		WorkingHours: nineToSix,
		RangeStart:   day,
		RangeEnd:     day,
	}
}

func TestValidateWorkingHours(t *testing.T) {
	assert.NoError(t, ValidateWorkingHours(models.WorkingHours{StartHour: 9, EndHour: 9, EndMinute: 1}))

	bad := []models.WorkingHours{
		{StartHour: 9, EndHour: 9},
		{StartHour: 18, EndHour: 9},
		{StartHour: 9, StartMinute: 30, EndHour: 9, EndMinute: 15},
		{StartHour: 9, EndHour: 24},
		{StartHour: -1, EndHour: 9},
		{StartHour: 9, EndHour: 10, EndMinute: 60},
	}
	for _, h := range bad {
		assert.ErrorIs(t, ValidateWorkingHours(h), ErrInvalidWorkingHours, "%+v", h)
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(validRequest()))

	tests := []struct {
		name   string
		mutate func(*models.ScheduleRequest)
		want   error
	}{
		{"unknown zone", func(r *models.ScheduleRequest) { r.TimeZone = "Atlantis/Capital" }, ErrUnknownTimeZone},
		{"empty zone", func(r *models.ScheduleRequest) { r.TimeZone = "" }, ErrUnknownTimeZone},
		{"inverted hours", func(r *models.ScheduleRequest) { r.WorkingHours = models.WorkingHours{StartHour: 18, EndHour: 9} }, ErrInvalidWorkingHours},
		{"end before start", func(r *models.ScheduleRequest) { r.RangeEnd = r.RangeStart.AddDays(-1) }, ErrInvalidRange},
		{"invalid date", func(r *models.ScheduleRequest) { r.RangeStart = civil.Date{Year: 2026, Month: time.February, Day: 30} }, ErrInvalidRange},
		{"empty busy interval", func(r *models.ScheduleRequest) { r.Busy = []models.BusyInterval{{Start: 10, End: 10}} }, ErrInvalidBusyInterval},
		{"zero duration", func(r *models.ScheduleRequest) { r.Items[0].Duration = 0 }, ErrInvalidDuration},
		{"negative duration", func(r *models.ScheduleRequest) { r.Items[0].Duration = -time.Minute }, ErrInvalidDuration},
		{"sub-millisecond duration", func(r *models.ScheduleRequest) { r.Items[0].Duration = time.Millisecond + 1 }, ErrInvalidDuration},
		{"nil item", func(r *models.ScheduleRequest) { r.Items = append(r.Items, nil) }, ErrInvalidItem},
		{"already scheduled", func(r *models.ScheduleRequest) {
			start := models.Instant(0)
			r.Items[0].AssignedStart = &start
		}, ErrInvalidItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.ErrorIs(t, ValidateRequest(req), tt.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	start := models.Instant(0)
	items := []*models.WorkItem{
		{ID: "a", Duration: time.Minute, AssignedStart: &start},
		{ID: "b", Duration: time.Minute},
		{ID: "c", Duration: time.Minute},
	}

	summary := Summarize(items, items[:1])

	assert.Equal(t, 3, summary.Requested)
	assert.Equal(t, 1, summary.Scheduled)
	assert.Equal(t, []string{"b", "c"}, summary.Unscheduled)
	assert.Equal(t, "1 of 3 tasks scheduled", summary.Message)
}
