package tasks

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
)

func at(t time.Time) *time.Time { return &t }

func TestFilterPending(t *testing.T) {
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	list := []Task{
		{ID: "none"},
		{ID: "past", Due: at(now.Add(-time.Hour))},
		{ID: "future", Due: at(now.Add(time.Hour))},
		{ID: "now", Due: at(now)},
	}

	got := FilterPending(list, now)

	ids := make([]string, 0, len(got))
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"none", "past"}, ids)
}

func TestToWorkItems(t *testing.T) {
	items, err := ToWorkItems([]Task{
		{ID: "a", Title: "A", Notes: "n", DurationMinutes: 90},
		{ID: "b", Title: "B"},
		{Title: "no id", DurationMinutes: 15},
	}, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, &models.WorkItem{ID: "a", Title: "A", Notes: "n", Duration: 90 * time.Minute}, items[0])
	assert.Equal(t, 30*time.Minute, items[1].Duration)
	assert.NotEmpty(t, items[2].ID)
	assert.Equal(t, 15*time.Minute, items[2].Duration)
}

func TestToWorkItems_DuplicateID(t *testing.T) {
	_, err := ToWorkItems([]Task{{ID: "a"}, {Title: "untitled"}, {ID: "a"}}, time.Minute)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, scheduler.ErrInvalidItem)
	assert.EqualError(t, err, "invalid work item: duplicate task ID: a")

	items, err := ToWorkItems([]Task{{}, {}}, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestToWorkItems_Negative(t *testing.T) {
	_, err := ToWorkItems([]Task{{ID: "x", DurationMinutes: -5}}, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestApplySchedule(t *testing.T) {
	start := models.InstantOf(time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC))
	list := []Task{{ID: "a"}, {ID: "b"}}
	placed := []*models.WorkItem{{ID: "a", Duration: time.Hour, AssignedStart: &start}}

	got := ApplySchedule(list, placed)

	require.NotNil(t, got[0].Due)
	assert.True(t, got[0].Due.Equal(start.Time()))
	assert.Nil(t, got[1].Due)
	assert.Nil(t, list[0].Due, "input is not modified")
}

func TestParseCSV(t *testing.T) {
	in := strings.Join([]string{
		"Title,id,duration_minutes,due,notes",
		"Write report,t1,60,2026-10-15T09:00:00Z,quarterly",
		"Inbox zero,t2,,,",
		"Short,t3,5",
	}, "\n")

	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "Write report", got[0].Title)
	assert.Equal(t, "quarterly", got[0].Notes)
	assert.Equal(t, 60, got[0].DurationMinutes)
	require.NotNil(t, got[0].Due)
	assert.Equal(t, 2026, got[0].Due.Year())

	assert.Zero(t, got[1].DurationMinutes)
	assert.Nil(t, got[1].Due)
	assert.Equal(t, 5, got[2].DurationMinutes)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("id,notes\n1,x\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ParseCSV(strings.NewReader("title,duration_minutes\nok,10\nbad,ten\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")

	_, err = ParseCSV(strings.NewReader("title,due\nbad,tomorrow\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	list := []Task{
		{ID: "t1", Title: "Write, report", DurationMinutes: 60, Due: at(time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC))},
		{ID: "t2", Title: "Inbox"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, list))

	back, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, list, back)
}
