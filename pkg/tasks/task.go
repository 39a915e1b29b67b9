package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
)

// ErrInvalidDuration is returned for tasks with a negative duration.
var ErrInvalidDuration = scheduler.ErrInvalidDuration

// ErrDuplicateID is returned when two tasks carry the same ID.
var ErrDuplicateID = fmt.Errorf("%w: duplicate task ID", scheduler.ErrInvalidItem)

// Task is a to-do entry as supplied by the caller.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	Due             *time.Time `json:"due,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

// FilterPending keeps tasks without a due date or whose due date already
// passed. Tasks due in the future are left alone.
func FilterPending(tasks []Task, now time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Due == nil || t.Due.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

// ToWorkItems converts tasks into schedulable items. A zero duration falls
// back to def, a missing ID gets a random one. Explicit IDs must be unique.
func ToWorkItems(tasks []Task, def time.Duration) ([]*models.WorkItem, error) {
	items := make([]*models.WorkItem, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.ID != "" {
			if seen[t.ID] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
			}
			seen[t.ID] = true
		}
		if t.DurationMinutes < 0 {
			return nil, fmt.Errorf("task %d (%q): %w: %d minutes", i, t.ID, ErrInvalidDuration, t.DurationMinutes)
		}
		d := time.Duration(t.DurationMinutes) * time.Minute
		if d == 0 {
			d = def
		}
		id := t.ID
		if id == "" {
			id = uuid.NewString()
		}
		items = append(items, &models.WorkItem{
			ID:       id,
			Title:    t.Title,
			Notes:    t.Notes,
			Duration: d,
		})
	}
	return items, nil
}

// ApplySchedule moves the due date of every placed task to its assigned
// start and returns the updated tasks. Unplaced tasks are unchanged.
func ApplySchedule(tasks []Task, placed []*models.WorkItem) []Task {
	starts := make(map[string]time.Time, len(placed))
	for _, item := range placed {
		if item.Scheduled() {
			starts[item.ID] = item.AssignedStart.Time()
		}
	}

	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if start, ok := starts[t.ID]; ok {
			t.Due = &start
		}
		out[i] = t
	}
	return out
}
