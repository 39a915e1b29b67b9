package scheduler

import (
	"cmp"
	"slices"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

// FreeGaps returns the ordered free sub-intervals of [dayStart, dayEnd) that
// no busy interval covers. busy may be unordered, overlapping, nested or
// reach outside the window.
func FreeGaps(dayStart, dayEnd models.Instant, busy []models.BusyInterval) []models.Gap {
	if dayEnd <= dayStart {
		return nil
	}

	relevant := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if b.End <= dayStart || b.Start >= dayEnd {
			continue
		}
		relevant = append(relevant, b)
	}
	slices.SortStableFunc(relevant, func(a, b models.BusyInterval) int {
		return cmp.Compare(a.Start, b.Start)
	})

	var gaps []models.Gap
	cursor := dayStart
	for _, b := range relevant {
		if b.Start > cursor {
			gaps = append(gaps, models.Gap{Start: cursor, End: b.Start})
		}
		// Overlapping and nested intervals merge here.
		cursor = max(cursor, b.End)
	}
	if cursor < dayEnd {
		gaps = append(gaps, models.Gap{Start: cursor, End: dayEnd})
	}
	return gaps
}
