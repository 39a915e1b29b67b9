package scheduler

import (
	"fmt"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

// Summarize reports how many of the requested items were placed and which
// ones were left over.
func Summarize(requested, placed []*models.WorkItem) models.ScheduleSummary {
	unscheduled := make([]string, 0)
	for _, item := range requested {
		if item != nil && !item.Scheduled() {
			unscheduled = append(unscheduled, item.ID)
		}
	}
	return models.ScheduleSummary{
		Requested:   len(requested),
		Scheduled:   len(placed),
		Unscheduled: unscheduled,
		Message:     fmt.Sprintf("%d of %d tasks scheduled", len(placed), len(requested)),
	}
}
