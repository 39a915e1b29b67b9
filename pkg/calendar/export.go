package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

const productID = "-//autoscheduler-api//task scheduler//EN"

// EncodeICS renders the placed items as private, busy VEVENTs. Unplaced
// items are skipped. now is written as DTSTAMP.
func EncodeICS(items []*models.WorkItem, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, item := range items {
		if !item.Scheduled() {
			continue
		}
		iv := item.Interval()

		ev := cal.AddEvent(item.ID)
		ev.SetDtStampTime(now)
		ev.SetStartAt(iv.Start.Time())
		ev.SetEndAt(iv.End.Time())
		if item.Title != "" {
			ev.SetSummary(item.Title)
		}
		if item.Notes != "" {
			ev.SetDescription(item.Notes)
		}
		ev.SetProperty(ical.ComponentProperty("CLASS"), "PRIVATE")
		ev.SetProperty(ical.ComponentProperty("TRANSP"), "OPAQUE")
	}

	return cal.Serialize()
}
