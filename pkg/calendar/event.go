package calendar

import (
	"strings"
	"time"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

const (
	ResponseAccepted     = "accepted"
	TransparencyOpaque   = "opaque"
	TransparencyTransp   = "transparent"
	StatusCancelled      = "cancelled"
	defaultMaxOccurrence = 5000
)

// Attendee is one participant of an event.
type Attendee struct {
	Email          string `json:"email"`
	Self           bool   `json:"self,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
}

// Event is a single concrete calendar occurrence, recurrences already
// expanded.
type Event struct {
	UID          string     `json:"uid,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	AllDay       bool       `json:"all_day,omitempty"`
	Transparency string     `json:"transparency,omitempty"`
	Status       string     `json:"status,omitempty"`
	Attendees    []Attendee `json:"attendees,omitempty"`
}

// IsAttending reports whether the calendar owner takes part in the event.
// Events without attendees belong to the owner; otherwise the owner's own
// attendee entry must have accepted.
func IsAttending(e Event) bool {
	if len(e.Attendees) == 0 {
		return true
	}
	for _, a := range e.Attendees {
		if a.Self {
			return strings.EqualFold(a.ResponseStatus, ResponseAccepted)
		}
	}
	return false
}

// IsBusy reports whether the event blocks time. Only transparent events are
// free.
func IsBusy(e Event) bool {
	return e.Transparency == "" || strings.EqualFold(e.Transparency, TransparencyOpaque)
}

// IsTimed reports whether the event has a concrete start and end time.
// All-day events never block working hours.
func IsTimed(e Event) bool {
	return !e.AllDay && !e.Start.IsZero() && !e.End.IsZero()
}

// IsCancelled reports whether the organizer cancelled the event.
func IsCancelled(e Event) bool {
	return strings.EqualFold(e.Status, StatusCancelled)
}

// Blocks reports whether e should be treated as occupied time.
func Blocks(e Event) bool {
	return IsTimed(e) && IsBusy(e) && IsAttending(e) && !IsCancelled(e) && e.End.After(e.Start)
}

// BusyIntervals converts the events that block time into busy intervals.
func BusyIntervals(events []Event) []models.BusyInterval {
	out := make([]models.BusyInterval, 0, len(events))
	for _, e := range events {
		if !Blocks(e) {
			continue
		}
		b := models.BusyInterval{Start: models.InstantOf(e.Start), End: models.InstantOf(e.End)}
		if b.End <= b.Start {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FromWorkItems turns placed items into private busy events, so that later
// runs see them as occupied.
func FromWorkItems(items []*models.WorkItem, loc *time.Location) []Event {
	out := make([]Event, 0, len(items))
	for _, item := range items {
		if !item.Scheduled() {
			continue
		}
		iv := item.Interval()
		out = append(out, Event{
			UID:          item.ID,
			Summary:      item.Title,
			Start:        iv.Start.In(loc),
			End:          iv.End.In(loc),
			Transparency: TransparencyOpaque,
		})
	}
	return out
}

// MarkSelf flags the attendees whose address matches email as the calendar
// owner. An empty email leaves events untouched.
func MarkSelf(events []Event, email string) {
	if email == "" {
		return
	}
	for i := range events {
		for j := range events[i].Attendees {
			a := &events[i].Attendees[j]
			if strings.EqualFold(mailbox(a.Email), email) {
				a.Self = true
			}
		}
	}
}
