package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// ErrEmptyCalendar is returned when the ICS payload contains no data.
var ErrEmptyCalendar = errors.New("empty calendar")

// ParseOptions controls ICS parsing and recurrence expansion.
type ParseOptions struct {
	// SelfEmail identifies the calendar owner among attendees. When empty,
	// attendee lists are ignored and every event counts as attended.
	SelfEmail string

	// RangeStart and RangeEnd bound expanded occurrences to those
	// intersecting [RangeStart, RangeEnd). Zero values leave that side open.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps the occurrences produced per recurring event.
	// Zero means 5000.
	MaxOccurrences int

	Logger *zap.Logger
}

// vevent is a VEVENT before recurrence expansion.
type vevent struct {
	Event
	rrule        string
	exdates      []time.Time
	recurrenceID *time.Time
}

// ParseICS reads an iCalendar stream and returns concrete event occurrences
// within the configured range, recurrences expanded and overrides applied.
// Malformed VEVENTs are logged and skipped.
func ParseICS(r io.Reader, opts ParseOptions) ([]Event, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrence
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCalendar
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var bases []vevent
	overrides := make(map[string][]vevent)
	for _, comp := range cal.Events() {
		ev, err := parseVEvent(comp, opts.SelfEmail)
		if err != nil {
			opts.Logger.Warn("skipping vevent", zap.Error(err))
			continue
		}
		if ev.recurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	events := make([]Event, 0, len(bases))
	for _, base := range bases {
		occ, truncated := expand(base, overrides[base.UID], opts)
		if truncated {
			opts.Logger.Warn("recurrence truncated",
				zap.String("uid", base.UID),
				zap.Int("cap", opts.MaxOccurrences),
			)
		}
		events = append(events, occ...)
		delete(overrides, base.UID)
	}

	// Overrides without a base event stand on their own.
	for _, orphans := range overrides {
		for _, ev := range orphans {
			if inRange(ev.Start, ev.End, opts) {
				events = append(events, ev.Event)
			}
		}
	}

	opts.Logger.Debug("calendar parsed", zap.Int("events", len(events)))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, selfEmail string) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("TRANSP")); p != nil {
		out.Transparency = strings.ToLower(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentProperty("STATUS")); p != nil {
		out.Status = strings.ToLower(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		// All-day events never block time; keep whatever dates parse.
		out.Start, _ = ve.GetAllDayStartAt()
		out.End, _ = ve.GetAllDayEndAt()
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
		}
		end, err := eventEnd(ve, start)
		if err != nil {
			return out, fmt.Errorf("event %s: %w", out.UID, err)
		}
		out.Start, out.End = start, end
	}

	out.Attendees = attendees(ve, selfEmail)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, p.ICalParameters, out.Start.Location()); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, p.ICalParameters, out.Start.Location()); err == nil {
			out.recurrenceID = &t
		}
	}

	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// attendees reads ATTENDEE lines. Without a self email the list is dropped,
// since attendance cannot be decided.
func attendees(ve *ical.VEvent, selfEmail string) []Attendee {
	if selfEmail == "" {
		return nil
	}

	var out []Attendee
	hasSelf := false
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		a := Attendee{Email: mailbox(p.Value)}
		if vs, ok := p.ICalParameters["PARTSTAT"]; ok && len(vs) > 0 {
			a.ResponseStatus = strings.ToLower(vs[0])
		}
		if strings.EqualFold(a.Email, selfEmail) {
			a.Self = true
			hasSelf = true
		}
		out = append(out, a)
	}

	// Organizers are frequently missing from their own attendee list.
	if !hasSelf && len(out) > 0 {
		if org := ve.GetProperty(ical.ComponentPropertyOrganizer); org != nil && strings.EqualFold(mailbox(org.Value), selfEmail) {
			out = append(out, Attendee{Email: selfEmail, Self: true, ResponseStatus: ResponseAccepted})
		}
	}
	return out
}

func mailbox(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return v
}

// parseICSTime parses DATE and DATE-TIME values, honoring a TZID parameter.
func parseICSTime(v string, params map[string][]string, fallback *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	loc := fallback
	if tzids, ok := params["TZID"]; ok && len(tzids) > 0 {
		if l, err := time.LoadLocation(tzids[0]); err == nil {
			loc = l
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

func inRange(start, end time.Time, opts ParseOptions) bool {
	if !opts.RangeEnd.IsZero() && !start.Before(opts.RangeEnd) {
		return false
	}
	if !opts.RangeStart.IsZero() && !end.After(opts.RangeStart) {
		return false
	}
	return true
}

// expand returns the occurrences of ev inside the range and whether the
// occurrence cap was hit.
func expand(ev vevent, overrides []vevent, opts ParseOptions) ([]Event, bool) {
	if ev.rrule == "" {
		occ := ev.Event
		if i, ok := findOverride(overrides, ev.Start); ok {
			occ = overrides[i].Event
		}
		if !inRange(occ.Start, occ.End, opts) {
			return nil, false
		}
		return []Event{occ}, false
	}

	rule, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		opts.Logger.Warn("invalid RRULE", zap.String("uid", ev.UID), zap.String("rrule", ev.rrule), zap.Error(err))
		return nil, false
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	length := ev.End.Sub(ev.Start)
	matched := make(map[int]bool, len(overrides))
	var out []Event
	next := set.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if !opts.RangeEnd.IsZero() && !start.Before(opts.RangeEnd) {
			break
		}

		occ := ev.Event
		occ.Start = start
		occ.End = start.Add(length)
		if ev.AllDay {
			day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			occ.Start, occ.End = day, day.AddDate(0, 0, 1)
		}
		if i, ok := findOverride(overrides, start); ok {
			occ = overrides[i].Event
			matched[i] = true
		}
		if !inRange(occ.Start, occ.End, opts) {
			continue
		}
		if len(out) == opts.MaxOccurrences {
			return out, true
		}
		out = append(out, occ)
	}

	// Overrides of occurrences past the range end may move them into it.
	for i, o := range overrides {
		if matched[i] || !inRange(o.Start, o.End, opts) {
			continue
		}
		if len(out) == opts.MaxOccurrences {
			return out, true
		}
		out = append(out, o.Event)
	}
	return out, false
}

func findOverride(overrides []vevent, start time.Time) (int, bool) {
	for i, o := range overrides {
		if o.recurrenceID != nil && o.recurrenceID.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

// eventEnd resolves the end of a timed VEVENT from DTEND, or from DTSTART
// plus DURATION. An event with neither ends where it starts.
func eventEnd(ve *ical.VEvent, start time.Time) (time.Time, error) {
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		end, err := ve.GetEndAt()
		if err != nil {
			return time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return end, nil
	}
	if p := ve.GetProperty(ical.ComponentProperty("DURATION")); p != nil {
		end, err := addDuration(start, p.Value)
		if err != nil {
			return time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return end, nil
	}
	return start, nil
}

// addDuration adds an RFC 5545 duration such as "PT1H30M", "P1D" or "-P2W"
// to t. Days and weeks are nominal, so they follow the wall clock across
// DST changes.
func addDuration(t time.Time, v string) (time.Time, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) == 1 {
		return time.Time{}, fmt.Errorf("invalid duration %q", v)
	}

	var days int
	var clock time.Duration
	inTime := false
	n, digits, units := 0, 0, 0
	for _, r := range s[1:] {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			digits++
			continue
		}
		if r == 'T' {
			if inTime || digits > 0 {
				return time.Time{}, fmt.Errorf("invalid duration %q", v)
			}
			inTime, units = true, 0
			continue
		}
		if digits == 0 {
			return time.Time{}, fmt.Errorf("invalid duration %q", v)
		}
		switch {
		case r == 'W' && !inTime:
			days += 7 * n
		case r == 'D' && !inTime:
			days += n
		case r == 'H' && inTime:
			clock += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			clock += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			clock += time.Duration(n) * time.Second
		default:
			return time.Time{}, fmt.Errorf("invalid duration %q", v)
		}
		n, digits = 0, 0
		units++
	}
	if digits > 0 || units == 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q", v)
	}
	return t.AddDate(0, 0, sign*days).Add(time.Duration(sign) * clock), nil
}
