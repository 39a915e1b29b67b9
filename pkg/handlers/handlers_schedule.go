package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-sql/civil"
	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/calendar"
	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
	"github.com/arnavshah/autoscheduler-api/pkg/tasks"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

// ScheduleInput is the body of POST /api/schedule and /api/validate.
type ScheduleInput struct {
	TimeZone     string               `json:"time_zone"`
	WorkingHours *models.WorkingHours `json:"working_hours"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	SelfEmail    string               `json:"self_email"`
	OnlyPending  bool                 `json:"only_pending"`
	Events       []calendar.Event     `json:"events"`
	Tasks        []tasks.Task         `json:"tasks"`
}

// ScheduledTask is one placed task in the response.
type ScheduledTask struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type ScheduleResponse struct {
	Scheduled   []ScheduledTask  `json:"scheduled"`
	Unscheduled []string         `json:"unscheduled"`
	Message     string           `json:"message"`
	TimeZone    string           `json:"time_zone"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Events      []calendar.Event `json:"events"`
	Tasks       []tasks.Task     `json:"tasks"`
	Calendar    string           `json:"calendar"`

	summary models.ScheduleSummary
}

// window is a resolved scheduling range.
type window struct {
	zone  string
	loc   *time.Location
	hours models.WorkingHours
	start civil.Date
	end   civil.Date
}

// bounds returns [start 00:00, day after end 00:00) in the window's zone.
func (w window) bounds() (time.Time, time.Time) {
	from := time.Date(w.start.Year, w.start.Month, w.start.Day, 0, 0, 0, 0, w.loc)
	next := w.end.AddDays(1)
	to := time.Date(next.Year, next.Month, next.Day, 0, 0, 0, 0, w.loc)
	return from, to
}

// resolveWindow applies the configured defaults: zone and hours from config,
// tomorrow when no start date is given, a single day when no end date is.
func (h *Handler) resolveWindow(zone string, hours *models.WorkingHours, startDate, endDate string) (window, error) {
	defaults := h.Config.Scheduler

	if zone == "" {
		zone = defaults.DefaultTimeZone
	}
	loc, err := timeconv.LoadZone(zone)
	if err != nil {
		return window{}, err
	}

	w := window{zone: zone, loc: loc, hours: defaults.WorkingHours()}
	if hours != nil {
		w.hours = *hours
	}

	if startDate == "" {
		w.start = timeconv.Tomorrow(h.now(), loc)
	} else if w.start, err = timeconv.ParseDate(startDate); err != nil {
		return window{}, fmt.Errorf("%w: start_date: %v", scheduler.ErrInvalidRange, err)
	}

	if endDate == "" {
		w.end = w.start
	} else if w.end, err = timeconv.ParseDate(endDate); err != nil {
		return window{}, fmt.Errorf("%w: end_date: %v", scheduler.ErrInvalidRange, err)
	}

	if days := w.end.DaysSince(w.start) + 1; days > defaults.MaxRangeDays {
		return window{}, fmt.Errorf("%w: %d days requested, at most %d allowed", scheduler.ErrInvalidRange, days, defaults.MaxRangeDays)
	}
	return w, nil
}

// prepare converts tasks into work items, filling in generated IDs so that
// tasks and items stay aligned.
func (h *Handler) prepare(list []tasks.Task) ([]tasks.Task, []*models.WorkItem, error) {
	items, err := tasks.ToWorkItems(list, h.Config.Scheduler.DefaultTaskDuration)
	if err != nil {
		return nil, nil, err
	}
	aligned := make([]tasks.Task, len(list))
	for i, t := range list {
		t.ID = items[i].ID
		aligned[i] = t
	}
	return aligned, items, nil
}

func (w window) request(busy []models.BusyInterval, items []*models.WorkItem) models.ScheduleRequest {
	return models.ScheduleRequest{
		Busy:         busy,
		Items:        items,
		TimeZone:     w.zone,
		WorkingHours: w.hours,
		RangeStart:   w.start,
		RangeEnd:     w.end,
	}
}

// run schedules list around events inside w.
func (h *Handler) run(w window, events []calendar.Event, list []tasks.Task) (*ScheduleResponse, error) {
	list, items, err := h.prepare(list)
	if err != nil {
		return nil, err
	}

	placed, err := scheduler.Schedule(w.request(calendar.BusyIntervals(events), items), scheduler.WithLogger(h.Log))
	if err != nil {
		return nil, err
	}
	summary := scheduler.Summarize(items, placed)

	resp := &ScheduleResponse{
		Scheduled:   make([]ScheduledTask, 0, len(placed)),
		Unscheduled: summary.Unscheduled,
		Message:     summary.Message,
		TimeZone:    w.zone,
		StartDate:   w.start.String(),
		EndDate:     w.end.String(),
		Events:      calendar.FromWorkItems(placed, w.loc),
		Tasks:       tasks.ApplySchedule(list, placed),
		Calendar:    calendar.EncodeICS(placed, h.now()),
		summary:     summary,
	}
	for _, item := range placed {
		iv := item.Interval()
		resp.Scheduled = append(resp.Scheduled, ScheduledTask{
			ID:              item.ID,
			Title:           item.Title,
			Start:           timeconv.FormatRFC3339(iv.Start, w.loc),
			End:             timeconv.FormatRFC3339(iv.End, w.loc),
			DurationMinutes: int(item.Duration / time.Minute),
		})
	}
	return resp, nil
}

func isInputError(err error) bool {
	for _, target := range []error{
		scheduler.ErrInvalidWorkingHours,
		scheduler.ErrInvalidDuration,
		scheduler.ErrInvalidItem,
		scheduler.ErrInvalidRange,
		scheduler.ErrInvalidBusyInterval,
		scheduler.ErrUnknownTimeZone,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	if isInputError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Log.Error("schedule", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not schedule tasks"})
}

func (h *Handler) respond(c *gin.Context, resp *ScheduleResponse) {
	h.RecordUsage(c, resp.summary.Requested, resp.summary.Scheduled)
	h.Log.Info("tasks scheduled",
		zap.String("user_id", c.GetString(ctxUserID)),
		zap.Int("requested", resp.summary.Requested),
		zap.Int("scheduled", resp.summary.Scheduled),
		zap.String("time_zone", resp.TimeZone),
	)
	c.JSON(http.StatusOK, resp)
}

// ScheduleJSON schedules tasks around the events given in the JSON body.
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.resolveWindow(input.TimeZone, input.WorkingHours, input.StartDate, input.EndDate)
	if err != nil {
		h.fail(c, err)
		return
	}

	calendar.MarkSelf(input.Events, input.SelfEmail)
	list := input.Tasks
	if input.OnlyPending {
		list = tasks.FilterPending(list, h.now())
	}

	resp, err := h.run(w, input.Events, list)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, resp)
}

// ScheduleICS handles multipart uploads: an optional iCalendar file
// (calendar_file) and a tasks CSV (tasks_file), plus form fields time_zone,
// working_hours (HH:MM-HH:MM), start_date, end_date, self_email and
// only_pending.
func (h *Handler) ScheduleICS(c *gin.Context) {
	calendarFile, _ := c.FormFile("calendar_file")
	tasksFile, _ := c.FormFile("tasks_file")

	if tasksFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tasks_file is required"})
		return
	}

	var hours *models.WorkingHours
	if raw := c.PostForm("working_hours"); raw != "" {
		parsed, err := timeconv.ParseWorkingHours(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hours = &parsed
	}

	w, err := h.resolveWindow(c.PostForm("time_zone"), hours, c.PostForm("start_date"), c.PostForm("end_date"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var events []calendar.Event
	if calendarFile != nil {
		f, err := calendarFile.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open calendar file"})
			return
		}
		defer f.Close()

		from, to := w.bounds()
		events, err = calendar.ParseICS(f, calendar.ParseOptions{
			SelfEmail:  c.PostForm("self_email"),
			RangeStart: from,
			RangeEnd:   to,
			Logger:     h.Log,
		})
		if err != nil && !errors.Is(err, calendar.ErrEmptyCalendar) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse calendar_file: " + err.Error()})
			return
		}
	}

	tf, err := tasksFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open tasks file"})
		return
	}
	defer tf.Close()

	list, err := tasks.ParseCSV(tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse tasks_file: " + err.Error()})
		return
	}
	if pending, _ := strconv.ParseBool(c.PostForm("only_pending")); pending {
		list = tasks.FilterPending(list, h.now())
	}

	resp, err := h.run(w, events, list)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, resp)
}
