package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/calendar"
	"github.com/arnavshah/autoscheduler-api/pkg/config"
	"github.com/arnavshah/autoscheduler-api/pkg/logger"
	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
	"github.com/arnavshah/autoscheduler-api/pkg/tasks"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

type flagConfig struct {
	calendarPath string
	tasksPath    string
	outTasksPath string
	zone         string
	from         string
	to           string
	hours        string
	self         string
	pendingOnly  bool
	ics          bool
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(flags, cfg, time.Now(), os.Stdout, l); err != nil {
		l.Error("autoschedule failed", zap.Error(err))
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.calendarPath, "calendar", "", "Path to an iCalendar (.ics) file with existing events")
	flag.StringVar(&cfg.tasksPath, "tasks", "", "Path to the tasks CSV (id,title,notes,duration_minutes,due)")
	flag.StringVar(&cfg.outTasksPath, "out-tasks", "", "Write the tasks CSV with due dates moved to the scheduled start")
	flag.StringVar(&cfg.zone, "zone", "", "IANA time zone (defaults to DEFAULT_TIME_ZONE)")
	flag.StringVar(&cfg.from, "from", "", "First day to schedule, YYYY-MM-DD (defaults to tomorrow)")
	flag.StringVar(&cfg.to, "to", "", "Last day to schedule, YYYY-MM-DD (defaults to -from)")
	flag.StringVar(&cfg.hours, "hours", "", "Working hours, HH:MM-HH:MM (defaults to WORK_* settings)")
	flag.StringVar(&cfg.self, "self", "", "Your email, to skip events you declined")
	flag.BoolVar(&cfg.pendingOnly, "pending", false, "Only schedule tasks without a due date or already overdue")
	flag.BoolVar(&cfg.ics, "ics", false, "Print the placed tasks as iCalendar instead of a table")

	flag.Parse()

	return cfg
}

func run(flags flagConfig, cfg *config.Config, now time.Time, out io.Writer, l *zap.Logger) error {
	if flags.tasksPath == "" {
		return errors.New("-tasks is required")
	}

	zone := flags.zone
	if zone == "" {
		zone = cfg.Scheduler.DefaultTimeZone
	}
	loc, err := timeconv.LoadZone(zone)
	if err != nil {
		return err
	}

	hours := cfg.Scheduler.WorkingHours()
	if flags.hours != "" {
		if hours, err = timeconv.ParseWorkingHours(flags.hours); err != nil {
			return err
		}
	}

	start := timeconv.Tomorrow(now, loc)
	if flags.from != "" {
		if start, err = timeconv.ParseDate(flags.from); err != nil {
			return err
		}
	}
	end := start
	if flags.to != "" {
		if end, err = timeconv.ParseDate(flags.to); err != nil {
			return err
		}
	}

	list, err := readTasks(flags.tasksPath)
	if err != nil {
		return err
	}
	if flags.pendingOnly {
		list = tasks.FilterPending(list, now)
	}
	items, err := tasks.ToWorkItems(list, cfg.Scheduler.DefaultTaskDuration)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].ID = items[i].ID
	}

	var events []calendar.Event
	if flags.calendarPath != "" {
		next := end.AddDays(1)
		events, err = readCalendar(flags.calendarPath, calendar.ParseOptions{
			SelfEmail:  flags.self,
			RangeStart: time.Date(start.Year, start.Month, start.Day, 0, 0, 0, 0, loc),
			RangeEnd:   time.Date(next.Year, next.Month, next.Day, 0, 0, 0, 0, loc),
			Logger:     l,
		})
		if err != nil {
			return err
		}
	}

	placed, err := scheduler.Schedule(models.ScheduleRequest{
		Busy:         calendar.BusyIntervals(events),
		Items:        items,
		TimeZone:     zone,
		WorkingHours: hours,
		RangeStart:   start,
		RangeEnd:     end,
	}, scheduler.WithLogger(l))
	if err != nil {
		return err
	}
	summary := scheduler.Summarize(items, placed)

	if flags.outTasksPath != "" {
		if err := writeTasks(flags.outTasksPath, tasks.ApplySchedule(list, placed)); err != nil {
			return err
		}
	}

	if flags.ics {
		_, err := io.WriteString(out, calendar.EncodeICS(placed, now))
		return err
	}
	return printTable(out, placed, summary, loc)
}

func readTasks(path string) ([]tasks.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	defer f.Close()

	list, err := tasks.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

func writeTasks(path string, list []tasks.Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tasks.WriteCSV(f, list); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readCalendar(path string, opts calendar.ParseOptions) ([]calendar.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer f.Close()

	events, err := calendar.ParseICS(f, opts)
	if err != nil && !errors.Is(err, calendar.ErrEmptyCalendar) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func printTable(out io.Writer, placed []*models.WorkItem, summary models.ScheduleSummary, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tMIN\tID\tTITLE")
	for _, item := range placed {
		iv := item.Interval()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			iv.Start.In(loc).Format("2006-01-02 15:04"),
			iv.End.In(loc).Format("15:04"),
			int(item.Duration/time.Minute),
			item.ID,
			item.Title,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(summary.Unscheduled) > 0 {
		fmt.Fprintf(out, "unscheduled: %v\n", summary.Unscheduled)
	}
	_, err := fmt.Fprintln(out, summary.Message)
	return err
}
