package tasks

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

var csvHeader = []string{"id", "title", "notes", "duration_minutes", "due"}

// ParseCSV reads tasks from a CSV with a header row. Only title is
// required; id, notes, duration_minutes and due (RFC 3339) are optional.
func ParseCSV(r io.Reader) ([]Task, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("%w: title", ErrMissingColumn)
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []Task
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		t := Task{
			ID:    field(record, "id"),
			Title: field(record, "title"),
			Notes: field(record, "notes"),
		}
		if v := field(record, "duration_minutes"); v != "" {
			mins, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: duration_minutes %q: %w", row, v, err)
			}
			t.DurationMinutes = mins
		}
		if v := field(record, "due"); v != "" {
			due, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("row %d: due %q: %w", row, v, err)
			}
			t.Due = &due
		}
		out = append(out, t)
	}
	return out, nil
}

// WriteCSV writes tasks in the layout ParseCSV reads.
func WriteCSV(w io.Writer, tasks []Task) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		due := ""
		if t.Due != nil {
			due = t.Due.Format(time.RFC3339)
		}
		if err := writer.Write([]string{t.ID, t.Title, t.Notes, strconv.Itoa(t.DurationMinutes), due}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
