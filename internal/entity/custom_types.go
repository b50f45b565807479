package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventDate accepts the date shapes the web client sends: a bare day from a
// date input, a datetime-local value, or a full RFC 3339 timestamp.
type EventDate struct {
	time.Time
}

const (
	DayLayout           = "2006-01-02"
	datetimeLocalLayout = "2006-01-02T15:04"
)

var eventDateLayouts = []string{time.RFC3339Nano, datetimeLocalLayout, DayLayout}

func ParseEventDate(s string) (time.Time, error) {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC3339)", s)
}

func (d *EventDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseEventDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d EventDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

// DayRange returns [day 00:00, next day 00:00) in UTC for a YYYY-MM-DD string.
func DayRange(day string) (time.Time, time.Time, error) {
	start, err := time.Parse(DayLayout, day)
	if err != nil {
		start, err = time.Parse(time.RFC3339, day)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", day)
		}
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	}
	return start, start.AddDate(0, 0, 1), nil
}
