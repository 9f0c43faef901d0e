package pipeline

import (
	"context"
	"time"
)

// defaultDuplicateWindow is how far around the candidate start the detector
// queries. A generous window tolerates timezone and off-by-one-day ambiguity
// from upstream extraction; the match itself stays exact.
const defaultDuplicateWindow = 24 * time.Hour

// Detector checks the calendar back-end for an event matching a draft before
// anything is created. The back-end is the source of truth, so redelivered
// or re-uttered schedules are caught without local bookkeeping.
type Detector struct {
	calendar CalendarAPI
	window   time.Duration
}

// NewDetector creates a detector querying ±window around the candidate
// start. window <= 0 selects the default of one day.
func NewDetector(calendar CalendarAPI, window time.Duration) *Detector {
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	return &Detector{calendar: calendar, window: window}
}

// FindDuplicate returns the id of an existing event whose title equals title
// and whose start matches start to the second. ok is false when no match
// exists; a query error is returned as-is so the caller can fail closed.
func (d *Detector) FindDuplicate(ctx context.Context, token, calendarID, title string, start time.Time) (eventID string, ok bool, err error) {
	events, err := d.calendar.ListEvents(ctx, token, calendarID, start.Add(-d.window), start.Add(d.window))
	if err != nil {
		return "", false, err
	}
	for _, ev := range events {
		if ev.Summary == title && ev.Start.Unix() == start.Unix() {
			return ev.EventID, true, nil
		}
	}
	return "", false, nil
}
