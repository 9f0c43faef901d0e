// Package schedule resolves extractor drafts into fully time-zoned events
// ready for calendar creation.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/skylarkbot/skylark/pkg/extract"
)

// Resolved is a validated event: zoned timestamps, End strictly after Start.
type Resolved struct {
	Title    string
	Start    time.Time
	End      time.Time
	Location string
}

var (
	// ErrBadDraftTime means the draft's date/time fields do not parse.
	ErrBadDraftTime = errors.New("unparseable draft date/time")
	// ErrEndBeforeStart means the draft supplied an end not after its start.
	ErrEndBeforeStart = errors.New("event end not after start")
)

// Resolve combines the draft's date and time fields in loc. A missing
// end_time defaults to start plus defaultDuration.
func Resolve(d *extract.ScheduleDraft, loc *time.Location, defaultDuration time.Duration) (*Resolved, error) {
	if defaultDuration <= 0 {
		defaultDuration = time.Hour
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrBadDraftTime, d.Date, d.StartTime)
	}

	end := start.Add(defaultDuration)
	if d.EndTime != "" {
		end, err = time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s", ErrBadDraftTime, d.Date, d.EndTime)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: start=%s end=%s", ErrEndBeforeStart,
				start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
	}

	title := d.Title
	if title == "" {
		title = "日程"
	}

	return &Resolved{
		Title:    title,
		Start:    start,
		End:      end,
		Location: d.Location,
	}, nil
}
