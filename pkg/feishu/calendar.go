package feishu

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Calendar is one entry from the calendar list.
type Calendar struct {
	CalendarID string `json:"calendar_id"`
	Type       string `json:"type"` // "primary", "shared", ...
	Role       string `json:"role"`
	Summary    string `json:"summary"`
}

// CalendarEvent is an existing event, with its start parsed to a timestamp.
type CalendarEvent struct {
	EventID string
	Summary string
	Start   time.Time
}

// EventDraft is the payload for event creation.
type EventDraft struct {
	Summary  string
	Start    time.Time
	End      time.Time
	Timezone string // fixed label consistent with draft resolution
	Location string
}

// timeInfo is the wire form of a calendar timestamp.
type timeInfo struct {
	Timestamp string `json:"timestamp"`
	Timezone  string `json:"timezone,omitempty"`
}

// Calendar operations take an explicit bearer token so the caller can choose
// between the sender's user token and the shared tenant token.

// ListCalendars returns the calendars visible to the token's principal.
func (c *Client) ListCalendars(ctx context.Context, token string) ([]Calendar, error) {
	var out struct {
		envelope
		Data struct {
			CalendarList []Calendar `json:"calendar_list"`
		} `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/open-apis/calendar/v4/calendars")
	if err != nil {
		return nil, fmt.Errorf("%w: list calendars: %v", ErrCalendarQuery, err)
	}
	if resp.IsError() || !out.ok() {
		return nil, fmt.Errorf("%w: list calendars code=%d msg=%q", ErrCalendarQuery, out.Code, out.Msg)
	}
	return out.Data.CalendarList, nil
}

// PrimaryCalendar picks the principal's primary calendar from a list,
// preferring type "primary", then an owned calendar, then the first entry.
func PrimaryCalendar(calendars []Calendar) (string, bool) {
	for _, cal := range calendars {
		if cal.Type == "primary" {
			return cal.CalendarID, true
		}
	}
	for _, cal := range calendars {
		if cal.Role == "owner" {
			return cal.CalendarID, true
		}
	}
	if len(calendars) > 0 {
		return calendars[0].CalendarID, true
	}
	return "", false
}

// ListEvents returns non-cancelled events on the calendar within [from, to].
func (c *Client) ListEvents(ctx context.Context, token, calendarID string, from, to time.Time) ([]CalendarEvent, error) {
	var out struct {
		envelope
		Data struct {
			Items []struct {
				EventID   string   `json:"event_id"`
				Summary   string   `json:"summary"`
				Status    string   `json:"status"`
				StartTime timeInfo `json:"start_time"`
			} `json:"items"`
		} `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"start_time": strconv.FormatInt(from.Unix(), 10),
			"end_time":   strconv.FormatInt(to.Unix(), 10),
		}).
		SetResult(&out).
		Get("/open-apis/calendar/v4/calendars/" + calendarID + "/events")
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrCalendarQuery, err)
	}
	if resp.IsError() || !out.ok() {
		return nil, fmt.Errorf("%w: list events code=%d msg=%q", ErrCalendarQuery, out.Code, out.Msg)
	}

	events := make([]CalendarEvent, 0, len(out.Data.Items))
	for _, item := range out.Data.Items {
		if item.Status == "cancelled" {
			continue
		}
		ts, err := strconv.ParseInt(item.StartTime.Timestamp, 10, 64)
		if err != nil {
			continue // all-day events carry a date, not a timestamp
		}
		events = append(events, CalendarEvent{
			EventID: item.EventID,
			Summary: item.Summary,
			Start:   time.Unix(ts, 0),
		})
	}
	return events, nil
}

// CreateEvent creates the event and returns its id.
func (c *Client) CreateEvent(ctx context.Context, token, calendarID string, draft EventDraft) (string, error) {
	body := map[string]interface{}{
		"summary": draft.Summary,
		"start_time": timeInfo{
			Timestamp: strconv.FormatInt(draft.Start.Unix(), 10),
			Timezone:  draft.Timezone,
		},
		"end_time": timeInfo{
			Timestamp: strconv.FormatInt(draft.End.Unix(), 10),
			Timezone:  draft.Timezone,
		},
	}
	if draft.Location != "" {
		body["location"] = map[string]string{"name": draft.Location}
	}

	var out struct {
		envelope
		Data struct {
			Event struct {
				EventID string `json:"event_id"`
			} `json:"event"`
		} `json:"data"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&out).
		Post("/open-apis/calendar/v4/calendars/" + calendarID + "/events")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCalendarCreate, err)
	}
	if resp.IsError() || !out.ok() {
		return "", fmt.Errorf("%w: code=%d msg=%q", ErrCalendarCreate, out.Code, out.Msg)
	}
	if out.Data.Event.EventID == "" {
		return "", fmt.Errorf("%w: empty event_id in response", ErrCalendarCreate)
	}
	return out.Data.Event.EventID, nil
}

// AddAttendee enrolls a user (by open id) on an existing event.
func (c *Client) AddAttendee(ctx context.Context, token, calendarID, eventID, openID string) error {
	var out envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("user_id_type", "open_id").
		SetBody(map[string]interface{}{
			"attendees": []map[string]string{
				{"type": "user", "user_id": openID},
			},
			"need_notification": false,
		}).
		SetResult(&out).
		Post("/open-apis/calendar/v4/calendars/" + calendarID + "/events/" + eventID + "/attendees")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAttendeeEnroll, err)
	}
	if resp.IsError() || !out.ok() {
		return fmt.Errorf("%w: code=%d msg=%q", ErrAttendeeEnroll, out.Code, out.Msg)
	}
	return nil
}
