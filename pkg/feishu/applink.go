package feishu

import (
	"net/url"
	"strconv"
	"time"
)

const applinkBase = "https://applink.feishu.cn/client/calendar/event"

// CreateEventLink builds the applink that opens the client's event-create
// form pre-filled with the given fields. Used by the manual fallback card.
func CreateEventLink(title string, start, end time.Time, location string) string {
	q := url.Values{}
	q.Set("start_time", strconv.FormatInt(start.Unix(), 10))
	q.Set("end_time", strconv.FormatInt(end.Unix(), 10))
	q.Set("summary", title)
	if location != "" {
		q.Set("location", location)
	}
	return applinkBase + "/create?" + q.Encode()
}

// EventDetailLink builds the applink that opens an existing event's detail
// view. Used by the success card's "view details" button.
func EventDetailLink(calendarID, eventID string) string {
	q := url.Values{}
	q.Set("calendarId", calendarID)
	q.Set("key", eventID)
	q.Set("originalTime", "0")
	return applinkBase + "/detail?" + q.Encode()
}
