package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/skylarkbot/skylark/pkg/feishu"
	"github.com/skylarkbot/skylark/pkg/schedule"
)

func testEvent() *schedule.Resolved {
	return &schedule.Resolved{
		Title:    "团队周会",
		Start:    time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC),
		Location: "3楼会议室",
	}
}

func newTestCreator(cal *fakeCalendar, userTokens UserTokenSource, defaultCalendarID string) *Creator {
	return NewCreator(cal, NewDetector(cal, 0), &fakeTokens{token: "tenant-tok"},
		userTokens, defaultCalendarID, "Asia/Shanghai")
}

// TestCreateSuccess verifies the happy path: primary calendar, event
// created, sender enrolled as attendee.
func TestCreateSuccess(t *testing.T) {
	cal := &fakeCalendar{
		calendars: []feishu.Calendar{{CalendarID: "cal_prim", Type: "primary"}},
		createID:  "evt_new",
	}
	c := newTestCreator(cal, nil, "")

	out := c.Create(context.Background(), "ou_sender", testEvent())

	if out.Kind != OutcomeCreated {
		t.Fatalf("kind = %v, reason = %q", out.Kind, out.Reason)
	}
	if out.CalendarID != "cal_prim" || out.EventID != "evt_new" {
		t.Errorf("outcome = %+v", out)
	}
	if cal.createCalls != 1 {
		t.Errorf("create calls = %d", cal.createCalls)
	}
	if cal.lastDraft.Summary != "团队周会" || cal.lastDraft.Timezone != "Asia/Shanghai" {
		t.Errorf("draft = %+v", cal.lastDraft)
	}
	if cal.attendeeCalls != 1 || cal.lastAttendee != "ou_sender" {
		t.Errorf("attendee calls = %d, attendee = %q", cal.attendeeCalls, cal.lastAttendee)
	}
}

// TestCreateWithUserToken verifies attendee enrollment is skipped when the
// sender's own token created the event.
func TestCreateWithUserToken(t *testing.T) {
	cal := &fakeCalendar{
		calendars: []feishu.Calendar{{CalendarID: "cal_user", Type: "primary"}},
		createID:  "evt_new",
	}
	c := newTestCreator(cal, fakeUserTokens{"ou_sender": "user-tok"}, "")

	out := c.Create(context.Background(), "ou_sender", testEvent())

	if out.Kind != OutcomeCreated {
		t.Fatalf("kind = %v, reason = %q", out.Kind, out.Reason)
	}
	if cal.attendeeCalls != 0 {
		t.Errorf("attendee should not be enrolled on the user's own calendar, calls = %d", cal.attendeeCalls)
	}
}

// TestCreateDuplicateSuppressed verifies an existing matching event blocks
// creation.
func TestCreateDuplicateSuppressed(t *testing.T) {
	ev := testEvent()
	cal := &fakeCalendar{
		calendars: []feishu.Calendar{{CalendarID: "cal_prim", Type: "primary"}},
		events:    []feishu.CalendarEvent{{EventID: "evt_old", Summary: ev.Title, Start: ev.Start}},
	}
	c := newTestCreator(cal, nil, "")

	out := c.Create(context.Background(), "ou_sender", ev)

	if out.Kind != OutcomeDuplicate {
		t.Fatalf("kind = %v", out.Kind)
	}
	if out.EventID != "evt_old" {
		t.Errorf("event id = %q", out.EventID)
	}
	if cal.createCalls != 0 {
		t.Errorf("create must not run on duplicate, calls = %d", cal.createCalls)
	}
}

// TestCreateDuplicateCheckFailsClosed verifies a failed duplicate query
// aborts creation instead of risking a double booking.
func TestCreateDuplicateCheckFailsClosed(t *testing.T) {
	cal := &fakeCalendar{
		calendars: []feishu.Calendar{{CalendarID: "cal_prim", Type: "primary"}},
		listEvErr: errBackend,
	}
	c := newTestCreator(cal, nil, "")

	out := c.Create(context.Background(), "ou_sender", testEvent())

	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %v", out.Kind)
	}
	if !strings.Contains(out.Reason, "duplicate check failed") {
		t.Errorf("reason = %q", out.Reason)
	}
	if cal.createCalls != 0 {
		t.Errorf("create must not run after a failed check, calls = %d", cal.createCalls)
	}
}

// TestCreateBackendFailure verifies creation errors collapse into
// OutcomeFailed.
func TestCreateBackendFailure(t *testing.T) {
	cal := &fakeCalendar{
		calendars: []feishu.Calendar{{CalendarID: "cal_prim", Type: "primary"}},
		createErr: errBackend,
	}
	c := newTestCreator(cal, nil, "")

	out := c.Create(context.Background(), "ou_sender", testEvent())
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %v", out.Kind)
	}
	if out.Reason == "" {
		t.Error("expected a failure reason")
	}
}

// TestCreateAttendeeFailureIsBestEffort verifies a failed enrollment does
// not downgrade the outcome.
func TestCreateAttendeeFailureIsBestEffort(t *testing.T) {
	cal := &fakeCalendar{
		calendars:   []feishu.Calendar{{CalendarID: "cal_prim", Type: "primary"}},
		createID:    "evt_new",
		attendeeErr: errBackend,
	}
	c := newTestCreator(cal, nil, "")

	out := c.Create(context.Background(), "ou_sender", testEvent())
	if out.Kind != OutcomeCreated {
		t.Fatalf("kind = %v, reason = %q", out.Kind, out.Reason)
	}
}

// TestCreateCalendarFallback verifies the configured default calendar is
// used when the list call fails, and that an empty default fails the run.
func TestCreateCalendarFallback(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		cal := &fakeCalendar{listCalErr: errBackend, createID: "evt_new"}
		c := newTestCreator(cal, nil, "cal_default")

		out := c.Create(context.Background(), "ou_sender", testEvent())
		if out.Kind != OutcomeCreated {
			t.Fatalf("kind = %v, reason = %q", out.Kind, out.Reason)
		}
		if out.CalendarID != "cal_default" {
			t.Errorf("calendar id = %q", out.CalendarID)
		}
	})

	t.Run("no default fails", func(t *testing.T) {
		cal := &fakeCalendar{listCalErr: errBackend}
		c := newTestCreator(cal, nil, "")

		out := c.Create(context.Background(), "ou_sender", testEvent())
		if out.Kind != OutcomeFailed {
			t.Fatalf("kind = %v", out.Kind)
		}
		if out.Reason != "no target calendar" {
			t.Errorf("reason = %q", out.Reason)
		}
	})
}

// TestCreateTokenUnavailable verifies a missing tenant token fails the run
// before any calendar call.
func TestCreateTokenUnavailable(t *testing.T) {
	cal := &fakeCalendar{}
	c := NewCreator(cal, NewDetector(cal, 0), &fakeTokens{err: errBackend}, nil, "cal_default", "Asia/Shanghai")

	out := c.Create(context.Background(), "ou_sender", testEvent())
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %v", out.Kind)
	}
	if out.Reason != "credential unavailable" {
		t.Errorf("reason = %q", out.Reason)
	}
	if cal.createCalls != 0 {
		t.Errorf("create calls = %d", cal.createCalls)
	}
}
