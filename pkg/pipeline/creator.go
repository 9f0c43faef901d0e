package pipeline

import (
	"context"

	"github.com/skylarkbot/skylark/pkg/feishu"
	"github.com/skylarkbot/skylark/pkg/logger"
	"github.com/skylarkbot/skylark/pkg/schedule"
)

// Creator turns a resolved event into at most one calendar event: resolve
// the target calendar, check for duplicates, create, then best-effort enroll
// the sender as attendee.
type Creator struct {
	calendar   CalendarAPI
	detector   *Detector
	tokens     TokenSource
	userTokens UserTokenSource // nil when the OAuth flow is not configured

	// defaultCalendarID is the shared calendar used when primary calendar
	// resolution fails. Degraded mode: the event still gets created, just
	// not on the sender's own calendar.
	defaultCalendarID string
	timezone          string
}

// NewCreator wires the creator. userTokens may be nil.
func NewCreator(calendar CalendarAPI, detector *Detector, tokens TokenSource, userTokens UserTokenSource, defaultCalendarID, timezone string) *Creator {
	return &Creator{
		calendar:          calendar,
		detector:          detector,
		tokens:            tokens,
		userTokens:        userTokens,
		defaultCalendarID: defaultCalendarID,
		timezone:          timezone,
	}
}

// Create runs the creation algorithm for senderID. It never returns an
// error: every failure mode collapses into OutcomeFailed so the dispatcher
// has exactly one reporting path.
func (c *Creator) Create(ctx context.Context, senderID string, ev *schedule.Resolved) CreationOutcome {
	token, usingUserToken := c.resolveToken(ctx, senderID)
	if token == "" {
		return CreationOutcome{Kind: OutcomeFailed, Reason: "credential unavailable"}
	}

	calendarID := c.resolveCalendar(ctx, token)
	if calendarID == "" {
		return CreationOutcome{Kind: OutcomeFailed, Reason: "no target calendar"}
	}

	// Duplicate check runs before creation. A failed check fails the whole
	// attempt: creating blind could double-book, and the fallback card
	// still lets the user finish manually.
	if eventID, dup, err := c.detector.FindDuplicate(ctx, token, calendarID, ev.Title, ev.Start); err != nil {
		logger.ErrorCF("creator", "Duplicate check failed", map[string]interface{}{
			"calendar_id": calendarID,
			"error":       err.Error(),
		})
		return CreationOutcome{Kind: OutcomeFailed, Reason: "duplicate check failed: " + err.Error()}
	} else if dup {
		return CreationOutcome{Kind: OutcomeDuplicate, EventID: eventID}
	}

	eventID, err := c.calendar.CreateEvent(ctx, token, calendarID, feishu.EventDraft{
		Summary:  ev.Title,
		Start:    ev.Start,
		End:      ev.End,
		Timezone: c.timezone,
		Location: ev.Location,
	})
	if err != nil {
		logger.ErrorCF("creator", "Event creation failed", map[string]interface{}{
			"calendar_id": calendarID,
			"error":       err.Error(),
		})
		return CreationOutcome{Kind: OutcomeFailed, Reason: err.Error()}
	}

	// Attendee enrollment is best-effort: the event exists either way, and
	// when the sender's own token created it the event is already theirs.
	if senderID != "" && !usingUserToken {
		if err := c.calendar.AddAttendee(ctx, token, calendarID, eventID, senderID); err != nil {
			logger.WarnCF("creator", "Attendee enroll failed", map[string]interface{}{
				"event_id": eventID,
				"error":    err.Error(),
			})
		}
	}

	return CreationOutcome{Kind: OutcomeCreated, CalendarID: calendarID, EventID: eventID}
}

// resolveToken prefers the sender's user token, falling back to the shared
// tenant token.
func (c *Creator) resolveToken(ctx context.Context, senderID string) (token string, userToken bool) {
	if c.userTokens != nil && senderID != "" {
		if tok, ok := c.userTokens.Get(senderID); ok {
			return tok, true
		}
	}
	tok, err := c.tokens.TenantToken(ctx)
	if err != nil {
		logger.ErrorCF("creator", "Tenant token unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	return tok, false
}

// resolveCalendar looks up the primary calendar for the token's principal,
// failing over to the configured default calendar.
func (c *Creator) resolveCalendar(ctx context.Context, token string) string {
	calendars, err := c.calendar.ListCalendars(ctx, token)
	if err == nil {
		if id, ok := feishu.PrimaryCalendar(calendars); ok {
			return id
		}
	} else {
		logger.WarnCF("creator", "Calendar resolution failed, using default", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return c.defaultCalendarID
}
