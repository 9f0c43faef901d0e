// Package pipeline is the idempotent ingestion-and-side-effect core: admit
// each inbound message once, extract a schedule draft, suppress duplicate
// calendar events, create the event, and report the outcome to the sender.
package pipeline

import (
	"context"
	"time"

	"github.com/skylarkbot/skylark/pkg/feishu"
)

// Admitter decides whether a message id is seen for the first time.
type Admitter interface {
	Admit(messageID string) bool
}

// ResourceFetcher downloads a file attached to a message.
type ResourceFetcher interface {
	DownloadResource(ctx context.Context, messageID, fileKey, fileType string) ([]byte, error)
}

// TokenSource provides the shared tenant credential.
type TokenSource interface {
	TenantToken(ctx context.Context) (string, error)
}

// UserTokenSource provides per-user credentials when the sender authorized
// calendar access. Implementations report ok=false for missing or expired
// tokens.
type UserTokenSource interface {
	Get(userID string) (string, bool)
}

// CalendarAPI is the calendar back-end surface the pipeline consumes.
type CalendarAPI interface {
	ListCalendars(ctx context.Context, token string) ([]feishu.Calendar, error)
	ListEvents(ctx context.Context, token, calendarID string, from, to time.Time) ([]feishu.CalendarEvent, error)
	CreateEvent(ctx context.Context, token, calendarID string, draft feishu.EventDraft) (string, error)
	AddAttendee(ctx context.Context, token, calendarID, eventID, openID string) error
}
