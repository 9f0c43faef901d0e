package pipeline

// Shared in-memory fakes for the pipeline tests.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skylarkbot/skylark/pkg/bus"
	"github.com/skylarkbot/skylark/pkg/extract"
	"github.com/skylarkbot/skylark/pkg/feishu"
)

type fakeCalendar struct {
	mu sync.Mutex

	calendars   []feishu.Calendar
	listCalErr  error
	events      []feishu.CalendarEvent
	listEvErr   error
	listEvFrom  time.Time
	listEvTo    time.Time
	createID    string
	createErr   error
	createCalls int
	lastDraft   feishu.EventDraft

	attendeeErr   error
	attendeeCalls int
	lastAttendee  string
}

var _ CalendarAPI = (*fakeCalendar)(nil)

func (f *fakeCalendar) ListCalendars(ctx context.Context, token string) ([]feishu.Calendar, error) {
	return f.calendars, f.listCalErr
}

func (f *fakeCalendar) ListEvents(ctx context.Context, token, calendarID string, from, to time.Time) ([]feishu.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listEvFrom, f.listEvTo = from, to
	return f.events, f.listEvErr
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, token, calendarID string, draft feishu.EventDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastDraft = draft
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeCalendar) AddAttendee(ctx context.Context, token, calendarID, eventID, openID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendeeCalls++
	f.lastAttendee = openID
	return f.attendeeErr
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) TenantToken(ctx context.Context) (string, error) {
	return f.token, f.err
}

type fakeUserTokens map[string]string

func (f fakeUserTokens) Get(userID string) (string, bool) {
	tok, ok := f[userID]
	return tok, ok
}

// memAdmitter admits each id once, like the sqlite store but in memory.
type memAdmitter struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemAdmitter() *memAdmitter {
	return &memAdmitter{seen: make(map[string]bool)}
}

func (m *memAdmitter) Admit(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[messageID] {
		return false
	}
	m.seen[messageID] = true
	return true
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) DownloadResource(ctx context.Context, messageID, fileKey, fileType string) ([]byte, error) {
	return f.data, f.err
}

type fakeExtractor struct {
	draft    *extract.ScheduleDraft
	err      error
	lastText string
}

func (f *fakeExtractor) ExtractSchedule(ctx context.Context, text string) (*extract.ScheduleDraft, error) {
	f.lastText = text
	return f.draft, f.err
}

type fakeVision struct {
	draft   *extract.ScheduleDraft
	err     error
	ocrText string
	ocrErr  error
}

func (f *fakeVision) ExtractScheduleFromImage(ctx context.Context, image []byte) (*extract.ScheduleDraft, error) {
	return f.draft, f.err
}

func (f *fakeVision) OCRImage(ctx context.Context, image []byte) (string, error) {
	return f.ocrText, f.ocrErr
}

type fakeSpeech struct {
	text string
	err  error
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

// receiveOutbound pops one outbound message or fails the test.
func receiveOutbound(t *testing.T, b *bus.MessageBus) bus.OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := b.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("expected an outbound message")
	}
	return msg
}

// expectNoOutbound asserts the bus stays quiet.
func expectNoOutbound(t *testing.T, b *bus.MessageBus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if msg, ok := b.SubscribeOutbound(ctx); ok {
		t.Fatalf("unexpected outbound message: %+v", msg)
	}
}

var errBackend = errors.New("backend unavailable")
