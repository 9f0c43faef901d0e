package feishu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// newTestClient spins up an httptest server and a client pointed at it.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "cli_app", "secret", 5*time.Second), srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// TestTenantTokenIssuedOnce verifies the client issues the tenant token once
// and serves later calls from cache.
func TestTenantTokenIssuedOnce(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["app_id"] != "cli_app" || body["app_secret"] != "secret" {
			t.Errorf("unexpected credentials: %v", body)
		}
		writeJSON(w, map[string]interface{}{
			"code": 0, "msg": "ok",
			"tenant_access_token": "t-abc", "expire": 7200,
		})
	})
	c, _ := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		tok, err := c.TenantToken(context.Background())
		if err != nil {
			t.Fatalf("tenant token: %v", err)
		}
		if tok != "t-abc" {
			t.Fatalf("token = %q", tok)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", tokenCalls)
	}
}

// TestTenantTokenAPIError verifies a non-zero envelope code surfaces as
// ErrAuth.
func TestTenantTokenAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"code": 10003, "msg": "invalid app_secret"})
	})
	c, _ := newTestClient(t, mux)

	if _, err := c.TenantToken(context.Background()); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

// TestListEvents verifies event parsing: cancelled and all-day entries are
// skipped, the time window goes out as unix seconds.
func TestListEvents(t *testing.T) {
	from := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	startTS := strconv.FormatInt(from.Add(time.Hour).Unix(), 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/calendar/v4/calendars/cal_1/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_time") != strconv.FormatInt(from.Unix(), 10) {
			t.Errorf("start_time = %q", q.Get("start_time"))
		}
		if q.Get("end_time") != strconv.FormatInt(to.Unix(), 10) {
			t.Errorf("end_time = %q", q.Get("end_time"))
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"items": []map[string]interface{}{
					{
						"event_id": "evt_live", "summary": "开会", "status": "confirmed",
						"start_time": map[string]string{"timestamp": startTS},
					},
					{
						"event_id": "evt_gone", "summary": "开会", "status": "cancelled",
						"start_time": map[string]string{"timestamp": startTS},
					},
					{
						"event_id": "evt_allday", "summary": "年假", "status": "confirmed",
						"start_time": map[string]string{"date": "2026-08-31"},
					},
				},
			},
		})
	})
	c, _ := newTestClient(t, mux)

	events, err := c.ListEvents(context.Background(), "tok", "cal_1", from, to)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventID != "evt_live" {
		t.Errorf("event id = %q", events[0].EventID)
	}
	if events[0].Start.Unix() != from.Add(time.Hour).Unix() {
		t.Errorf("start = %v", events[0].Start)
	}
}

// TestCreateEvent verifies the create payload and the returned event id.
func TestCreateEvent(t *testing.T) {
	draft := EventDraft{
		Summary:  "团队周会",
		Start:    time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC),
		Timezone: "Asia/Shanghai",
		Location: "3楼会议室",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/calendar/v4/calendars/cal_1/events", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Summary   string `json:"summary"`
			StartTime struct {
				Timestamp string `json:"timestamp"`
				Timezone  string `json:"timezone"`
			} `json:"start_time"`
			Location struct {
				Name string `json:"name"`
			} `json:"location"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Summary != draft.Summary {
			t.Errorf("summary = %q", body.Summary)
		}
		if body.StartTime.Timestamp != strconv.FormatInt(draft.Start.Unix(), 10) {
			t.Errorf("start timestamp = %q", body.StartTime.Timestamp)
		}
		if body.StartTime.Timezone != "Asia/Shanghai" {
			t.Errorf("timezone = %q", body.StartTime.Timezone)
		}
		if body.Location.Name != "3楼会议室" {
			t.Errorf("location = %q", body.Location.Name)
		}
		writeJSON(w, map[string]interface{}{
			"code": 0,
			"data": map[string]interface{}{
				"event": map[string]string{"event_id": "evt_new"},
			},
		})
	})
	c, _ := newTestClient(t, mux)

	id, err := c.CreateEvent(context.Background(), "tok", "cal_1", draft)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if id != "evt_new" {
		t.Errorf("event id = %q", id)
	}
}

// TestCreateEventAPIError verifies envelope errors map to ErrCalendarCreate.
func TestCreateEventAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"code": 190003, "msg": "no permission"})
	})
	c, _ := newTestClient(t, mux)

	_, err := c.CreateEvent(context.Background(), "tok", "cal_1", EventDraft{Summary: "x"})
	if !errors.Is(err, ErrCalendarCreate) {
		t.Fatalf("expected ErrCalendarCreate, got %v", err)
	}
}

// TestDownloadResource verifies resource download, including the error
// mapping for platform failures.
func TestDownloadResource(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"code": 0, "tenant_access_token": "t-abc", "expire": 7200,
		})
	})
	mux.HandleFunc("/open-apis/im/v1/messages/om_1/resources/img_key", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "image" {
			t.Errorf("type = %q", r.URL.Query().Get("type"))
		}
		w.Write(payload)
	})
	mux.HandleFunc("/open-apis/im/v1/messages/om_1/resources/bad_key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{"code": 234001, "msg": "resource not found"})
	})
	c, _ := newTestClient(t, mux)

	data, err := c.DownloadResource(context.Background(), "om_1", "img_key", "image")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("payload mismatch: %v", data)
	}

	if _, err := c.DownloadResource(context.Background(), "om_1", "bad_key", "image"); !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}
