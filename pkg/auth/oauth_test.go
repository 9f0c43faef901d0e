package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// TestOAuthConfigured verifies the flow is gated on the redirect URI.
func TestOAuthConfigured(t *testing.T) {
	o := NewOAuth("cli_app", "secret", "https://auth", "https://token", "", "calendar:calendar")
	if o.Configured() {
		t.Error("flow without redirect URI should report unconfigured")
	}
	o = NewOAuth("cli_app", "secret", "https://auth", "https://token", "https://bot/oauth/callback", "calendar:calendar")
	if !o.Configured() {
		t.Error("flow with redirect URI should report configured")
	}
}

// TestAuthorizeURL verifies the authorize URL carries identity, redirect,
// scope, and state.
func TestAuthorizeURL(t *testing.T) {
	o := NewOAuth("cli_app", "secret",
		"https://open.feishu.cn/open-apis/authen/v1/authorize",
		"https://open.feishu.cn/open-apis/authen/v2/oauth/token",
		"https://bot/oauth/callback", "calendar:calendar")

	u, err := url.Parse(o.AuthorizeURL("ou_user"))
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cli_app" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://bot/oauth/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != "ou_user" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("scope") != "calendar:calendar" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

// TestExchange verifies code redemption and the expiry safety margin.
func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("code") != "authcode" {
			t.Errorf("code = %q", r.Form.Get("code"))
		}
		if r.Form.Get("client_id") != "cli_app" {
			t.Errorf("client_id = %q", r.Form.Get("client_id"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "u-abc",
			"refresh_token": "r-def",
			"token_type":    "Bearer",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	o := NewOAuth("cli_app", "secret", srv.URL+"/authorize", srv.URL+"/token",
		"https://bot/oauth/callback", "calendar:calendar")

	before := time.Now()
	tok, err := o.Exchange(context.Background(), "authcode")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok.AccessToken != "u-abc" || tok.RefreshToken != "r-def" {
		t.Errorf("token = %+v", tok)
	}
	// Margin applied: expiry lands noticeably before the nominal 2 hours.
	latest := before.Add(2*time.Hour - tokenSafetyMargin + 5*time.Second)
	if tok.ExpireAt.After(latest) {
		t.Errorf("expire at %v lacks the safety margin", tok.ExpireAt)
	}
	if tok.ExpireAt.Before(before.Add(time.Hour)) {
		t.Errorf("expire at %v is implausibly early", tok.ExpireAt)
	}
}
