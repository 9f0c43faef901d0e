// Package api is the bot's small HTTP surface: health checks and the OAuth
// callback that turns an authorization code into a stored user token.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/skylarkbot/skylark/pkg/auth"
	"github.com/skylarkbot/skylark/pkg/logger"
)

// Server hosts /healthz and the OAuth endpoints.
type Server struct {
	addr      string
	oauth     *auth.OAuth
	tokens    *auth.TokenStore
	server    *http.Server
	startTime time.Time
}

func NewServer(addr string, oauth *auth.OAuth, tokens *auth.TokenStore) *Server {
	return &Server{
		addr:      addr,
		oauth:     oauth,
		tokens:    tokens,
		startTime: time.Now(),
	}
}

// Start listens until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/oauth/authorize", s.handleAuthorize)
	mux.HandleFunc("/oauth/callback", s.handleCallback)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	logger.InfoCF("api", "HTTP server starting", map[string]interface{}{"addr": s.addr})
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// handleAuthorize redirects the user into the consent flow. The user id
// travels through the state parameter and comes back on the callback.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || !s.oauth.Configured() {
		http.Error(w, "oauth not configured", http.StatusNotFound)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, s.oauth.AuthorizeURL(userID), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil || !s.oauth.Configured() {
		http.Error(w, "oauth not configured", http.StatusNotFound)
		return
	}
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("state")
	if code == "" || userID == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}

	tok, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		logger.ErrorCF("api", "OAuth exchange failed", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "exchange failed", http.StatusBadGateway)
		return
	}
	if err := s.tokens.Put(userID, tok); err != nil {
		logger.ErrorCF("api", "Token store write failed", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "store failed", http.StatusInternalServerError)
		return
	}

	logger.InfoCF("api", "User authorized calendar access", map[string]interface{}{
		"user_id": userID,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("授权成功，现在可以把日程创建到你自己的日历了。"))
}
