package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/config"
	"github.com/chatscout/chatscout/internal/engine"
	"github.com/chatscout/chatscout/internal/errs"
	"github.com/chatscout/chatscout/internal/slack"
)

// testLogger returns a logger for tests that discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockEngine implements SearchEngine for tests.
type mockEngine struct {
	searchFn   func(req chat.SearchRequest) (*chat.SearchResult, error)
	threadFn   func(channelID, rootTS string) (*chat.ThreadMessages, error)
	channels   []slack.Channel
	channelErr error
	identity   *slack.AuthIdentity
	batch      *engine.ReactionBatch
	cleared    bool

	lastSearch chat.SearchRequest
}

func (m *mockEngine) SearchMessages(_ context.Context, req chat.SearchRequest) (*chat.SearchResult, error) {
	m.lastSearch = req
	if m.searchFn != nil {
		return m.searchFn(req)
	}
	return &chat.SearchResult{Query: req.Query}, nil
}

func (m *mockEngine) GetThread(_ context.Context, channelID, rootTS string) (*chat.ThreadMessages, error) {
	if m.threadFn != nil {
		return m.threadFn(channelID, rootTS)
	}
	return &chat.ThreadMessages{}, nil
}

func (m *mockEngine) ListChannels(context.Context) ([]slack.Channel, error) {
	return m.channels, m.channelErr
}

func (m *mockEngine) TestAuth(context.Context) (*slack.AuthIdentity, error) {
	if m.identity == nil {
		return nil, errs.New(errs.Auth, "invalid_auth")
	}
	return m.identity, nil
}

func (m *mockEngine) BatchFetchReactions(context.Context, []engine.ReactionRequest, int) *engine.ReactionBatch {
	if m.batch == nil {
		return &engine.ReactionBatch{}
	}
	return m.batch
}

func (m *mockEngine) ClearCaches() {
	m.cleared = true
}

func newTestServer(eng SearchEngine, apiKey string) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{APIPort: 8080, APIKey: apiKey},
	}
	return NewServer(cfg, eng, testLogger())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&mockEngine{}, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("health status = %q, want 'ok'", resp["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(&mockEngine{}, "secret-key")

	tests := []struct {
		name       string
		authHeader string
		apiKey     string
		wantStatus int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong bearer", "Bearer wrong", "", http.StatusUnauthorized},
		{"valid bearer", "Bearer secret-key", "", http.StatusOK},
		{"valid x-api-key", "", "secret-key", http.StatusOK},
		{"wrong x-api-key", "", "nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/channels", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			w := httptest.NewRecorder()

			srv.Router().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthSkippedWhenNoKeyConfigured(t *testing.T) {
	srv := newTestServer(&mockEngine{}, "")

	req := httptest.NewRequest("GET", "/api/v1/channels", nil)
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d with no api_key configured", w.Code, http.StatusOK)
	}
}

func TestValidateSecure(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ServerConfig
		wantErr bool
	}{
		{"loopback without key", config.ServerConfig{BindAddr: "127.0.0.1"}, false},
		{"empty bind without key", config.ServerConfig{}, false},
		{"public without key", config.ServerConfig{BindAddr: "0.0.0.0"}, true},
		{"public with key", config.ServerConfig{BindAddr: "0.0.0.0", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateSecure()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecure() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
