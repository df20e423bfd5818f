package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/engine"
	"github.com/chatscout/chatscout/internal/errs"
	"github.com/chatscout/chatscout/internal/thread"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ChannelInfo represents a channel in list responses.
type ChannelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	NumMembers int    `json:"num_members"`
}

// AuthResponse represents the identity behind the configured token.
type AuthResponse struct {
	UserID string `json:"user_id"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	Team   string `json:"team"`
}

// BatchReactionsRequest is the body for POST /api/v1/reactions.
type BatchReactionsRequest struct {
	Messages  []engine.ReactionRequest `json:"messages"`
	BatchSize int                      `json:"batch_size,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// statusFor maps an engine error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	if errors.Is(err, thread.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	switch errs.KindOf(err) {
	case errs.Auth:
		return http.StatusUnauthorized, "platform_auth"
	case errs.Network:
		return http.StatusBadGateway, "platform_unreachable"
	case errs.API, errs.Parse:
		return http.StatusBadGateway, "platform_error"
	case errs.Config:
		return http.StatusInternalServerError, "config_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleSearch runs a search across the workspace.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative number")
			return
		}
		limit = n
	}

	req := chat.SearchRequest{
		Query:        q.Get("q"),
		Channel:      q.Get("channel"),
		User:         q.Get("user"),
		FromDate:     q.Get("after"),
		ToDate:       q.Get("before"),
		Limit:        limit,
		IsRealtime:   q.Get("realtime") == "true",
		ForceRefresh: q.Get("force_refresh") == "true",
	}

	result, err := s.engine.SearchMessages(r.Context(), req)
	if err != nil {
		s.logger.Error("search failed", "query", req.Query, "error", err)
		status, code := statusFor(err)
		writeError(w, status, code, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetThread reconstructs a thread by channel and root timestamp.
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	ts := chi.URLParam(r, "ts")
	if channel == "" || ts == "" {
		writeError(w, http.StatusBadRequest, "invalid_thread", "Channel and timestamp are required")
		return
	}

	thread, err := s.engine.GetThread(r.Context(), channel, ts)
	if err != nil {
		s.logger.Error("thread fetch failed", "channel", channel, "ts", ts, "error", err)
		status, code := statusFor(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

// handleListChannels returns all visible channels.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.engine.ListChannels(r.Context())
	if err != nil {
		s.logger.Error("channel listing failed", "error", err)
		status, code := statusFor(err)
		writeError(w, status, code, "Failed to list channels")
		return
	}

	infos := make([]ChannelInfo, len(channels))
	for i, c := range channels {
		infos[i] = ChannelInfo{
			ID:         c.ID,
			Name:       c.Name,
			IsPrivate:  c.IsPrivate,
			IsArchived: c.IsArchived,
			NumMembers: c.NumMembers,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(infos),
		"channels": infos,
	})
}

// handleAuth reports the identity behind the configured token.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	identity, err := s.engine.TestAuth(r.Context())
	if err != nil {
		s.logger.Error("auth check failed", "error", err)
		status, code := statusFor(err)
		writeError(w, status, code, "Authentication check failed")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		UserID: identity.UserID,
		User:   identity.User,
		TeamID: identity.TeamID,
		Team:   identity.Team,
	})
}

// handleBatchReactions resolves reactions for a batch of messages.
func (s *Server) handleBatchReactions(w http.ResponseWriter, r *http.Request) {
	var req BatchReactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing_messages", "At least one message is required")
		return
	}

	batch := s.engine.BatchFetchReactions(r.Context(), req.Messages, req.BatchSize)
	writeJSON(w, http.StatusOK, batch)
}

// handleClearCache drops every cached entry.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearCaches()
	s.logger.Info("caches cleared via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
