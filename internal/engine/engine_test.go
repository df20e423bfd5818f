package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatscout/chatscout/internal/cache"
	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/config"
)

// newTestEngine builds an engine against a stub platform server.
func newTestEngine(t *testing.T, handler http.Handler) *Engine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Slack: config.SlackConfig{
			Token:         "xoxp-test",
			BaseURL:       srv.URL,
			TimeoutSecs:   5,
			MaxConcurrent: 3,
			PageSize:      100,
			PageDelayMs:   0,
			DefaultLimit:  100,
		},
		Cache: config.CacheConfig{
			DirectoryTTLHours: 24,
			SearchTTLMinutes:  5,
			SearchCapacity:    50,
		},
	}
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestBatchFetchReactionsAccounting(t *testing.T) {
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reactions.get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		ts := r.URL.Query().Get("timestamp")
		w.Header().Set("Content-Type", "application/json")
		if ts == "200.000000" {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "message_not_found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"message": map[string]any{
				"reactions": []map[string]any{{"name": "rocket", "count": 2, "users": []string{"U1", "U2"}}},
			},
		})
	}))

	// Seed the memo so one request is a cache hit.
	e.cache.PutSearch(1, &chat.SearchResult{Messages: []chat.Message{
		{Channel: "C1", TS: "100.000000", Reactions: []chat.Reaction{{Name: "eyes", Count: 1}}},
	}})

	batch := e.BatchFetchReactions(context.Background(), []ReactionRequest{
		{Channel: "C1", TS: "100.000000"}, // memo-resident
		{Channel: "C1", TS: "150.000000"}, // fetched
		{Channel: "C1", TS: "200.000000"}, // remote failure, absorbed
	}, 2)

	if batch.CacheHits != 1 || batch.Fetched != 1 || batch.Failed != 1 {
		t.Errorf("accounting = hits %d fetched %d failed %d, want 1/1/1",
			batch.CacheHits, batch.Fetched, batch.Failed)
	}

	if !batch.Results[0].FromCache || batch.Results[0].Reactions[0].Name != "eyes" {
		t.Errorf("result 0 = %+v, want cache-resident eyes", batch.Results[0])
	}
	if batch.Results[1].FromCache || len(batch.Results[1].Reactions) != 1 {
		t.Errorf("result 1 = %+v, want fetched rocket", batch.Results[1])
	}
	if !batch.Results[2].Failed || batch.Results[2].Reactions != nil {
		t.Errorf("result 2 = %+v, want failed with no reactions", batch.Results[2])
	}
}

func TestClearCaches(t *testing.T) {
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))

	e.cache.PutUser("U1", "alice")
	e.cache.PutSearch(cache.SearchKey(chat.SearchRequest{Query: "x"}), &chat.SearchResult{})

	e.ClearCaches()

	if _, ok := e.CachedUserName("U1"); ok {
		t.Error("user cache survived ClearCaches")
	}
	if n := e.cache.SearchLen(); n != 0 {
		t.Errorf("search memo len = %d after clear, want 0", n)
	}
}

func TestSearchMessagesFastDefersReactions(t *testing.T) {
	var reactionCalls int
	e := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.history":
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"messages": []map[string]any{
					{"ts": "100.000000", "user": "U1", "text": "hello"},
				},
			})
		case "/reactions.get":
			reactionCalls++
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			// Name/channel lookups may fail; the orchestrator degrades.
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "not_found"})
		}
	}))

	res, err := e.SearchMessagesFast(context.Background(), chat.SearchRequest{
		Channel:    "general",
		IsRealtime: true, // must be overridden to deferred
	})
	if err != nil {
		t.Fatalf("SearchMessagesFast() error = %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	if reactionCalls != 0 {
		t.Errorf("reaction calls = %d, want 0 in fast mode", reactionCalls)
	}
}
