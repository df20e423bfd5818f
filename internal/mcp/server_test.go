package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/engine"
	"github.com/chatscout/chatscout/internal/errs"
	"github.com/chatscout/chatscout/internal/slack"
	"github.com/chatscout/chatscout/internal/thread"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

// fakeEngine implements Engine for handler tests.
type fakeEngine struct {
	lastSearch chat.SearchRequest
	searchErr  error
	threadErr  error
	channels   []slack.Channel
	identity   *slack.AuthIdentity
	batchSize  int
}

func (f *fakeEngine) SearchMessages(_ context.Context, req chat.SearchRequest) (*chat.SearchResult, error) {
	f.lastSearch = req
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &chat.SearchResult{
		Messages: []chat.Message{{TS: "100.000000", Text: "hit", Channel: "C1"}},
		Total:    1,
	}, nil
}

func (f *fakeEngine) GetThread(_ context.Context, channelID, rootTS string) (*chat.ThreadMessages, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	return &chat.ThreadMessages{
		Parent:  chat.Message{TS: rootTS, Channel: channelID, Text: "root"},
		Replies: []chat.Message{{TS: "101.000000", Text: "reply"}},
	}, nil
}

func (f *fakeEngine) ListChannels(context.Context) ([]slack.Channel, error) {
	return f.channels, nil
}

func (f *fakeEngine) TestAuth(context.Context) (*slack.AuthIdentity, error) {
	if f.identity == nil {
		return nil, errs.New(errs.Auth, "invalid_auth")
	}
	return f.identity, nil
}

func (f *fakeEngine) BatchFetchReactions(_ context.Context, requests []engine.ReactionRequest, batchSize int) *engine.ReactionBatch {
	f.batchSize = batchSize
	results := make([]engine.ReactionResult, len(requests))
	for i, r := range requests {
		results[i] = engine.ReactionResult{Channel: r.Channel, TS: r.TS}
	}
	return &engine.ReactionBatch{Results: results, Fetched: len(results)}
}

func TestSearchMessagesTool(t *testing.T) {
	eng := &fakeEngine{}
	h := &handlers{engine: eng}

	t.Run("maps arguments", func(t *testing.T) {
		result := runTool[chat.SearchResult](t, ToolSearchMessages, h.searchMessages, map[string]any{
			"query":             "deploy",
			"channel":           "general",
			"user":              "U1",
			"after":             "2024-01-01",
			"before":            "2024-02-01",
			"limit":             float64(25),
			"include_reactions": true,
			"force_refresh":     true,
		})
		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}

		want := chat.SearchRequest{
			Query: "deploy", Channel: "general", User: "U1",
			FromDate: "2024-01-01", ToDate: "2024-02-01",
			Limit: 25, IsRealtime: true, ForceRefresh: true,
		}
		if eng.lastSearch != want {
			t.Errorf("request = %+v, want %+v", eng.lastSearch, want)
		}
	})

	t.Run("channel-only history browse", func(t *testing.T) {
		runTool[chat.SearchResult](t, ToolSearchMessages, h.searchMessages, map[string]any{
			"channel": "general",
		})
		if eng.lastSearch.Query != "" || eng.lastSearch.Channel != "general" {
			t.Errorf("request = %+v", eng.lastSearch)
		}
	})

	t.Run("no filters rejected", func(t *testing.T) {
		runToolExpectError(t, ToolSearchMessages, h.searchMessages, map[string]any{})
	})

	t.Run("engine error surfaces", func(t *testing.T) {
		failed := &handlers{engine: &fakeEngine{searchErr: errs.New(errs.Network, "timeout")}}
		r := runToolExpectError(t, ToolSearchMessages, failed.searchMessages, map[string]any{"query": "x"})
		if !strings.Contains(resultText(t, r), "search failed") {
			t.Errorf("error text = %q", resultText(t, r))
		}
	})
}

func TestGetThreadTool(t *testing.T) {
	h := &handlers{engine: &fakeEngine{}}

	t.Run("happy path", func(t *testing.T) {
		thread := runTool[chat.ThreadMessages](t, ToolGetThread, h.getThread, map[string]any{
			"channel": "C1", "ts": "100.000000",
		})
		if thread.Parent.Text != "root" || len(thread.Replies) != 1 {
			t.Errorf("thread = %+v", thread)
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		runToolExpectError(t, ToolGetThread, h.getThread, map[string]any{"channel": "C1"})
		runToolExpectError(t, ToolGetThread, h.getThread, map[string]any{"ts": "100.000000"})
	})

	t.Run("not found surfaces", func(t *testing.T) {
		failed := &handlers{engine: &fakeEngine{threadErr: thread.ErrNotFound}}
		r := runToolExpectError(t, ToolGetThread, failed.getThread, map[string]any{
			"channel": "C1", "ts": "999.000000",
		})
		if !strings.Contains(resultText(t, r), "Thread not found") {
			t.Errorf("error text = %q", resultText(t, r))
		}
	})
}

func TestListChannelsTool(t *testing.T) {
	h := &handlers{engine: &fakeEngine{channels: []slack.Channel{
		{ID: "C1", Name: "general"},
		{ID: "C2", Name: "random"},
	}}}

	channels := runTool[[]slack.Channel](t, ToolListChannels, h.listChannels, map[string]any{})
	if len(channels) != 2 || channels[0].Name != "general" {
		t.Errorf("channels = %+v", channels)
	}
}

func TestGetReactionsTool(t *testing.T) {
	eng := &fakeEngine{}
	h := &handlers{engine: eng}

	t.Run("batch of two", func(t *testing.T) {
		batch := runTool[engine.ReactionBatch](t, ToolGetReactions, h.getReactions, map[string]any{
			"messages": []any{
				map[string]any{"channel": "C1", "ts": "1.0"},
				map[string]any{"channel": "C2", "ts": "2.0"},
			},
		})
		if len(batch.Results) != 2 || batch.Fetched != 2 {
			t.Errorf("batch = %+v", batch)
		}
	})

	t.Run("missing messages", func(t *testing.T) {
		runToolExpectError(t, ToolGetReactions, h.getReactions, map[string]any{})
	})

	t.Run("malformed entry", func(t *testing.T) {
		runToolExpectError(t, ToolGetReactions, h.getReactions, map[string]any{
			"messages": []any{map[string]any{"channel": "C1"}},
		})
	})
}

func TestCheckAuthTool(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		h := &handlers{engine: &fakeEngine{identity: &slack.AuthIdentity{
			User: "scout", Team: "acme", UserID: "U9",
		}}}
		identity := runTool[slack.AuthIdentity](t, ToolCheckAuth, h.checkAuth, map[string]any{})
		if identity.User != "scout" || identity.UserID != "U9" {
			t.Errorf("identity = %+v", identity)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		h := &handlers{engine: &fakeEngine{}}
		runToolExpectError(t, ToolCheckAuth, h.checkAuth, map[string]any{})
	})
}

func TestLimitArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		def  int
		want int
	}{
		{"absent uses default", map[string]any{}, 5, 5},
		{"value used", map[string]any{"limit": float64(30)}, 5, 30},
		{"negative clamps to zero", map[string]any{"limit": float64(-1)}, 5, 0},
		{"huge clamps to max", map[string]any{"limit": float64(1e9)}, 5, maxLimit},
		{"wrong type uses default", map[string]any{"limit": "ten"}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limitArg(tt.args, "limit", tt.def); got != tt.want {
				t.Errorf("limitArg() = %d, want %d", got, tt.want)
			}
		})
	}
}
