package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/engine"
)

const maxLimit = 1000

type handlers struct {
	engine Engine
}

func (h *handlers) searchMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	sreq := chat.SearchRequest{
		Limit:      limitArg(args, "limit", 0),
		IsRealtime: boolArg(args, "include_reactions"),
	}
	sreq.Query, _ = args["query"].(string)
	sreq.Channel, _ = args["channel"].(string)
	sreq.User, _ = args["user"].(string)
	sreq.FromDate, _ = args["after"].(string)
	sreq.ToDate, _ = args["before"].(string)
	sreq.ForceRefresh = boolArg(args, "force_refresh")

	if sreq.Query == "" && sreq.Channel == "" && sreq.User == "" {
		return mcp.NewToolResultError("at least one of query, channel, or user is required"), nil
	}

	result, err := h.engine.SearchMessages(ctx, sreq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(result)
}

func (h *handlers) getThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	channel, _ := args["channel"].(string)
	ts, _ := args["ts"].(string)
	if channel == "" || ts == "" {
		return mcp.NewToolResultError("channel and ts parameters are required"), nil
	}

	thread, err := h.engine.GetThread(ctx, channel, ts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("thread fetch failed: %v", err)), nil
	}

	return jsonResult(thread)
}

func (h *handlers) listChannels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channels, err := h.engine.ListChannels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("channel listing failed: %v", err)), nil
	}

	return jsonResult(channels)
}

func (h *handlers) getReactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	raw, ok := args["messages"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("messages parameter is required"), nil
	}

	requests := make([]engine.ReactionRequest, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("messages[%d] must be an object with channel and ts", i)), nil
		}
		channel, _ := m["channel"].(string)
		ts, _ := m["ts"].(string)
		if channel == "" || ts == "" {
			return mcp.NewToolResultError(fmt.Sprintf("messages[%d] is missing channel or ts", i)), nil
		}
		requests = append(requests, engine.ReactionRequest{Channel: channel, TS: ts})
	}

	batch := h.engine.BatchFetchReactions(ctx, requests, 0)
	return jsonResult(batch)
}

func (h *handlers) checkAuth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity, err := h.engine.TestAuth(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("auth check failed: %v", err)), nil
	}

	return jsonResult(identity)
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key].(bool)
	return ok && v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
