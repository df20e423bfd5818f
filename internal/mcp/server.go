package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/engine"
	"github.com/chatscout/chatscout/internal/slack"
)

// Tool name constants.
const (
	ToolSearchMessages = "search_messages"
	ToolGetThread      = "get_thread"
	ToolListChannels   = "list_channels"
	ToolGetReactions   = "get_reactions"
	ToolCheckAuth      = "check_auth"
)

// Engine defines the operations the MCP tools need.
type Engine interface {
	SearchMessages(ctx context.Context, req chat.SearchRequest) (*chat.SearchResult, error)
	GetThread(ctx context.Context, channelID, rootTS string) (*chat.ThreadMessages, error)
	ListChannels(ctx context.Context) ([]slack.Channel, error)
	TestAuth(ctx context.Context) (*slack.AuthIdentity, error)
	BatchFetchReactions(ctx context.Context, requests []engine.ReactionRequest, batchSize int) *engine.ReactionBatch
}

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withAfter() mcp.ToolOption {
	return mcp.WithString("after",
		mcp.Description("Only messages after this date (YYYY-MM-DD)"),
	)
}

func withBefore() mcp.ToolOption {
	return mcp.WithString("before",
		mcp.Description("Only messages before this date (YYYY-MM-DD)"),
	)
}

// Serve creates an MCP server with workspace search tools and serves over
// stdio. It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, eng Engine) error {
	s := server.NewMCPServer(
		"chatscout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := &handlers{engine: eng}

	s.AddTool(searchMessagesTool(), h.searchMessages)
	s.AddTool(getThreadTool(), h.getThread)
	s.AddTool(listChannelsTool(), h.listChannels)
	s.AddTool(getReactionsTool(), h.getReactions)
	s.AddTool(checkAuthTool(), h.checkAuth)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func searchMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchMessages,
		mcp.WithDescription("Search workspace messages. Supports free text plus channel, user, and date filters. Comma-separate channels to search several at once."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Free-text search terms; empty with a channel filter returns recent channel history"),
		),
		mcp.WithString("channel",
			mcp.Description("Channel name or ID to search in (comma-separated for multiple)"),
		),
		mcp.WithString("user",
			mcp.Description("Only messages from this user ID or @mention (comma-separated for multiple)"),
		),
		withAfter(),
		withBefore(),
		withLimit("100"),
		mcp.WithBoolean("include_reactions",
			mcp.Description("Fetch reactions for each result (slower)"),
		),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Bypass the cached result for this query"),
		),
	)
}

func getThreadTool() mcp.Tool {
	return mcp.NewTool(ToolGetThread,
		mcp.WithDescription("Fetch a full thread: the root message and every reply, in order. Works from any message timestamp in the thread."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("channel",
			mcp.Required(),
			mcp.Description("Channel ID containing the thread"),
		),
		mcp.WithString("ts",
			mcp.Required(),
			mcp.Description("Timestamp of the thread root (or any message in the thread)"),
		),
	)
}

func listChannelsTool() mcp.Tool {
	return mcp.NewTool(ToolListChannels,
		mcp.WithDescription("List all visible channels with IDs, names, and member counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getReactionsTool() mcp.Tool {
	return mcp.NewTool(ToolGetReactions,
		mcp.WithDescription("Fetch reactions for a batch of messages. Each message is identified by channel ID and timestamp."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("messages",
			mcp.Required(),
			mcp.Description(`Messages to fetch reactions for: [{"channel":"C123","ts":"1700000000.000100"}, ...]`),
		),
	)
}

func checkAuthTool() mcp.Tool {
	return mcp.NewTool(ToolCheckAuth,
		mcp.WithDescription("Verify the configured token and report the authenticated user and team."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
