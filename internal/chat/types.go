// Package chat defines the canonical message model shared by the gateway,
// caches, search orchestrator, and thread assembler.
package chat

import "time"

// Message is the normalized unit returned to callers. Timestamps are the
// platform's "seconds.microseconds" strings, lexicographically orderable
// within a channel.
type Message struct {
	TS          string     `json:"ts"`
	ThreadTS    string     `json:"thread_ts,omitempty"`
	User        string     `json:"user"`
	UserName    string     `json:"user_name"`
	Text        string     `json:"text"`
	Channel     string     `json:"channel"`
	ChannelName string     `json:"channel_name"`
	Permalink   string     `json:"permalink,omitempty"`
	// IsThreadParent and ReplyCount are populated by history retrieval and
	// thread fetches only; the remote search API omits the source fields,
	// so search-retrieved messages carry zero values here.
	IsThreadParent bool       `json:"is_thread_parent"`
	ReplyCount     int        `json:"reply_count,omitempty"`
	Reactions      []Reaction `json:"reactions,omitempty"`
	Files          []File     `json:"files,omitempty"`
}

// IsParent reports whether the message is a thread root: no thread_ts, or
// thread_ts equal to its own ts.
func (m *Message) IsParent() bool {
	return m.ThreadTS == "" || m.ThreadTS == m.TS
}

// Reaction is one emoji reaction on a message.
type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

// File is a message attachment reference.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Mimetype string `json:"mimetype,omitempty"`
	URL      string `json:"url,omitempty"`
}

// SearchRequest describes one search operation.
type SearchRequest struct {
	Query    string `json:"query"`
	Channel  string `json:"channel,omitempty"` // single id or comma-joined list
	User     string `json:"user,omitempty"`    // single id or comma-joined list
	FromDate string `json:"from_date,omitempty"` // ISO date bound, inclusive
	ToDate   string `json:"to_date,omitempty"`   // ISO date bound, exclusive
	Limit    int    `json:"limit,omitempty"`
	// IsRealtime selects eager reaction enrichment; when false, only
	// cache-resident reactions are attached.
	IsRealtime   bool `json:"is_realtime,omitempty"`
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// SearchResult is an assembled, sorted, truncated search outcome.
type SearchResult struct {
	Messages []Message     `json:"messages"`
	Total    int           `json:"total"`
	Query    string        `json:"query"` // resolved display query
	Elapsed  time.Duration `json:"elapsed"`
}

// ThreadMessages is one reconstructed thread: a single parent plus its
// replies in original order.
type ThreadMessages struct {
	Parent  Message   `json:"parent"`
	Replies []Message `json:"replies"`
}
