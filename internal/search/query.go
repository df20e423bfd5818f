// Package search implements the parallel search orchestrator: platform
// query construction, retrieval-strategy selection, per-channel fan-out,
// result merging, and progressive reaction enrichment.
package search

import (
	"strings"
	"time"
)

// RetrievalStrategy selects how a channel's messages are fetched.
type RetrievalStrategy int

const (
	// StrategySearch uses the remote full-text search endpoint with a
	// built query string.
	StrategySearch RetrievalStrategy = iota
	// StrategyHistory lists the channel's messages directly. Chosen for a
	// single channel with no text query and no multi-user filter, where it
	// is more complete and more recent than the search index.
	StrategyHistory
)

func (s RetrievalStrategy) String() string {
	if s == StrategyHistory {
		return "history"
	}
	return "search"
}

// matchAll is the platform's match-everything query token.
const matchAll = "*"

// Plan is the normalized form of a search request: split filters, selected
// strategy, and the human-readable display query.
type Plan struct {
	Text     string
	Channels []string
	Users    []string
	FromDate string // day-truncated, empty if unset
	ToDate   string
	Strategy RetrievalStrategy
	Display  string
}

// BuildPlan normalizes the request filters and selects the retrieval
// strategy. Multiple channels always use search retrieval, fanned out
// independently per channel.
func BuildPlan(query, channelFilter, userFilter, fromDate, toDate string) Plan {
	p := Plan{
		Text:     strings.TrimSpace(query),
		Channels: splitChannels(channelFilter),
		Users:    SplitUserIDs(userFilter),
		FromDate: truncateDay(fromDate),
		ToDate:   truncateDay(toDate),
	}

	p.Strategy = StrategySearch
	if len(p.Channels) == 1 && p.Text == "" && len(p.Users) < 2 {
		p.Strategy = StrategyHistory
	}

	p.Display = p.displayQuery()
	return p
}

// QueryFor builds the platform query string for one channel of the plan.
// A multi-user filter is not expressible in the query language and is
// applied client-side after retrieval, so from: is emitted only for a
// single user.
func (p Plan) QueryFor(channel string) string {
	var parts []string
	if p.Text != "" {
		parts = append(parts, p.Text)
	}
	if channel != "" {
		parts = append(parts, "in:"+channel)
	}
	if len(p.Users) == 1 {
		parts = append(parts, "from:"+p.Users[0])
	}
	if p.FromDate != "" {
		parts = append(parts, "after:"+p.FromDate)
	}
	if p.ToDate != "" {
		parts = append(parts, "before:"+p.ToDate)
	}
	if len(parts) == 0 {
		return matchAll
	}
	return strings.Join(parts, " ")
}

// displayQuery renders the human-readable query. Multi-channel requests
// show an OR-joined parenthesized channel list.
func (p Plan) displayQuery() string {
	switch len(p.Channels) {
	case 0:
		return p.QueryFor("")
	case 1:
		return p.QueryFor(p.Channels[0])
	}

	clauses := make([]string, len(p.Channels))
	for i, ch := range p.Channels {
		clauses[i] = "in:" + ch
	}
	group := "(" + strings.Join(clauses, " OR ") + ")"

	var parts []string
	if p.Text != "" {
		parts = append(parts, p.Text)
	}
	parts = append(parts, group)
	if len(p.Users) == 1 {
		parts = append(parts, "from:"+p.Users[0])
	}
	if p.FromDate != "" {
		parts = append(parts, "after:"+p.FromDate)
	}
	if p.ToDate != "" {
		parts = append(parts, "before:"+p.ToDate)
	}
	return strings.Join(parts, " ")
}

// splitChannels splits a comma-joined channel filter into normalized
// tokens: surrounding space, "#" prefixes, and <#C123|name> decoration are
// stripped.
func splitChannels(filter string) []string {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(filter, ",") {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, "<#") && strings.HasSuffix(tok, ">") {
			tok = tok[2 : len(tok)-1]
			if i := strings.Index(tok, "|"); i >= 0 {
				tok = tok[:i]
			}
		}
		tok = strings.TrimPrefix(tok, "#")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// SplitUserIDs splits a comma-joined user filter into bare ids:
// "<@U1>", "@U2", and "U3" all normalize to the inner id.
func SplitUserIDs(filter string) []string {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(filter, ",") {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, "<@") && strings.HasSuffix(tok, ">") {
			tok = tok[2 : len(tok)-1]
			if i := strings.Index(tok, "|"); i >= 0 {
				tok = tok[:i]
			}
		}
		tok = strings.TrimPrefix(tok, "@")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// dayFormats are the accepted input layouts for date bounds.
var dayFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// truncateDay reduces an ISO date bound to day granularity (YYYY-MM-DD).
// Unparseable values pass through untouched so the remote API can reject
// them with a visible error.
func truncateDay(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dayFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}
