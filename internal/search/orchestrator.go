package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatscout/chatscout/internal/cache"
	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/names"
	"github.com/chatscout/chatscout/internal/slack"
)

// DefaultLimit caps result size when the request does not specify one.
const DefaultLimit = 100

// Gateway is the slice of the API gateway the orchestrator needs.
type Gateway interface {
	SearchAll(ctx context.Context, query string, maxResults int) (*slack.SearchPage, error)
	GetHistory(ctx context.Context, channel string, maxResults int) ([]slack.Message, error)
	GetReactions(ctx context.Context, channel, ts string) ([]slack.Reaction, error)
}

// Orchestrator fans search requests out across channels, merges the
// partial results, and resolves names through the cache.
type Orchestrator struct {
	gw           Gateway
	cache        *cache.Supervisor
	resolver     *names.Resolver
	logger       *slog.Logger
	defaultLimit int
}

// NewOrchestrator creates an Orchestrator. A nil logger falls back to
// slog.Default; a non-positive defaultLimit falls back to DefaultLimit.
func NewOrchestrator(gw Gateway, c *cache.Supervisor, r *names.Resolver, logger *slog.Logger, defaultLimit int) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Orchestrator{gw: gw, cache: c, resolver: r, logger: logger, defaultLimit: defaultLimit}
}

// Search executes one search request end to end: memo lookup, strategy
// selection, fan-out, merge, enrichment, name resolution, memoization.
//
// A single channel's fan-out failure contributes zero messages rather than
// failing the search; only a failure of the sole retrieval path propagates.
func (o *Orchestrator) Search(ctx context.Context, req chat.SearchRequest) (*chat.SearchResult, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = o.defaultLimit
	}

	key := cache.SearchKey(req)
	if !req.ForceRefresh {
		if hit, ok := o.cache.GetSearch(key); ok {
			o.logger.Debug("search memo hit", "query", req.Query, "channel", req.Channel)
			return hit, nil
		}
	}

	plan := BuildPlan(req.Query, req.Channel, req.User, req.FromDate, req.ToDate)
	o.logger.Debug("search plan",
		"strategy", plan.Strategy.String(),
		"channels", len(plan.Channels),
		"users", len(plan.Users),
		"display", plan.Display)

	raw, total, err := o.retrieve(ctx, plan, req.Limit)
	if err != nil {
		return nil, err
	}

	if filtered, applied := postFilterUsers(raw, plan); applied {
		raw = filtered
		// The remote total counts unfiltered matches and is meaningless
		// after a client-side user filter.
		total = len(raw)
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].TS > raw[j].TS })
	if len(raw) > req.Limit {
		raw = raw[:req.Limit]
	}

	result := &chat.SearchResult{
		Messages: o.finalize(ctx, raw, req.IsRealtime),
		Total:    total,
		Query:    plan.Display,
		Elapsed:  time.Since(start),
	}

	if !req.ForceRefresh {
		o.cache.PutSearch(key, result)
	}
	return result, nil
}

// retrieve fetches raw messages according to the plan's strategy.
func (o *Orchestrator) retrieve(ctx context.Context, plan Plan, limit int) ([]slack.Message, int, error) {
	if len(plan.Channels) > 1 {
		msgs, total := o.fanOut(ctx, plan, limit)
		return msgs, total, nil
	}

	channel := ""
	if len(plan.Channels) == 1 {
		channel = plan.Channels[0]
	}

	if plan.Strategy == StrategyHistory {
		msgs, err := o.gw.GetHistory(ctx, channel, limit)
		if err == nil {
			return msgs, len(msgs), nil
		}
		// History listing can fail where search still works (archived or
		// shared channels); fall through to the search path.
		o.logger.Warn("history retrieval failed, falling back to search",
			"channel", channel, "error", err)
	}

	sp, err := o.gw.SearchAll(ctx, plan.QueryFor(channel), limit)
	if err != nil {
		return nil, 0, err
	}
	return sp.Messages, sp.Total, nil
}

// fanOut searches each channel independently in parallel and concatenates
// the partial results. Per-channel failures are absorbed. No cross-channel
// ordering is guaranteed here; the caller's final sort establishes it.
func (o *Orchestrator) fanOut(ctx context.Context, plan Plan, limit int) ([]slack.Message, int) {
	pages := make([]*slack.SearchPage, len(plan.Channels))

	// Plain Group, not WithContext: one channel's failure must not cancel
	// its siblings, and all dispatched fetches resolve before merging.
	var g errgroup.Group
	for i, ch := range plan.Channels {
		g.Go(func() error {
			sp, err := o.gw.SearchAll(ctx, plan.QueryFor(ch), limit)
			if err != nil {
				o.logger.Warn("channel search failed", "channel", ch, "error", err)
				return nil
			}
			pages[i] = sp
			return nil
		})
	}
	_ = g.Wait()

	var all []slack.Message
	total := 0
	for _, sp := range pages {
		if sp == nil {
			continue
		}
		all = append(all, sp.Messages...)
		total += sp.Total
	}
	return all, total
}

// postFilterUsers applies the exact-id user filter client-side. It runs
// when the filter holds multiple ids (OR semantics are not expressible in
// the query language) and when history retrieval carried a single-user
// filter the listing could not apply.
func postFilterUsers(msgs []slack.Message, plan Plan) ([]slack.Message, bool) {
	needed := len(plan.Users) > 1 ||
		(len(plan.Users) == 1 && plan.Strategy == StrategyHistory)
	if !needed {
		return msgs, false
	}

	allowed := make(map[string]struct{}, len(plan.Users))
	for _, id := range plan.Users {
		allowed[id] = struct{}{}
	}

	out := msgs[:0]
	for _, m := range msgs {
		if _, ok := allowed[m.User]; ok {
			out = append(out, m)
		}
	}
	return out, true
}

// finalize converts raw messages to the canonical model: optional eager
// reaction enrichment, batch name resolution, channel naming, and mention
// rewriting.
func (o *Orchestrator) finalize(ctx context.Context, raw []slack.Message, realtime bool) []chat.Message {
	if realtime {
		o.enrichReactions(ctx, raw)
	}

	ids := make([]string, 0, len(raw))
	for _, m := range raw {
		ids = append(ids, m.User)
	}
	o.resolver.ResolveUsers(ctx, ids)

	channelNames := make(map[string]string)
	for _, m := range raw {
		if m.Channel == "" {
			continue
		}
		if _, ok := channelNames[m.Channel]; !ok {
			channelNames[m.Channel] = o.resolver.ChannelName(ctx, m.Channel)
		}
	}

	out := make([]chat.Message, len(raw))
	for i, m := range raw {
		out[i] = chat.Message{
			TS:          m.TS,
			ThreadTS:    m.ThreadTS,
			User:        m.User,
			UserName:    o.resolver.UserName(m.User, m.Username),
			Text:        o.resolver.RewriteMentions(m.Text),
			Channel:     m.Channel,
			ChannelName: channelNames[m.Channel],
			Permalink:   m.Permalink,
			// Trustworthy from history retrieval only; the search endpoint
			// omits reply counts, leaving these zero-valued.
			IsThreadParent: m.ReplyCount > 0 && m.IsParent(),
			ReplyCount:     m.ReplyCount,
			Reactions:      convertReactions(m.Reactions),
			Files:          convertFiles(m.Files),
		}
		// Deferred mode attaches only reactions the memo already holds;
		// nothing is fetched for them.
		if !realtime && len(out[i].Reactions) == 0 && m.Channel != "" {
			if rs, ok := o.cache.CachedReactions(m.Channel, m.TS); ok {
				out[i].Reactions = rs
			}
		}
	}
	return out
}

// enrichReactions fetches reactions in parallel for every message lacking
// them. The gateway's global permit is the only throttle. Failures leave
// the message's reactions unset.
func (o *Orchestrator) enrichReactions(ctx context.Context, msgs []slack.Message) {
	var g errgroup.Group
	for i := range msgs {
		if len(msgs[i].Reactions) > 0 || msgs[i].Channel == "" {
			continue
		}
		g.Go(func() error {
			rs, err := o.gw.GetReactions(ctx, msgs[i].Channel, msgs[i].TS)
			if err != nil {
				o.logger.Debug("reaction fetch failed",
					"channel", msgs[i].Channel, "ts", msgs[i].TS, "error", err)
				return nil
			}
			msgs[i].Reactions = rs
			return nil
		})
	}
	_ = g.Wait()
}

func convertReactions(in []slack.Reaction) []chat.Reaction {
	if len(in) == 0 {
		return nil
	}
	out := make([]chat.Reaction, len(in))
	for i, r := range in {
		out[i] = chat.Reaction{Name: r.Name, Count: r.Count, Users: r.Users}
	}
	return out
}

func convertFiles(in []slack.File) []chat.File {
	if len(in) == 0 {
		return nil
	}
	out := make([]chat.File, len(in))
	for i, f := range in {
		out[i] = chat.File{ID: f.ID, Name: f.Name, Mimetype: f.Mimetype, URL: f.URL}
	}
	return out
}
