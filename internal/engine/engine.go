// Package engine wires the gateway, caches, orchestrator, and assembler
// into the handle object collaborators consume. One Engine is constructed
// per process and passed by reference; there is no package-level state.
package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/chatscout/chatscout/internal/cache"
	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/config"
	"github.com/chatscout/chatscout/internal/names"
	"github.com/chatscout/chatscout/internal/search"
	"github.com/chatscout/chatscout/internal/slack"
	"github.com/chatscout/chatscout/internal/thread"
)

// defaultReactionChunk is the soft grouping size for batch reaction
// fetches. It shapes logging only; actual throttling happens at the
// gateway's permit.
const defaultReactionChunk = 10

// Engine exposes the core's public operations to the UI/command layer.
type Engine struct {
	client       *slack.Client
	cache        *cache.Supervisor
	resolver     *names.Resolver
	orchestrator *search.Orchestrator
	assembler    *thread.Assembler
	logger       *slog.Logger
}

// New constructs the engine from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := slack.NewClient(cfg.Slack.Token,
		slack.WithLogger(logger),
		slack.WithBaseURL(cfg.Slack.BaseURL),
		slack.WithTimeout(cfg.RequestTimeout()),
		slack.WithConcurrency(cfg.Slack.MaxConcurrent),
		slack.WithPageSize(cfg.Slack.PageSize),
		slack.WithPageDelay(cfg.PageDelay()),
	)
	if err != nil {
		return nil, err
	}

	supervisor := cache.NewSupervisor(
		cache.WithDirectoryTTL(cfg.DirectoryTTL()),
		cache.WithSearchTTL(cfg.SearchTTL()),
		cache.WithSearchCapacity(cfg.Cache.SearchCapacity),
	)
	resolver := names.NewResolver(client, supervisor, logger)

	return &Engine{
		client:       client,
		cache:        supervisor,
		resolver:     resolver,
		orchestrator: search.NewOrchestrator(client, supervisor, resolver, logger, cfg.Slack.DefaultLimit),
		assembler:    thread.NewAssembler(client, resolver, logger),
		logger:       logger,
	}, nil
}

// SearchMessages executes a search request.
func (e *Engine) SearchMessages(ctx context.Context, req chat.SearchRequest) (*chat.SearchResult, error) {
	return e.orchestrator.Search(ctx, req)
}

// SearchMessagesFast is SearchMessages with reaction enrichment always
// deferred; callers fetch reactions progressively via BatchFetchReactions.
func (e *Engine) SearchMessagesFast(ctx context.Context, req chat.SearchRequest) (*chat.SearchResult, error) {
	req.IsRealtime = false
	return e.orchestrator.Search(ctx, req)
}

// GetThread reconstructs the thread rooted at (channelID, rootTS).
func (e *Engine) GetThread(ctx context.Context, channelID, rootTS string) (*chat.ThreadMessages, error) {
	return e.assembler.GetThread(ctx, channelID, rootTS)
}

// TestAuth verifies the configured token.
func (e *Engine) TestAuth(ctx context.Context) (*slack.AuthIdentity, error) {
	return e.client.TestAuth(ctx)
}

// ListChannels lists visible channels and warms the channel directory.
func (e *Engine) ListChannels(ctx context.Context) ([]slack.Channel, error) {
	channels, err := e.client.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if ch.Name != "" {
			e.cache.PutChannel(ch.ID, ch.Name)
		}
	}
	return channels, nil
}

// ClearCaches drops all cached directory entries and memoized results.
func (e *Engine) ClearCaches() {
	e.cache.ClearAll()
	e.logger.Debug("caches cleared")
}

// CachedUserName resolves a user id to a display name without a network
// round-trip when possible. Used by collaborators such as message posting.
func (e *Engine) CachedUserName(id string) (string, bool) {
	return e.cache.GetUser(id)
}

// CachedChannelName resolves a channel id from the directory cache.
func (e *Engine) CachedChannelName(id string) (string, bool) {
	return e.cache.GetChannel(id)
}

// ReactionRequest identifies one message to fetch reactions for.
type ReactionRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// ReactionResult carries the outcome for one request.
type ReactionResult struct {
	Channel   string          `json:"channel"`
	TS        string          `json:"ts"`
	Reactions []chat.Reaction `json:"reactions,omitempty"`
	FromCache bool            `json:"from_cache"`
	Failed    bool            `json:"failed"`
}

// ReactionBatch is the per-request results plus fetch accounting.
type ReactionBatch struct {
	Results   []ReactionResult `json:"results"`
	CacheHits int              `json:"cache_hits"`
	Fetched   int              `json:"fetched"`
	Failed    int              `json:"failed"`
}

// BatchFetchReactions resolves reactions for many messages: memo-resident
// reactions are served without I/O, the rest are fetched in parallel in
// soft chunks of batchSize. Individual failures are absorbed into the
// accounting; the batch itself never errors.
func (e *Engine) BatchFetchReactions(ctx context.Context, requests []ReactionRequest, batchSize int) *ReactionBatch {
	if batchSize <= 0 {
		batchSize = defaultReactionChunk
	}

	batch := &ReactionBatch{Results: make([]ReactionResult, len(requests))}

	var toFetch []int
	for i, req := range requests {
		batch.Results[i] = ReactionResult{Channel: req.Channel, TS: req.TS}
		if rs, ok := e.cache.CachedReactions(req.Channel, req.TS); ok {
			batch.Results[i].Reactions = rs
			batch.Results[i].FromCache = true
			batch.CacheHits++
			continue
		}
		toFetch = append(toFetch, i)
	}

	for start := 0; start < len(toFetch); start += batchSize {
		end := min(start+batchSize, len(toFetch))
		chunk := toFetch[start:end]
		e.logger.Debug("fetching reaction chunk", "size", len(chunk), "remaining", len(toFetch)-end)

		var g errgroup.Group
		for _, idx := range chunk {
			g.Go(func() error {
				req := requests[idx]
				rs, err := e.client.GetReactions(ctx, req.Channel, req.TS)
				if err != nil {
					e.logger.Debug("reaction fetch failed",
						"channel", req.Channel, "ts", req.TS, "error", err)
					batch.Results[idx].Failed = true
					return nil
				}
				reactions := make([]chat.Reaction, len(rs))
				for i, r := range rs {
					reactions[i] = chat.Reaction{Name: r.Name, Count: r.Count, Users: r.Users}
				}
				batch.Results[idx].Reactions = reactions
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, idx := range toFetch {
		if batch.Results[idx].Failed {
			batch.Failed++
		} else {
			batch.Fetched++
		}
	}
	return batch
}
