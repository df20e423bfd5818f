// Package names resolves user and channel display names through the cache,
// batch-fetching misses from the gateway, and rewrites inline user-mention
// tokens in message text. It is shared by the search orchestrator and the
// thread assembler.
package names

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chatscout/chatscout/internal/cache"
	"github.com/chatscout/chatscout/internal/slack"
)

// Directory is the slice of the gateway the resolver needs.
type Directory interface {
	GetUserInfo(ctx context.Context, userID string) (*slack.User, error)
	GetChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error)
}

// mentionRE matches <@U123> and <@U123|alias> tokens.
var mentionRE = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// Resolver resolves ids to display names, caching every successful lookup.
type Resolver struct {
	dir    Directory
	cache  *cache.Supervisor
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default.
func NewResolver(dir Directory, c *cache.Supervisor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, cache: c, logger: logger}
}

// ResolveUsers ensures every id in ids has a cached display name, fetching
// the misses in one parallel batch. Individual lookup failures are
// absorbed: the id simply stays unresolved and callers fall back to it.
// The returned map holds the post-refresh name for every input id that
// resolved.
func (r *Resolver) ResolveUsers(ctx context.Context, ids []string) map[string]string {
	// Snapshot under the lock, then release before any network I/O.
	cached := r.cache.UserSnapshot()

	seen := make(map[string]struct{}, len(ids))
	var missing []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		var g errgroup.Group
		for _, id := range missing {
			g.Go(func() error {
				user, err := r.dir.GetUserInfo(ctx, id)
				if err != nil {
					r.logger.Debug("user lookup failed", "user", id, "error", err)
					return nil
				}
				r.cache.PutUser(id, user.DisplayName())
				return nil
			})
		}
		// Lookups never return errors; Wait is for completion only.
		_ = g.Wait()
		cached = r.cache.UserSnapshot()
	}

	resolved := make(map[string]string, len(seen))
	for id := range seen {
		if name, ok := cached[id]; ok {
			resolved[id] = name
		}
	}
	return resolved
}

// UserName returns the display name for an id: cached name, then the
// platform-reported username, then the id itself.
func (r *Resolver) UserName(id, platformUsername string) string {
	if name, ok := r.cache.GetUser(id); ok && name != "" {
		return name
	}
	if platformUsername != "" {
		return platformUsername
	}
	return id
}

// ChannelName returns the name for a channel id, fetching and caching it
// on a miss. Lookup failure falls back to the id.
func (r *Resolver) ChannelName(ctx context.Context, id string) string {
	if name, ok := r.cache.GetChannel(id); ok && name != "" {
		return name
	}
	ch, err := r.dir.GetChannelInfo(ctx, id)
	if err != nil {
		r.logger.Debug("channel lookup failed", "channel", id, "error", err)
		return id
	}
	r.cache.PutChannel(ch.ID, ch.Name)
	return ch.Name
}

// RewriteMentions replaces <@UXXXX> tokens with @DisplayName using the
// cache only; unresolved mentions keep the bare id.
func (r *Resolver) RewriteMentions(text string) string {
	if !strings.Contains(text, "<@") {
		return text
	}
	return mentionRE.ReplaceAllStringFunc(text, func(tok string) string {
		id := mentionRE.FindStringSubmatch(tok)[1]
		if name, ok := r.cache.GetUser(id); ok && name != "" {
			return "@" + name
		}
		return "@" + id
	})
}
