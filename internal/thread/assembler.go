// Package thread reconstructs full conversation threads from raw reply
// sets, recovering from wrong roots and orphaned threads where the true
// parent is missing or inaccessible.
package thread

import (
	"context"
	"log/slog"

	"github.com/chatscout/chatscout/internal/chat"
	"github.com/chatscout/chatscout/internal/errs"
	"github.com/chatscout/chatscout/internal/names"
	"github.com/chatscout/chatscout/internal/slack"
)

// syntheticParentText marks a synthesized placeholder when the true parent
// is unavailable (deleted, or outside the token's visibility).
const syntheticParentText = "[Original message unavailable]"

// ErrNotFound is returned when the platform has no messages for the
// requested thread.
var ErrNotFound = errs.New(errs.API, "Thread not found")

// Gateway is the slice of the API gateway the assembler needs.
type Gateway interface {
	GetReplies(ctx context.Context, channel, rootTS string) ([]slack.Message, error)
}

// Assembler turns a (channel, timestamp) pair into a reconstructed thread.
type Assembler struct {
	gw       Gateway
	resolver *names.Resolver
	logger   *slog.Logger
}

// NewAssembler creates an Assembler. A nil logger falls back to slog.Default.
func NewAssembler(gw Gateway, r *names.Resolver, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{gw: gw, resolver: r, logger: logger}
}

// GetThread retrieves and reconstructs one thread.
//
// The reconstruction runs as a small state machine: initial fetch with the
// caller's timestamp; if that returns a lone reply, refetch using its
// thread_ts as the corrected root (falling back to the initial result when
// the refetch fails); synthesize a placeholder parent for orphaned reply
// sets; then partition into parent plus ordered replies.
func (a *Assembler) GetThread(ctx context.Context, channel, rootTS string) (*chat.ThreadMessages, error) {
	msgs, err := a.gw.GetReplies(ctx, channel, rootTS)
	if err != nil {
		return nil, err
	}
	// An empty fetch is a terminal error, never an orphan case.
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}

	// Root correction: a single returned message that is itself a reply
	// means the caller's timestamp pointed mid-thread.
	if len(msgs) == 1 && msgs[0].ThreadTS != "" && msgs[0].ThreadTS != msgs[0].TS {
		corrected, err := a.gw.GetReplies(ctx, channel, msgs[0].ThreadTS)
		switch {
		case err != nil:
			a.logger.Warn("root refetch failed, keeping initial result",
				"channel", channel, "root", msgs[0].ThreadTS, "error", err)
		case len(corrected) > 0:
			msgs = corrected
		}
	}

	if !hasParent(msgs) {
		msgs = append([]slack.Message{a.syntheticParent(channel, msgs)}, msgs...)
	}

	parentIdx := -1
	for i := range msgs {
		if msgs[i].IsParent() {
			parentIdx = i
			break
		}
	}
	if parentIdx == -1 {
		// Unreachable after synthesis; promote the first reply anyway.
		parentIdx = 0
	}

	parentRaw := msgs[parentIdx]
	replyRaw := make([]slack.Message, 0, len(msgs)-1)
	for i, m := range msgs {
		if i != parentIdx {
			replyRaw = append(replyRaw, m)
		}
	}

	return a.assemble(ctx, channel, parentRaw, replyRaw), nil
}

// hasParent reports whether any message satisfies the parent condition.
func hasParent(msgs []slack.Message) bool {
	for i := range msgs {
		if msgs[i].IsParent() {
			return true
		}
	}
	return false
}

// syntheticParent builds a placeholder root for an orphaned reply set,
// using the replies' common thread_ts as its timestamp.
func (a *Assembler) syntheticParent(channel string, orphans []slack.Message) slack.Message {
	a.logger.Debug("synthesizing thread parent",
		"channel", channel, "root", orphans[0].ThreadTS, "replies", len(orphans))
	return slack.Message{
		TS:         orphans[0].ThreadTS,
		ThreadTS:   orphans[0].ThreadTS,
		Channel:    channel,
		Text:       syntheticParentText,
		ReplyCount: len(orphans),
	}
}

// assemble resolves names and converts the partitioned raw messages into
// the canonical thread shape.
func (a *Assembler) assemble(ctx context.Context, channel string, parent slack.Message, replies []slack.Message) *chat.ThreadMessages {
	ids := make([]string, 0, len(replies)+1)
	ids = append(ids, parent.User)
	for _, m := range replies {
		ids = append(ids, m.User)
	}
	a.resolver.ResolveUsers(ctx, ids)

	channelName := a.resolver.ChannelName(ctx, channel)

	out := &chat.ThreadMessages{
		Parent:  a.toMessage(parent, channel, channelName),
		Replies: make([]chat.Message, len(replies)),
	}
	out.Parent.IsThreadParent = true
	if out.Parent.ReplyCount == 0 {
		out.Parent.ReplyCount = len(replies)
	}
	for i, m := range replies {
		out.Replies[i] = a.toMessage(m, channel, channelName)
	}
	return out
}

func (a *Assembler) toMessage(m slack.Message, channel, channelName string) chat.Message {
	userName := ""
	if m.User != "" {
		userName = a.resolver.UserName(m.User, m.Username)
	}
	reactions := make([]chat.Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, chat.Reaction{Name: r.Name, Count: r.Count, Users: r.Users})
	}
	files := make([]chat.File, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, chat.File{ID: f.ID, Name: f.Name, Mimetype: f.Mimetype, URL: f.URL})
	}
	msg := chat.Message{
		TS:          m.TS,
		ThreadTS:    m.ThreadTS,
		User:        m.User,
		UserName:    userName,
		Text:        a.resolver.RewriteMentions(m.Text),
		Channel:     channel,
		ChannelName: channelName,
		Permalink:   m.Permalink,
		ReplyCount:  m.ReplyCount,
	}
	if len(reactions) > 0 {
		msg.Reactions = reactions
	}
	if len(files) > 0 {
		msg.Files = files
	}
	return msg
}
