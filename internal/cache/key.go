package cache

import (
	"hash/fnv"
	"strconv"

	"github.com/chatscout/chatscout/internal/chat"
)

// SearchKey derives the memo key for a request. The encoding is
// field-ordered and delimited, so two logically identical requests hash
// identically regardless of how their filters were assembled. Realtime and
// force-refresh flags are deliberately excluded: they affect enrichment and
// cache policy, not the result identity.
func SearchKey(req chat.SearchRequest) uint64 {
	h := fnv.New64a()
	for _, part := range []string{
		req.Query,
		req.Channel,
		req.User,
		req.FromDate,
		req.ToDate,
		strconv.Itoa(req.Limit),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
