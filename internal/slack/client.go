// Package slack implements the API gateway: authenticated calls against the
// chat platform, a global bound on concurrent in-flight requests, paced
// cursor pagination, and classification of transport and remote failures
// into the errs taxonomy. It is the only package that touches HTTP.
package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/chatscout/chatscout/internal/errs"
)

const (
	defaultBaseURL       = "https://slack.com/api"
	defaultTimeout       = 30 * time.Second
	defaultMaxConcurrent = 3
	defaultPageSize      = 100
	defaultPageDelay     = 100 * time.Millisecond
)

// Client issues authenticated requests against the platform API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	pageSize   int

	// sem bounds concurrent in-flight requests system-wide; callers block
	// until a permit is free.
	sem *semaphore.Weighted
	// pager spaces consecutive pagination requests to respect the remote
	// rate limit. It throttles page loops only, not independent calls.
	pager *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURL overrides the API base URL. Used by tests and self-hosted
// compatible servers.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request socket timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithConcurrency sets the bound on concurrent in-flight requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithPageSize sets the per-page result count for paginated fetches.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPageDelay sets the fixed delay between pagination requests.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) { c.pager = rate.NewLimiter(rate.Every(d), 1) }
}

// NewClient creates a gateway client for the given bearer token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errs.New(errs.Config, "API token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := &Client{
		httpClient: oauth2.NewClient(context.Background(), ts),
		baseURL:    defaultBaseURL,
		logger:     slog.Default(),
		pageSize:   defaultPageSize,
		sem:        semaphore.NewWeighted(defaultMaxConcurrent),
		pager:      rate.NewLimiter(rate.Every(defaultPageDelay), 1),
	}
	c.httpClient.Timeout = defaultTimeout

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// wireResponse is implemented by every endpoint envelope via embedding.
type wireResponse interface {
	env() *apiEnvelope
}

func (e *apiEnvelope) env() *apiEnvelope { return e }

// callAPI performs one authenticated GET under the global permit, decodes
// the envelope, and classifies failures. There are no retries: a failed
// call surfaces immediately to the caller.
func (c *Client) callAPI(ctx context.Context, method string, params url.Values, out wireResponse) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return errs.Wrap(errs.Network, err, "acquire request permit")
	}
	defer c.sem.Release(1)

	reqURL := c.baseURL + "/" + method
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errs.Wrapf(errs.Network, err, "create %s request", method)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrapf(errs.Network, err, "%s request", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrapf(errs.Network, err, "read %s response", method)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.Newf(errs.Network, "%s: HTTP %d", method, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errs.Wrapf(errs.Parse, err, "decode %s response", method)
	}

	return c.classify(method, out.env())
}

// classify upgrades an ok:false envelope into the taxonomy.
func (c *Client) classify(method string, env *apiEnvelope) error {
	if env.OK {
		return nil
	}
	switch env.Error {
	case "invalid_auth", "token_revoked", "account_inactive":
		return errs.Newf(errs.Auth, "%s: token invalid or revoked (%s)", method, env.Error)
	case "missing_scope":
		return errs.Newf(errs.Auth, "%s: missing required scope %q", method, env.Needed)
	case "not_in_channel":
		return errs.Newf(errs.API, "%s: no access to channel (not_in_channel)", method)
	case "":
		return errs.Newf(errs.API, "%s: request failed", method)
	default:
		return errs.Newf(errs.API, "%s: %s", method, env.Error)
	}
}

// pace waits out the fixed inter-page delay within a pagination loop.
func (c *Client) pace(ctx context.Context) error {
	if err := c.pager.Wait(ctx); err != nil {
		return errs.Wrap(errs.Network, err, "pagination delay")
	}
	return nil
}

// Search fetches a single page of search matches.
func (c *Client) Search(ctx context.Context, query string, pageSize, page int) (*SearchPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("count", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))

	var resp searchResponse
	if err := c.callAPI(ctx, "search.messages", params, &resp); err != nil {
		return nil, err
	}

	messages := make([]Message, len(resp.Messages.Matches))
	for i, m := range resp.Messages.Matches {
		msg := m.Message
		msg.Channel = m.ChannelInfo.ID
		messages[i] = msg
	}

	return &SearchPage{Messages: messages, Total: resp.Messages.Total}, nil
}

// SearchAll walks search pages until maxResults or the reported total is
// reached, or a page comes back short. A failed page aborts the whole
// fetch. Page order is preserved.
func (c *Client) SearchAll(ctx context.Context, query string, maxResults int) (*SearchPage, error) {
	if maxResults <= 0 {
		maxResults = c.pageSize
	}

	var all []Message
	total := 0
	for page := 1; ; page++ {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		sp, err := c.Search(ctx, query, c.pageSize, page)
		if err != nil {
			return nil, err
		}
		total = sp.Total
		all = append(all, sp.Messages...)

		c.logger.Debug("search page fetched",
			"query", query, "page", page, "matches", len(sp.Messages), "total", total)

		if len(all) >= maxResults || len(all) >= total || len(sp.Messages) < c.pageSize {
			break
		}
	}

	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return &SearchPage{Messages: all, Total: total}, nil
}

// GetReplies fetches the full reply set for a thread root, following the
// cursor until exhausted.
func (c *Client) GetReplies(ctx context.Context, channel, rootTS string) ([]Message, error) {
	var all []Message
	cursor := ""
	for {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("channel", channel)
		params.Set("ts", rootTS)
		params.Set("limit", strconv.Itoa(c.pageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp repliesResponse
		if err := c.callAPI(ctx, "conversations.replies", params, &resp); err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			m.Channel = channel
			all = append(all, m)
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}
	return all, nil
}

// GetHistory lists a channel's messages newest-first up to maxResults,
// following the cursor until exhausted.
func (c *Client) GetHistory(ctx context.Context, channel string, maxResults int) ([]Message, error) {
	if maxResults <= 0 {
		maxResults = c.pageSize
	}

	var all []Message
	cursor := ""
	for {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("channel", channel)
		params.Set("limit", strconv.Itoa(c.pageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.callAPI(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			m.Channel = channel
			all = append(all, m)
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" || len(all) >= maxResults {
			break
		}
	}

	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all, nil
}

// GetUserInfo looks up one user's directory record.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	params := url.Values{}
	params.Set("user", userID)

	var resp userInfoResponse
	if err := c.callAPI(ctx, "users.info", params, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListChannels lists all visible conversations, following the cursor.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var all []Channel
	cursor := ""
	for {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("exclude_archived", "true")
		params.Set("types", "public_channel,private_channel")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp channelListResponse
		if err := c.callAPI(ctx, "conversations.list", params, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Channels...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}
	return all, nil
}

// GetChannelInfo looks up one channel. channel_not_found is tolerated:
// channel metadata is non-critical, so a placeholder record using the id
// as its name is returned instead of an error.
func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*Channel, error) {
	params := url.Values{}
	params.Set("channel", channelID)

	var resp channelInfoResponse
	err := c.callAPI(ctx, "conversations.info", params, &resp)
	if err != nil {
		if resp.Error == "channel_not_found" {
			c.logger.Debug("channel not found, using placeholder", "channel", channelID)
			return &Channel{ID: channelID, Name: channelID}, nil
		}
		return nil, err
	}
	return &resp.Channel, nil
}

// TestAuth verifies the token and returns the authenticated identity.
func (c *Client) TestAuth(ctx context.Context) (*AuthIdentity, error) {
	var resp authTestResponse
	if err := c.callAPI(ctx, "auth.test", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.AuthIdentity, nil
}

// GetReactions fetches the reactions on one message.
func (c *Client) GetReactions(ctx context.Context, channel, ts string) ([]Reaction, error) {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("timestamp", ts)

	var resp reactionsResponse
	if err := c.callAPI(ctx, "reactions.get", params, &resp); err != nil {
		return nil, err
	}
	return resp.Message.Reactions, nil
}
