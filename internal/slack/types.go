package slack

// Wire types mirror the platform's JSON envelopes. They stay unexported
// where possible; the exported types below are what the rest of the core
// consumes.

// apiEnvelope is the common {ok, error} frame every endpoint returns.
type apiEnvelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Needed string `json:"needed,omitempty"` // scope name on missing_scope
}

// Message is a raw platform message as returned by search, history, and
// replies endpoints. Field availability varies by endpoint: search matches
// carry Username and Permalink but never ReplyCount; history and replies
// carry ReplyCount but resolve no names.
type Message struct {
	TS         string     `json:"ts"`
	ThreadTS   string     `json:"thread_ts,omitempty"`
	User       string     `json:"user,omitempty"`
	Username   string     `json:"username,omitempty"`
	Text       string     `json:"text"`
	Permalink  string     `json:"permalink,omitempty"`
	ReplyCount int        `json:"reply_count,omitempty"`
	Channel    string     `json:"-"` // filled from the match envelope or request
	Reactions  []Reaction `json:"reactions,omitempty"`
	Files      []File     `json:"files,omitempty"`
}

// IsParent reports whether the raw message is a thread root.
func (m *Message) IsParent() bool {
	return m.ThreadTS == "" || m.ThreadTS == m.TS
}

// Reaction is one emoji reaction with its reacting users.
type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// File is an attachment reference carried on a message.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Mimetype string `json:"mimetype,omitempty"`
	URL      string `json:"url_private,omitempty"`
}

// User is the directory record for one user.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	Profile  struct {
		DisplayName string `json:"display_name,omitempty"`
		RealName    string `json:"real_name,omitempty"`
	} `json:"profile"`
	IsBot   bool `json:"is_bot,omitempty"`
	Deleted bool `json:"deleted,omitempty"`
}

// DisplayName returns the first non-empty of display name, real name,
// username, id. Pure ordered fallback; never returns empty for a valid id.
func (u *User) DisplayName() string {
	for _, candidate := range []string{u.Profile.DisplayName, u.Profile.RealName, u.RealName, u.Name} {
		if candidate != "" {
			return candidate
		}
	}
	return u.ID
}

// Channel is the directory record for one conversation.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private,omitempty"`
	IsArchived bool   `json:"is_archived,omitempty"`
	IsIM       bool   `json:"is_im,omitempty"`
	NumMembers int    `json:"num_members,omitempty"`
}

// SearchPage is one page of search matches plus the reported total.
type SearchPage struct {
	Messages []Message
	Total    int
}

// AuthIdentity describes the authenticated token.
type AuthIdentity struct {
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// Wire envelopes for individual endpoints.

type searchResponse struct {
	apiEnvelope
	Query    string `json:"query"`
	Messages struct {
		Total      int           `json:"total"`
		Matches    []searchMatch `json:"matches"`
		Pagination struct {
			TotalCount int `json:"total_count"`
			Page       int `json:"page"`
			PageCount  int `json:"page_count"`
			PerPage    int `json:"per_page"`
		} `json:"pagination"`
	} `json:"messages"`
}

// searchMatch wraps a message with the channel envelope search uses.
type searchMatch struct {
	Message
	ChannelInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
}

type repliesResponse struct {
	apiEnvelope
	Messages         []Message `json:"messages"`
	HasMore          bool      `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type historyResponse struct {
	apiEnvelope
	Messages         []Message `json:"messages"`
	HasMore          bool      `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type userInfoResponse struct {
	apiEnvelope
	User User `json:"user"`
}

type channelListResponse struct {
	apiEnvelope
	Channels         []Channel `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type channelInfoResponse struct {
	apiEnvelope
	Channel Channel `json:"channel"`
}

type authTestResponse struct {
	apiEnvelope
	AuthIdentity
}

type reactionsResponse struct {
	apiEnvelope
	Message struct {
		Reactions []Reaction `json:"reactions"`
	} `json:"message"`
}
