package search

import (
	"context"
	"time"
)

// Result is a single message hit returned to the caller.
type Result struct {
	ID            string    `json:"id"`
	Snippet       string    `json:"snippet"`
	WorkspaceID   string    `json:"workspaceId"`
	ChannelID     string    `json:"channelId"`
	MemberID      string    `json:"memberId"`
	ParentMessage string    `json:"parentMessageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Query describes a search request. WorkspaceID is required; ChannelID narrows
// the search to one channel.
type Query struct {
	Text        string
	WorkspaceID string
	ChannelID   string
	Limit       int
	Offset      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Engine is a searcher that also maintains its own index.
type Engine interface {
	Searcher
	IndexMessages(records []MessageRecord) error
	DeleteMessage(id string) error
}

// MessageRecord is the data we index for a channel message.
type MessageRecord struct {
	ID              string `json:"id"`
	Body            string `json:"body"`
	WorkspaceID     string `json:"workspaceId"`
	ChannelID       string `json:"channelId"`
	MemberID        string `json:"memberId"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
}
