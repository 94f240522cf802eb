package app

import (
	"context"
	"strings"

	"github.com/ngochieu276/slack-clone/internal/search"
)

type SearchInput struct {
	Text      string
	ChannelID string
	Limit     int
	Offset    int
}

type SearchHit struct {
	search.Result
	Message *MessageView `json:"message"`
}

type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
	Query   string      `json:"query"`
}

// SearchMessages runs a full-text query over the workspace's channel messages.
// Hits are re-read from the store so deleted messages never surface.
func (s *Service) SearchMessages(ctx context.Context, session Session, workspaceID string, in SearchInput) (SearchResponse, error) {
	text := strings.TrimSpace(in.Text)
	empty := SearchResponse{Results: []SearchHit{}, Query: text}
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return SearchResponse{}, err
	}
	if member == nil || text == "" || s.search == nil {
		return empty, nil
	}

	resp := s.search.Search(ctx, search.Query{
		Text:        text,
		WorkspaceID: workspaceID,
		ChannelID:   in.ChannelID,
		Limit:       s.pageSize(in.Limit),
		Offset:      max(in.Offset, 0),
	})

	hits := make([]SearchHit, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.WorkspaceID != "" && result.WorkspaceID != workspaceID {
			continue
		}
		msg, err := s.store.GetMessage(ctx, result.ID)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return SearchResponse{}, err
		}
		if msg.WorkspaceID != workspaceID {
			continue
		}
		view, err := s.populateMessage(ctx, msg, false)
		if err != nil {
			return SearchResponse{}, err
		}
		if view == nil {
			continue
		}
		hits = append(hits, SearchHit{Result: result, Message: view})
	}
	return SearchResponse{Results: hits, Total: resp.Total, Query: resp.Query}, nil
}
