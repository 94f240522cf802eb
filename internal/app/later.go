package app

import (
	"context"
	"time"

	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

type SavedLaterView struct {
	ID              string                 `json:"id"`
	MemberID        string                 `json:"memberId"`
	MessageID       string                 `json:"messageId"`
	WorkspaceID     string                 `json:"workspaceId"`
	ChannelID       string                 `json:"channelId,omitempty"`
	ConversationID  string                 `json:"conversationId,omitempty"`
	ParentMessageID string                 `json:"parentMessageId,omitempty"`
	Status          store.SavedLaterStatus `json:"status"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Message         *MessageView           `json:"message,omitempty"`
}

type SaveLaterInput struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

func savedLaterView(item store.SavedLater) SavedLaterView {
	return SavedLaterView{
		ID:              item.ID,
		MemberID:        item.MemberID,
		MessageID:       item.MessageID,
		WorkspaceID:     item.WorkspaceID,
		ChannelID:       item.ChannelID,
		ConversationID:  item.ConversationID,
		ParentMessageID: item.ParentMessageID,
		Status:          item.Status,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

func parseSavedStatus(raw string, fallback store.SavedLaterStatus) (store.SavedLaterStatus, error) {
	if raw == "" {
		return fallback, nil
	}
	if !store.ValidSavedLaterStatus(raw) {
		return "", invalid("status must be inprogress, archived or completed", map[string]any{"field": "status"})
	}
	return store.SavedLaterStatus(raw), nil
}

// SaveForLater bookmarks a message for the caller. Saving the same message
// again only updates the status.
func (s *Service) SaveForLater(ctx context.Context, session Session, workspaceID string, in SaveLaterInput) (SavedLaterView, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return SavedLaterView{}, err
	}
	status, err := parseSavedStatus(in.Status, store.SavedInProgress)
	if err != nil {
		return SavedLaterView{}, err
	}
	msg, err := s.visibleMessage(ctx, member, in.MessageID)
	if err != nil {
		return SavedLaterView{}, err
	}

	now := s.now()
	existing, err := s.store.FindSavedLater(ctx, member.ID, msg.ID)
	switch {
	case err == nil:
		if err := s.store.UpdateSavedLaterStatus(ctx, existing.ID, status); err != nil {
			return SavedLaterView{}, err
		}
		existing.Status = status
		existing.UpdatedAt = now
		return savedLaterView(existing), nil
	case !isNoRows(err):
		return SavedLaterView{}, err
	}

	item := store.SavedLater{
		ID:              util.NewID("later"),
		MemberID:        member.ID,
		MessageID:       msg.ID,
		WorkspaceID:     workspaceID,
		ChannelID:       msg.Scope.ChannelID(),
		ConversationID:  msg.Scope.ConversationID(),
		ParentMessageID: msg.Scope.ParentMessageID(),
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertSavedLater(ctx, item); err != nil {
		return SavedLaterView{}, err
	}
	return savedLaterView(item), nil
}

func (s *Service) ownSavedLater(ctx context.Context, session Session, workspaceID, id string) (store.SavedLater, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return store.SavedLater{}, err
	}
	item, err := s.store.GetSavedLater(ctx, id)
	if isNoRows(err) || (err == nil && item.WorkspaceID != workspaceID) {
		return store.SavedLater{}, notFound("Saved item")
	}
	if err != nil {
		return store.SavedLater{}, err
	}
	if item.MemberID != member.ID {
		return store.SavedLater{}, unauthorized("Unauthorized")
	}
	return item, nil
}

func (s *Service) UpdateSavedLaterStatus(ctx context.Context, session Session, workspaceID, id, status string) (SavedLaterView, error) {
	parsed, err := parseSavedStatus(status, "")
	if err != nil {
		return SavedLaterView{}, err
	}
	if parsed == "" {
		return SavedLaterView{}, invalid("status is required", map[string]any{"field": "status"})
	}
	item, err := s.ownSavedLater(ctx, session, workspaceID, id)
	if err != nil {
		return SavedLaterView{}, err
	}
	if err := s.store.UpdateSavedLaterStatus(ctx, id, parsed); err != nil {
		return SavedLaterView{}, err
	}
	item.Status = parsed
	item.UpdatedAt = s.now()
	return savedLaterView(item), nil
}

func (s *Service) RemoveSavedLater(ctx context.Context, session Session, workspaceID, id string) error {
	if _, err := s.ownSavedLater(ctx, session, workspaceID, id); err != nil {
		return err
	}
	return s.store.DeleteSavedLater(ctx, id)
}

// ListSavedLater returns the caller's saved messages, optionally filtered by
// status. Entries whose message is gone are dropped.
func (s *Service) ListSavedLater(ctx context.Context, session Session, workspaceID, status string) ([]SavedLaterView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []SavedLaterView{}, nil
	}
	filter, err := parseSavedStatus(status, "")
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListSavedLater(ctx, member.ID, filter)
	if err != nil {
		return nil, err
	}

	msgs := make([]store.Message, 0, len(items))
	kept := make([]store.SavedLater, 0, len(items))
	for _, item := range items {
		msg, err := s.store.GetMessage(ctx, item.MessageID)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		kept = append(kept, item)
	}
	views, err := s.populateMessagesAligned(ctx, msgs)
	if err != nil {
		return nil, err
	}

	out := make([]SavedLaterView, 0, len(kept))
	for i, item := range kept {
		if views[i] == nil {
			continue
		}
		view := savedLaterView(item)
		view.Message = views[i]
		out = append(out, view)
	}
	return out, nil
}
