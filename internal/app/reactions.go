package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ngochieu276/slack-clone/internal/metrics"
	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

type ReactionView struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	MessageID   string    `json:"messageId"`
	MemberID    string    `json:"memberId"`
	Value       string    `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToggleResult says which way a toggle went. ID is the reaction that was
// inserted or deleted.
type ToggleResult struct {
	ID    string `json:"id"`
	Added bool   `json:"added"`
}

// visibleMessage loads a message of the workspace that member may read.
func (s *Service) visibleMessage(ctx context.Context, member store.Member, messageID string) (store.Message, error) {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return store.Message{}, err
	}
	if msg.WorkspaceID != member.WorkspaceID {
		return store.Message{}, notFound("Message")
	}
	ok, err := s.canSee(ctx, member, msg.Scope)
	if err != nil {
		return store.Message{}, err
	}
	if !ok {
		return store.Message{}, notFound("Message")
	}
	return msg, nil
}

// ToggleReaction adds the caller's reaction with value to the message, or
// removes it when it already exists. Adding notifies the message author.
func (s *Service) ToggleReaction(ctx context.Context, session Session, workspaceID, messageID, value string) (ToggleResult, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return ToggleResult{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ToggleResult{}, invalid("value is required", map[string]any{"field": "value"})
	}
	msg, err := s.visibleMessage(ctx, member, messageID)
	if err != nil {
		return ToggleResult{}, err
	}

	existing, err := s.store.FindReaction(ctx, messageID, member.ID, value)
	switch {
	case err == nil:
		if err := s.store.DeleteReaction(ctx, existing.ID); err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{ID: existing.ID}, nil
	case !isNoRows(err):
		return ToggleResult{}, err
	}

	r := store.Reaction{
		ID:          util.NewID("react"),
		WorkspaceID: workspaceID,
		MessageID:   messageID,
		MemberID:    member.ID,
		Value:       value,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertReaction(ctx, r); err != nil {
		return ToggleResult{}, err
	}
	if err := s.notifyReaction(ctx, member, msg, r); err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{ID: r.ID, Added: true}, nil
}

func (s *Service) notifyReaction(ctx context.Context, reactor store.Member, msg store.Message, r store.Reaction) error {
	if msg.MemberID == reactor.ID {
		return nil
	}
	author, err := s.store.GetMember(ctx, msg.MemberID)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	n := store.Notification{
		ID:              util.NewID("noti"),
		UserID:          author.UserID,
		WorkspaceID:     msg.WorkspaceID,
		ChannelID:       msg.Scope.ChannelID(),
		ConversationID:  msg.Scope.ConversationID(),
		ParentMessageID: msg.Scope.ParentMessageID(),
		MessageID:       msg.ID,
		ReactionID:      r.ID,
		Type:            store.NotificationReaction,
		Status:          store.StatusUnread,
		SenderID:        reactor.UserID,
		SenderMemberID:  reactor.ID,
		Content:         r.Value,
		CreatedAt:       r.CreatedAt,
	}
	err = s.store.InsertNotification(ctx, n)
	metrics.NotificationsCreated.WithLabelValues(string(n.Type), metrics.StatusLabel(err)).Inc()
	return err
}

// ListReactions returns the raw reaction rows of a message.
func (s *Service) ListReactions(ctx context.Context, session Session, workspaceID, messageID string) ([]ReactionView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []ReactionView{}, nil
	}
	if _, err := s.visibleMessage(ctx, *member, messageID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []ReactionView{}, nil
		}
		return nil, err
	}
	rows, err := s.populateReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	out := make([]ReactionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, ReactionView{
			ID:          r.ID,
			WorkspaceID: r.WorkspaceID,
			MessageID:   r.MessageID,
			MemberID:    r.MemberID,
			Value:       r.Value,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}
