package app

import (
	"context"
	"time"

	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

type ConversationView struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspaceId"`
	MemberOneID string      `json:"memberOneId"`
	MemberTwoID string      `json:"memberTwoId"`
	CreatedAt   time.Time   `json:"createdAt"`
	Other       *MemberView `json:"otherMember,omitempty"`
}

func (s *Service) conversationView(ctx context.Context, conv store.Conversation, viewerMemberID string) (ConversationView, error) {
	view := ConversationView{
		ID:          conv.ID,
		WorkspaceID: conv.WorkspaceID,
		MemberOneID: conv.MemberOneID,
		MemberTwoID: conv.MemberTwoID,
		CreatedAt:   conv.CreatedAt,
	}
	otherID, _ := conv.OtherMember(viewerMemberID)
	other, err := s.populateMember(ctx, otherID)
	if err != nil {
		return ConversationView{}, err
	}
	view.Other = other
	return view, nil
}

// CreateOrGetConversation returns the conversation between the caller and
// otherMemberID, creating it on first use.
func (s *Service) CreateOrGetConversation(ctx context.Context, session Session, workspaceID, otherMemberID string) (ConversationView, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return ConversationView{}, err
	}
	other, err := s.loadMember(ctx, otherMemberID)
	if err != nil {
		return ConversationView{}, err
	}
	if other.WorkspaceID != workspaceID {
		return ConversationView{}, notFound("Member")
	}

	conv, err := s.store.FindConversation(ctx, workspaceID, member.ID, other.ID)
	if err == nil {
		return s.conversationView(ctx, conv, member.ID)
	}
	if !isNoRows(err) {
		return ConversationView{}, err
	}

	conv = store.Conversation{
		ID:          util.NewID("conv"),
		WorkspaceID: workspaceID,
		MemberOneID: member.ID,
		MemberTwoID: other.ID,
		UserOneID:   member.UserID,
		UserTwoID:   other.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertConversation(ctx, conv); err != nil {
		return ConversationView{}, err
	}
	return s.conversationView(ctx, conv, member.ID)
}

func (s *Service) GetConversation(ctx context.Context, session Session, workspaceID, conversationID string) (*ConversationView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if conv.WorkspaceID != workspaceID || !conv.Includes(member.ID) {
		return nil, nil
	}
	view, err := s.conversationView(ctx, conv, member.ID)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) ListConversations(ctx context.Context, session Session, workspaceID string) ([]ConversationView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []ConversationView{}, nil
	}
	items, err := s.store.ListConversationsForMember(ctx, workspaceID, member.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(items))
	for _, item := range items {
		view, err := s.conversationView(ctx, item, member.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}
