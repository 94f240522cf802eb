package app

import (
	"context"
	"fmt"

	"github.com/ngochieu276/slack-clone/internal/rbac"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// currentMember returns the caller's membership in the workspace, or nil when
// the caller is anonymous or not a member. Queries use it to degrade to empty
// results.
func (s *Service) currentMember(ctx context.Context, workspaceID, userID string) (*store.Member, error) {
	if userID == "" || workspaceID == "" {
		return nil, nil
	}
	member, err := s.store.GetMemberByWorkspaceUser(ctx, workspaceID, userID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &member, nil
}

// requireMember is the mutation variant of currentMember: a missing identity or
// membership fails the call.
func (s *Service) requireMember(ctx context.Context, workspaceID, userID string) (store.Member, error) {
	if userID == "" {
		return store.Member{}, unauthenticated()
	}
	member, err := s.currentMember(ctx, workspaceID, userID)
	if err != nil {
		return store.Member{}, err
	}
	if member == nil {
		return store.Member{}, unauthorized("Unauthorized")
	}
	return *member, nil
}

func (s *Service) requireRole(ctx context.Context, workspaceID, userID string, action rbac.Action) (store.Member, error) {
	member, err := s.requireMember(ctx, workspaceID, userID)
	if err != nil {
		return store.Member{}, err
	}
	if !rbac.Can(rbac.Normalize(member.Role), action) {
		return store.Member{}, unauthorized("Insufficient role")
	}
	return member, nil
}

func (s *Service) requireAdmin(ctx context.Context, workspaceID, userID string) (store.Member, error) {
	return s.requireRole(ctx, workspaceID, userID, rbac.ActionAdmin)
}

// loadMember fetches a member by id and maps a missing row to NotFound.
func (s *Service) loadMember(ctx context.Context, memberID string) (store.Member, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if isNoRows(err) {
		return store.Member{}, notFound("Member")
	}
	if err != nil {
		return store.Member{}, err
	}
	return member, nil
}

func (s *Service) loadMessage(ctx context.Context, messageID string) (store.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if isNoRows(err) {
		return store.Message{}, notFound("Message")
	}
	if err != nil {
		return store.Message{}, err
	}
	return msg, nil
}
