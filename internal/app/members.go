package app

import (
	"context"
	"errors"

	"github.com/ngochieu276/slack-clone/internal/metrics"
	"github.com/ngochieu276/slack-clone/internal/rbac"
	"github.com/ngochieu276/slack-clone/internal/store"
)

func (s *Service) ListMembers(ctx context.Context, session Session, workspaceID string) ([]MemberView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []MemberView{}, nil
	}
	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		view, err := s.memberView(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// GetMember returns the member when the caller belongs to the same workspace.
func (s *Service) GetMember(ctx context.Context, session Session, memberID string) (*MemberView, error) {
	if !session.Authenticated() {
		return nil, nil
	}
	target, err := s.store.GetMember(ctx, memberID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	caller, err := s.currentMember(ctx, target.WorkspaceID, session.UserID)
	if err != nil || caller == nil {
		return nil, err
	}
	return s.memberView(ctx, target)
}

func (s *Service) CurrentMember(ctx context.Context, session Session, workspaceID string) (*MemberView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	return s.memberView(ctx, *member)
}

// UpdateMemberRole lets an admin change any member's role, their own included.
func (s *Service) UpdateMemberRole(ctx context.Context, session Session, memberID, role string) (string, error) {
	if !session.Authenticated() {
		return "", unauthenticated()
	}
	if !rbac.Valid(role) {
		return "", invalid("role must be admin or members", map[string]any{"field": "role"})
	}
	target, err := s.loadMember(ctx, memberID)
	if err != nil {
		return "", err
	}
	if _, err := s.requireAdmin(ctx, target.WorkspaceID, session.UserID); err != nil {
		return "", err
	}
	if err := s.store.UpdateMemberRole(ctx, memberID, role); err != nil {
		return "", err
	}
	return memberID, nil
}

// RemoveMember deletes a member together with its messages, reactions and
// conversations. Admins cannot be removed, and a member cannot remove itself.
func (s *Service) RemoveMember(ctx context.Context, session Session, memberID string) (store.CascadeResult, error) {
	if !session.Authenticated() {
		return store.CascadeResult{}, unauthenticated()
	}
	target, err := s.loadMember(ctx, memberID)
	if err != nil {
		return store.CascadeResult{}, err
	}
	caller, err := s.requireMember(ctx, target.WorkspaceID, session.UserID)
	if err != nil {
		return store.CascadeResult{}, err
	}
	if rbac.Normalize(target.Role) == rbac.RoleAdmin {
		return store.CascadeResult{}, invariantViolation("Admin cannot be removed")
	}
	if caller.ID == target.ID {
		return store.CascadeResult{}, invariantViolation("Members cannot remove themselves")
	}
	if !rbac.Can(rbac.Normalize(caller.Role), rbac.ActionAdmin) {
		return store.CascadeResult{}, unauthorized("Insufficient role")
	}

	result, err := s.store.DeleteMemberCascade(ctx, memberID)
	metrics.MemberCascades.WithLabelValues(metrics.StatusLabel(err)).Inc()
	if err != nil {
		if errors.Is(err, store.ErrCascadeAborted) {
			s.log.Error().Err(err).Str("member_id", memberID).Msg("member cascade rolled back")
		}
		return store.CascadeResult{}, err
	}
	if s.search != nil {
		s.search.DeleteMessages(result.RemovedMessageIDs()...)
	}
	s.log.Info().
		Str("member_id", memberID).
		Int("messages", len(result.MessageIDs)).
		Int("dependent_messages", len(result.DependentMessageIDs)).
		Int("reactions", len(result.ReactionIDs)).
		Int("conversations", len(result.ConversationIDs)).
		Msg("member removed")
	return result, nil
}

// UpdateOnlineStatus records a heartbeat for the caller's own member.
func (s *Service) UpdateOnlineStatus(ctx context.Context, session Session, memberID string) error {
	if !session.Authenticated() {
		return unauthenticated()
	}
	member, err := s.loadMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.UserID != session.UserID {
		return unauthorized("Unauthorized")
	}
	now := s.now()
	if s.sessions != nil {
		if err := s.sessions.TouchPresence(ctx, member.WorkspaceID, member.ID, now); err != nil {
			return err
		}
	}
	return s.store.TouchMemberOnline(ctx, member.ID, now)
}
