package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/ngochieu276/slack-clone/internal/rbac"
	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

const joinCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type WorkspaceView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	JoinCode string `json:"joinCode,omitempty"`
	Role     string `json:"role,omitempty"`
}

// WorkspaceInfo is what a join page may learn about a workspace.
type WorkspaceInfo struct {
	Name     string `json:"name"`
	IsMember bool   `json:"isMember"`
}

func workspaceView(w store.Workspace, member *store.Member) WorkspaceView {
	view := WorkspaceView{ID: w.ID, Name: w.Name, UserID: w.UserID}
	if member != nil {
		view.Role = member.Role
		view.JoinCode = w.JoinCode
	}
	return view
}

func generateJoinCode() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code)
}

func validateName(field, value string, min, max int) (string, error) {
	name := strings.TrimSpace(value)
	if len(name) < min || len(name) > max {
		return "", invalid(fmt.Sprintf("%s must be between %d and %d characters", field, min, max), map[string]any{"field": field})
	}
	return name, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, session Session) ([]WorkspaceView, error) {
	if !session.Authenticated() {
		return []WorkspaceView{}, nil
	}
	items, err := s.store.ListWorkspacesForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]WorkspaceView, 0, len(items))
	for _, item := range items {
		out = append(out, WorkspaceView{ID: item.ID, Name: item.Name, UserID: item.UserID})
	}
	return out, nil
}

func (s *Service) GetWorkspace(ctx context.Context, session Session, workspaceID string) (*WorkspaceView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := workspaceView(w, member)
	return &view, nil
}

func (s *Service) GetWorkspaceInfo(ctx context.Context, session Session, workspaceID string) (*WorkspaceInfo, error) {
	if !session.Authenticated() {
		return nil, nil
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	return &WorkspaceInfo{Name: w.Name, IsMember: member != nil}, nil
}

// CreateWorkspace creates the workspace, makes the caller its admin and opens
// a general channel.
func (s *Service) CreateWorkspace(ctx context.Context, session Session, name string) (WorkspaceView, error) {
	if !session.Authenticated() {
		return WorkspaceView{}, unauthenticated()
	}
	name, err := validateName("name", name, 3, 80)
	if err != nil {
		return WorkspaceView{}, err
	}

	w := store.Workspace{
		ID:       util.NewID("ws"),
		Name:     name,
		UserID:   session.UserID,
		JoinCode: generateJoinCode(),
	}
	if err := s.store.InsertWorkspace(ctx, w); err != nil {
		return WorkspaceView{}, err
	}
	member, err := s.addMember(ctx, w.ID, session.UserID, rbac.RoleAdmin)
	if err != nil {
		return WorkspaceView{}, err
	}
	if err := s.store.InsertChannel(ctx, store.Channel{
		ID:          util.NewID("ch"),
		Name:        "general",
		WorkspaceID: w.ID,
		CreatedBy:   member.ID,
	}); err != nil {
		return WorkspaceView{}, err
	}

	s.log.Info().Str("workspace_id", w.ID).Str("user_id", session.UserID).Msg("workspace created")
	return workspaceView(w, &member), nil
}

// addMember inserts the membership and the member's preference row.
func (s *Service) addMember(ctx context.Context, workspaceID, userID string, role rbac.Role) (store.Member, error) {
	member := store.Member{
		ID:          util.NewID("mem"),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        string(role),
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertMember(ctx, member); err != nil {
		return store.Member{}, err
	}
	if err := s.store.InsertPreference(ctx, store.MemberPreference{
		ID:          util.NewID("pref"),
		UserID:      userID,
		MemberID:    member.ID,
		WorkspaceID: workspaceID,
		Navigation:  []string{},
	}); err != nil {
		return store.Member{}, err
	}
	return member, nil
}

func (s *Service) UpdateWorkspace(ctx context.Context, session Session, workspaceID, name string) (WorkspaceView, error) {
	member, err := s.requireAdmin(ctx, workspaceID, session.UserID)
	if err != nil {
		return WorkspaceView{}, err
	}
	name, err = validateName("name", name, 3, 80)
	if err != nil {
		return WorkspaceView{}, err
	}
	if err := s.store.UpdateWorkspaceName(ctx, workspaceID, name); err != nil {
		return WorkspaceView{}, err
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return WorkspaceView{}, err
	}
	return workspaceView(w, &member), nil
}

// RemoveWorkspace deletes the workspace; everything inside it goes with it.
func (s *Service) RemoveWorkspace(ctx context.Context, session Session, workspaceID string) error {
	if _, err := s.requireAdmin(ctx, workspaceID, session.UserID); err != nil {
		return err
	}
	if err := s.store.DeleteWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	s.log.Info().Str("workspace_id", workspaceID).Str("user_id", session.UserID).Msg("workspace removed")
	return nil
}

func (s *Service) NewJoinCode(ctx context.Context, session Session, workspaceID string) (WorkspaceView, error) {
	member, err := s.requireAdmin(ctx, workspaceID, session.UserID)
	if err != nil {
		return WorkspaceView{}, err
	}
	if err := s.store.UpdateJoinCode(ctx, workspaceID, generateJoinCode()); err != nil {
		return WorkspaceView{}, err
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return WorkspaceView{}, err
	}
	return workspaceView(w, &member), nil
}

func (s *Service) JoinWorkspace(ctx context.Context, session Session, joinCode string) (WorkspaceView, error) {
	if !session.Authenticated() {
		return WorkspaceView{}, unauthenticated()
	}
	code := strings.ToLower(strings.TrimSpace(joinCode))
	if code == "" {
		return WorkspaceView{}, invalid("joinCode is required", map[string]any{"field": "joinCode"})
	}
	w, err := s.store.GetWorkspaceByJoinCode(ctx, code)
	if isNoRows(err) {
		return WorkspaceView{}, invalid("Invalid join code", map[string]any{"field": "joinCode"})
	}
	if err != nil {
		return WorkspaceView{}, err
	}
	existing, err := s.currentMember(ctx, w.ID, session.UserID)
	if err != nil {
		return WorkspaceView{}, err
	}
	if existing != nil {
		return WorkspaceView{}, invariantViolation("Already a member of this workspace")
	}
	member, err := s.addMember(ctx, w.ID, session.UserID, rbac.RoleMember)
	if err != nil {
		return WorkspaceView{}, err
	}
	return workspaceView(w, &member), nil
}
