package app

import (
	"context"
	"strings"
	"time"

	"github.com/ngochieu276/slack-clone/internal/blob"
	"github.com/ngochieu276/slack-clone/internal/store"
)

type PreferenceView struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	MemberID      string    `json:"memberId"`
	WorkspaceID   string    `json:"workspaceId"`
	FullName      string    `json:"fullName"`
	DisplayName   string    `json:"displayName"`
	Title         string    `json:"title"`
	Pronunciation string    `json:"pronunciation"`
	TimeZone      string    `json:"timeZone"`
	Image         string    `json:"image,omitempty"`
	Navigation    []string  `json:"navigation"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PreferenceInput struct {
	FullName      string `json:"fullName"`
	DisplayName   string `json:"displayName"`
	Title         string `json:"title"`
	Pronunciation string `json:"pronunciation"`
	TimeZone      string `json:"timeZone"`
}

// AvatarInput sets the avatar to the uploaded blob Image, or back to the
// default avatar when Remove is set.
type AvatarInput struct {
	Image  string `json:"image"`
	Remove bool   `json:"remove"`
}

func (s *Service) preferenceView(ctx context.Context, pref store.MemberPreference) (*PreferenceView, error) {
	image, err := s.blobs.URL(ctx, pref.Image)
	if err != nil {
		return nil, err
	}
	nav := pref.Navigation
	if nav == nil {
		nav = []string{}
	}
	return &PreferenceView{
		ID:            pref.ID,
		UserID:        pref.UserID,
		MemberID:      pref.MemberID,
		WorkspaceID:   pref.WorkspaceID,
		FullName:      pref.FullName,
		DisplayName:   pref.DisplayName,
		Title:         pref.Title,
		Pronunciation: pref.Pronunciation,
		TimeZone:      pref.TimeZone,
		Image:         image,
		Navigation:    nav,
		CreatedAt:     pref.CreatedAt,
	}, nil
}

// GetPreference returns the caller's own preference for memberID. Other users'
// preferences are never visible.
func (s *Service) GetPreference(ctx context.Context, session Session, workspaceID, memberID string) (*PreferenceView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	pref, err := s.store.GetPreferenceByMember(ctx, memberID, session.UserID)
	if isNoRows(err) || (err == nil && pref.WorkspaceID != workspaceID) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.preferenceView(ctx, pref)
}

// ownPreference loads the caller's preference for memberID or fails.
func (s *Service) ownPreference(ctx context.Context, session Session, workspaceID, memberID string) (store.MemberPreference, error) {
	if _, err := s.requireMember(ctx, workspaceID, session.UserID); err != nil {
		return store.MemberPreference{}, err
	}
	pref, err := s.store.GetPreferenceByMember(ctx, memberID, session.UserID)
	if isNoRows(err) || (err == nil && pref.WorkspaceID != workspaceID) {
		return store.MemberPreference{}, notFound("Preference")
	}
	if err != nil {
		return store.MemberPreference{}, err
	}
	return pref, nil
}

func (s *Service) UpdatePreference(ctx context.Context, session Session, workspaceID, memberID string, in PreferenceInput) (*PreferenceView, error) {
	pref, err := s.ownPreference(ctx, session, workspaceID, memberID)
	if err != nil {
		return nil, err
	}
	profile := store.PreferenceProfile{
		FullName:      strings.TrimSpace(in.FullName),
		DisplayName:   strings.TrimSpace(in.DisplayName),
		Title:         strings.TrimSpace(in.Title),
		Pronunciation: strings.TrimSpace(in.Pronunciation),
		TimeZone:      strings.TrimSpace(in.TimeZone),
	}
	if len(profile.FullName) > 80 || len(profile.DisplayName) > 80 {
		return nil, invalid("names must be at most 80 characters", nil)
	}
	if err := s.store.UpdatePreferenceProfile(ctx, pref.ID, profile); err != nil {
		return nil, err
	}
	pref.FullName = profile.FullName
	pref.DisplayName = profile.DisplayName
	pref.Title = profile.Title
	pref.Pronunciation = profile.Pronunciation
	pref.TimeZone = profile.TimeZone
	return s.preferenceView(ctx, pref)
}

func (s *Service) UpdateAvatar(ctx context.Context, session Session, workspaceID, memberID string, in AvatarInput) (*PreferenceView, error) {
	pref, err := s.ownPreference(ctx, session, workspaceID, memberID)
	if err != nil {
		return nil, err
	}
	image := strings.TrimSpace(in.Image)
	if in.Remove {
		image = blob.DefaultAvatarID
	}
	if image == "" {
		return nil, invalid("image is required", map[string]any{"field": "image"})
	}
	if err := s.store.UpdatePreferenceImage(ctx, pref.ID, image); err != nil {
		return nil, err
	}
	pref.Image = image
	return s.preferenceView(ctx, pref)
}

// UpdateNavigation replaces the sidebar order of the caller in the workspace.
func (s *Service) UpdateNavigation(ctx context.Context, session Session, workspaceID string, navigation []string) (*PreferenceView, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	pref, err := s.ownPreference(ctx, session, workspaceID, member.ID)
	if err != nil {
		return nil, err
	}
	if navigation == nil {
		navigation = []string{}
	}
	if err := s.store.UpdatePreferenceNavigation(ctx, pref.ID, navigation); err != nil {
		return nil, err
	}
	pref.Navigation = navigation
	return s.preferenceView(ctx, pref)
}
