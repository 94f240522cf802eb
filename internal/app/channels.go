package app

import (
	"context"
	"strings"

	"github.com/ngochieu276/slack-clone/internal/rbac"
	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

type ChannelView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
}

func channelView(c store.Channel) ChannelView {
	return ChannelView{ID: c.ID, Name: c.Name, WorkspaceID: c.WorkspaceID}
}

// normalizeChannelName lowercases the name and joins words with dashes.
func normalizeChannelName(raw string) (string, error) {
	name := strings.Join(strings.Fields(strings.ToLower(raw)), "-")
	return validateName("name", name, 3, 80)
}

func (s *Service) ListChannels(ctx context.Context, session Session, workspaceID string) ([]ChannelView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []ChannelView{}, nil
	}
	items, err := s.store.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelView, 0, len(items))
	for _, item := range items {
		out = append(out, channelView(item))
	}
	return out, nil
}

func (s *Service) GetChannel(ctx context.Context, session Session, workspaceID, channelID string) (*ChannelView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	c, err := s.store.GetChannel(ctx, channelID)
	if isNoRows(err) || (err == nil && c.WorkspaceID != workspaceID) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := channelView(c)
	return &view, nil
}

func (s *Service) CreateChannel(ctx context.Context, session Session, workspaceID, name string) (ChannelView, error) {
	member, err := s.requireRole(ctx, workspaceID, session.UserID, rbac.ActionModerate)
	if err != nil {
		return ChannelView{}, err
	}
	name, err = normalizeChannelName(name)
	if err != nil {
		return ChannelView{}, err
	}
	c := store.Channel{
		ID:          util.NewID("ch"),
		Name:        name,
		WorkspaceID: workspaceID,
		CreatedBy:   member.ID,
	}
	if err := s.store.InsertChannel(ctx, c); err != nil {
		return ChannelView{}, err
	}
	return channelView(c), nil
}

func (s *Service) loadChannel(ctx context.Context, workspaceID, channelID string) (store.Channel, error) {
	c, err := s.store.GetChannel(ctx, channelID)
	if isNoRows(err) || (err == nil && c.WorkspaceID != workspaceID) {
		return store.Channel{}, notFound("Channel")
	}
	if err != nil {
		return store.Channel{}, err
	}
	return c, nil
}

func (s *Service) UpdateChannel(ctx context.Context, session Session, workspaceID, channelID, name string) (ChannelView, error) {
	if _, err := s.requireRole(ctx, workspaceID, session.UserID, rbac.ActionModerate); err != nil {
		return ChannelView{}, err
	}
	c, err := s.loadChannel(ctx, workspaceID, channelID)
	if err != nil {
		return ChannelView{}, err
	}
	name, err = normalizeChannelName(name)
	if err != nil {
		return ChannelView{}, err
	}
	if err := s.store.UpdateChannelName(ctx, channelID, name); err != nil {
		return ChannelView{}, err
	}
	c.Name = name
	return channelView(c), nil
}

// RemoveChannel deletes the channel and every message posted in it.
func (s *Service) RemoveChannel(ctx context.Context, session Session, workspaceID, channelID string) error {
	if _, err := s.requireRole(ctx, workspaceID, session.UserID, rbac.ActionModerate); err != nil {
		return err
	}
	if _, err := s.loadChannel(ctx, workspaceID, channelID); err != nil {
		return err
	}
	removed, err := s.store.DeleteChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if s.search != nil && len(removed) > 0 {
		s.search.DeleteMessages(removed...)
	}
	return nil
}
