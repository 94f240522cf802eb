package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ngochieu276/slack-clone/internal/activity"
	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/store"
)

type NotificationQuery struct {
	ChannelID      string
	ConversationID string
	UnreadOnly     bool
}

type MarkReadInput struct {
	ChannelID      string `json:"channelId"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// activityTypes are the notification types that feed the activity view.
var activityTypes = []store.NotificationType{
	store.NotificationReply,
	store.NotificationReaction,
	store.NotificationMention,
}

func (s *Service) messageRef(ctx context.Context, messageID string) (*activity.MessageRef, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ref := &activity.MessageRef{
		ID:        msg.ID,
		Body:      msg.Body,
		MemberID:  msg.MemberID,
		CreatedAt: msg.CreatedAt,
	}
	if ref.Image, err = s.blobs.URL(ctx, msg.Image); err != nil {
		return nil, err
	}
	member, err := s.populateMember(ctx, msg.MemberID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		ref.Author = member.User
	}
	return ref, nil
}

// enrichItem joins a notification with its channel and sender. With full set
// it also loads the message, the thread root and the thread summary, unless
// the viewer is not a participant of the notification's conversation.
func (s *Service) enrichItem(ctx context.Context, viewer store.Member, n store.Notification, full bool) (activity.Item, error) {
	item := activity.NewItem(n)
	if n.ChannelID != "" {
		channel, err := s.store.GetChannel(ctx, n.ChannelID)
		switch {
		case err == nil:
			item.Channel = &activity.Channel{ID: channel.ID, Name: channel.Name}
		case !isNoRows(err):
			return activity.Item{}, err
		}
	}
	sender, err := s.populateUser(ctx, n.SenderID, userHint{MemberID: n.SenderMemberID, WorkspaceID: n.WorkspaceID})
	if err != nil {
		return activity.Item{}, err
	}
	item.Sender = sender
	if !full {
		return item, nil
	}
	if n.ConversationID != "" {
		visible, err := s.canSee(ctx, viewer, store.ConversationScope(n.ConversationID))
		if err != nil {
			return activity.Item{}, err
		}
		if !visible {
			return item, nil
		}
	}

	if n.MessageID != "" {
		if item.Message, err = s.messageRef(ctx, n.MessageID); err != nil {
			return activity.Item{}, err
		}
	}
	threadID := n.ParentMessageID
	if threadID != "" {
		if item.ParentMessage, err = s.messageRef(ctx, threadID); err != nil {
			return activity.Item{}, err
		}
	} else {
		threadID = n.MessageID
	}
	if item.Thread, err = s.populateThread(ctx, threadID); err != nil {
		return activity.Item{}, err
	}
	return item, nil
}

// enrichItems enriches notifications concurrently and keeps their order.
func (s *Service) enrichItems(ctx context.Context, viewer store.Member, rows []store.Notification, full bool) ([]activity.Item, error) {
	items := make([]activity.Item, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range rows {
		g.Go(func() error {
			item, err := s.enrichItem(gctx, viewer, n, full)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) ListNotifications(ctx context.Context, session Session, workspaceID string, q NotificationQuery) ([]activity.Item, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []activity.Item{}, nil
	}
	rows, err := s.store.ListNotifications(ctx, store.NotificationFilter{
		UserID:         session.UserID,
		WorkspaceID:    workspaceID,
		ChannelID:      q.ChannelID,
		ConversationID: q.ConversationID,
		UnreadOnly:     q.UnreadOnly,
	})
	if err != nil {
		return nil, err
	}
	return s.enrichItems(ctx, *member, rows, false)
}

// MarkAsRead marks the caller's unread notifications about the given channel,
// conversation or message as read and returns their ids. With no subject set
// nothing changes.
func (s *Service) MarkAsRead(ctx context.Context, session Session, workspaceID string, in MarkReadInput) ([]string, error) {
	if _, err := s.requireMember(ctx, workspaceID, session.UserID); err != nil {
		return nil, err
	}
	filter := store.MarkReadFilter{
		UserID:         session.UserID,
		WorkspaceID:    workspaceID,
		ChannelID:      in.ChannelID,
		ConversationID: in.ConversationID,
		MessageID:      in.MessageID,
	}
	if filter.Empty() {
		return []string{}, nil
	}
	ids, err := s.store.MarkNotificationsRead(ctx, filter)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Activities returns the caller's grouped reply, reaction and mention feed.
func (s *Service) Activities(ctx context.Context, session Session, workspaceID string, unreadOnly bool) ([]activity.Group, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []activity.Group{}, nil
	}
	rows, err := s.store.ListNotifications(ctx, store.NotificationFilter{
		UserID:      session.UserID,
		WorkspaceID: workspaceID,
		Types:       activityTypes,
		UnreadOnly:  unreadOnly,
	})
	if err != nil {
		return nil, err
	}
	items, err := s.enrichItems(ctx, *member, rows, true)
	if err != nil {
		return nil, err
	}
	return activity.Feed(items), nil
}

// DirectMessages returns the caller's direct-message inbox, one group per
// conversation.
func (s *Service) DirectMessages(ctx context.Context, session Session, workspaceID string, unreadOnly bool) ([]activity.DirectGroup, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return []activity.DirectGroup{}, nil
	}
	rows, err := s.store.ListDirectNotifications(ctx, workspaceID, session.UserID, unreadOnly)
	if err != nil {
		return nil, err
	}
	items, err := s.enrichItems(ctx, *member, rows, false)
	if err != nil {
		return nil, err
	}

	in := activity.DirectInput{
		Viewer:        activity.Viewer{UserID: session.UserID, MemberID: member.ID},
		Items:         items,
		Conversations: make(map[string]store.Conversation),
		Profiles:      make(map[string]profile.Profile),
	}
	for _, item := range items {
		if _, ok := in.Conversations[item.ConversationID]; ok || item.ConversationID == "" {
			continue
		}
		conv, err := s.store.GetConversation(ctx, item.ConversationID)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		in.Conversations[conv.ID] = conv
		otherMemberID, otherUserID := conv.OtherMember(member.ID)
		if _, ok := in.Profiles[otherUserID]; ok {
			continue
		}
		p, err := s.populateUser(ctx, otherUserID, userHint{MemberID: otherMemberID})
		if err != nil {
			return nil, err
		}
		if p != nil {
			in.Profiles[otherUserID] = *p
		}
	}
	for _, item := range items {
		other := item.UserID
		if other == session.UserID {
			other = item.SenderID
		}
		if _, ok := in.Profiles[other]; ok || other == "" {
			continue
		}
		p, err := s.populateUser(ctx, other, userHint{WorkspaceID: workspaceID})
		if err != nil {
			return nil, err
		}
		if p != nil {
			in.Profiles[other] = *p
		}
	}
	return activity.GroupDirect(in), nil
}

func (s *Service) UnreadCount(ctx context.Context, session Session, workspaceID string) (int, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return 0, err
	}
	return s.store.CountUnread(ctx, workspaceID, session.UserID)
}
