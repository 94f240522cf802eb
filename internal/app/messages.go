package app

import (
	"context"
	"errors"
	"strings"

	"github.com/ngochieu276/slack-clone/internal/search"
	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

type CreateMessageInput struct {
	Body             string `json:"body"`
	Image            string `json:"image"`
	ChannelID        string `json:"channelId"`
	ConversationID   string `json:"conversationId"`
	ParentMessageID  string `json:"parentMessageId"`
	ForwardMessageID string `json:"forwardMessageId"`
}

type ListMessagesInput struct {
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	Cursor          string
	Limit           int
}

type MessagePage struct {
	Page         []MessageView `json:"page"`
	ContinueFrom string        `json:"continueCursor"`
	IsDone       bool          `json:"isDone"`
}

func emptyPage() MessagePage {
	return MessagePage{Page: []MessageView{}, IsDone: true}
}

func messageRecord(msg store.Message) search.MessageRecord {
	return search.MessageRecord{
		ID:              msg.ID,
		Body:            msg.Body,
		WorkspaceID:     msg.WorkspaceID,
		ChannelID:       msg.Scope.ChannelID(),
		MemberID:        msg.MemberID,
		ParentMessageID: msg.Scope.ParentMessageID(),
		CreatedAt:       msg.CreatedAt.UnixMilli(),
	}
}

// canSee reports whether member may read messages in scope. Channels are open
// to every workspace member; conversations only to their two participants.
func (s *Service) canSee(ctx context.Context, member store.Member, scope store.MessageScope) (bool, error) {
	if scope.ConversationID() == "" {
		return true, nil
	}
	conv, err := s.store.GetConversation(ctx, scope.ConversationID())
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conv.WorkspaceID == member.WorkspaceID && conv.Includes(member.ID), nil
}

// resolveScope turns the request's target fields into a scope. A reply to a
// reply attaches to the root of the thread.
func (s *Service) resolveScope(ctx context.Context, member store.Member, channelID, conversationID, parentID string) (store.MessageScope, error) {
	if parentID != "" {
		parent, err := s.loadMessage(ctx, parentID)
		if err != nil {
			return store.MessageScope{}, err
		}
		if parent.WorkspaceID != member.WorkspaceID {
			return store.MessageScope{}, notFound("Message")
		}
		rootID := parent.ID
		if parent.Scope.IsThread() {
			rootID = parent.Scope.ParentMessageID()
		}
		scope := store.ThreadScope(rootID, parent.Scope.Root())
		ok, err := s.canSee(ctx, member, scope)
		if err != nil {
			return store.MessageScope{}, err
		}
		if !ok {
			return store.MessageScope{}, unauthorized("Unauthorized")
		}
		return scope, nil
	}

	if (channelID == "") == (conversationID == "") {
		return store.MessageScope{}, invalid("exactly one of channelId or conversationId is required", nil)
	}
	if channelID != "" {
		if _, err := s.loadChannel(ctx, member.WorkspaceID, channelID); err != nil {
			return store.MessageScope{}, err
		}
		return store.ChannelScope(channelID), nil
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if isNoRows(err) || (err == nil && conv.WorkspaceID != member.WorkspaceID) {
		return store.MessageScope{}, notFound("Conversation")
	}
	if err != nil {
		return store.MessageScope{}, err
	}
	if !conv.Includes(member.ID) {
		return store.MessageScope{}, unauthorized("Unauthorized")
	}
	return store.ConversationScope(conversationID), nil
}

func (s *Service) ListMessages(ctx context.Context, session Session, workspaceID string, in ListMessagesInput) (MessagePage, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return MessagePage{}, err
	}
	if member == nil {
		return emptyPage(), nil
	}

	var scope store.MessageScope
	switch {
	case in.ParentMessageID != "":
		parent, err := s.store.GetMessage(ctx, in.ParentMessageID)
		if isNoRows(err) {
			return emptyPage(), nil
		}
		if err != nil {
			return MessagePage{}, err
		}
		if parent.WorkspaceID != workspaceID {
			return emptyPage(), nil
		}
		scope = store.ThreadScope(parent.ID, parent.Scope.Root())
	case in.ChannelID != "" && in.ConversationID == "":
		channel, err := s.store.GetChannel(ctx, in.ChannelID)
		if isNoRows(err) || (err == nil && channel.WorkspaceID != workspaceID) {
			return emptyPage(), nil
		}
		if err != nil {
			return MessagePage{}, err
		}
		scope = store.ChannelScope(in.ChannelID)
	case in.ConversationID != "" && in.ChannelID == "":
		scope = store.ConversationScope(in.ConversationID)
	default:
		return MessagePage{}, invalid("exactly one of channelId, conversationId or parentMessageId is required", nil)
	}

	ok, err := s.canSee(ctx, *member, scope)
	if err != nil {
		return MessagePage{}, err
	}
	if !ok {
		return emptyPage(), nil
	}

	page, err := s.store.ListMessages(ctx, scope, in.Cursor, s.pageSize(in.Limit))
	if errors.Is(err, store.ErrInvalidCursor) {
		return MessagePage{}, invalid("Invalid cursor", map[string]any{"field": "cursor"})
	}
	if err != nil {
		return MessagePage{}, err
	}
	views, err := s.populateMessages(ctx, page.Page)
	if err != nil {
		return MessagePage{}, err
	}
	return MessagePage{Page: views, ContinueFrom: page.ContinueFrom, IsDone: page.IsDone}, nil
}

func (s *Service) GetMessage(ctx context.Context, session Session, workspaceID, messageID string) (*MessageView, error) {
	member, err := s.currentMember(ctx, workspaceID, session.UserID)
	if err != nil || member == nil {
		return nil, err
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if msg.WorkspaceID != workspaceID {
		return nil, nil
	}
	ok, err := s.canSee(ctx, *member, msg.Scope)
	if err != nil || !ok {
		return nil, err
	}
	return s.populateMessage(ctx, msg, true)
}

// CreateMessage stores the message, notifies its recipients and indexes it
// for search.
func (s *Service) CreateMessage(ctx context.Context, session Session, workspaceID string, in CreateMessageInput) (*MessageView, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(in.Body)
	if body == "" && in.Image == "" && in.ForwardMessageID == "" {
		return nil, invalid("body is required", map[string]any{"field": "body"})
	}
	scope, err := s.resolveScope(ctx, member, in.ChannelID, in.ConversationID, in.ParentMessageID)
	if err != nil {
		return nil, err
	}
	if in.ForwardMessageID != "" {
		forwarded, err := s.loadMessage(ctx, in.ForwardMessageID)
		if err != nil {
			return nil, err
		}
		ok, err := s.canSee(ctx, member, forwarded.Scope)
		if err != nil {
			return nil, err
		}
		if forwarded.WorkspaceID != workspaceID || !ok {
			return nil, notFound("Message")
		}
	}

	msg := store.Message{
		ID:               util.NewID("msg"),
		Body:             body,
		Image:            in.Image,
		MemberID:         member.ID,
		WorkspaceID:      workspaceID,
		Scope:            scope,
		ForwardMessageID: in.ForwardMessageID,
		CreatedAt:        s.now(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.fanOut(ctx, member, msg); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexMessage(messageRecord(msg))
	}

	s.log.Info().Str("message_id", msg.ID).Str("scope", scope.String()).Msg("message created")
	return s.populateMessage(ctx, msg, true)
}

// authoredMessage loads a message the caller wrote.
func (s *Service) authoredMessage(ctx context.Context, session Session, workspaceID, messageID string) (store.Message, error) {
	member, err := s.requireMember(ctx, workspaceID, session.UserID)
	if err != nil {
		return store.Message{}, err
	}
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return store.Message{}, err
	}
	if msg.WorkspaceID != workspaceID {
		return store.Message{}, notFound("Message")
	}
	if msg.MemberID != member.ID {
		return store.Message{}, unauthorized("Unauthorized")
	}
	return msg, nil
}

func (s *Service) UpdateMessage(ctx context.Context, session Session, workspaceID, messageID, body string) (*MessageView, error) {
	msg, err := s.authoredMessage(ctx, session, workspaceID, messageID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("body is required", map[string]any{"field": "body"})
	}
	now := s.now()
	if err := s.store.UpdateMessageBody(ctx, messageID, body, now); err != nil {
		return nil, err
	}
	msg.Body = body
	msg.UpdatedAt = &now
	if s.search != nil {
		s.search.IndexMessage(messageRecord(msg))
	}
	return s.populateMessage(ctx, msg, true)
}

func (s *Service) RemoveMessage(ctx context.Context, session Session, workspaceID, messageID string) error {
	if _, err := s.authoredMessage(ctx, session, workspaceID, messageID); err != nil {
		return err
	}
	removed, err := s.store.DeleteMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if s.search != nil && len(removed) > 0 {
		s.search.DeleteMessages(removed...)
	}
	return nil
}
