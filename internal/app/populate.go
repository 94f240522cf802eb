package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ngochieu276/slack-clone/internal/activity"
	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/reaction"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// userHint tells populateUser which preference row applies. MemberID wins over
// WorkspaceID.
type userHint struct {
	MemberID    string
	WorkspaceID string
}

type MemberView struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	WorkspaceID string           `json:"workspaceId"`
	Role        string           `json:"role"`
	OnlineAt    *time.Time       `json:"onlineAt,omitempty"`
	Online      bool             `json:"online"`
	CreatedAt   time.Time        `json:"createdAt"`
	User        *profile.Profile `json:"user,omitempty"`
}

type MessageView struct {
	ID               string              `json:"id"`
	Body             string              `json:"body"`
	Image            string              `json:"image,omitempty"`
	MemberID         string              `json:"memberId"`
	WorkspaceID      string              `json:"workspaceId"`
	ChannelID        string              `json:"channelId,omitempty"`
	ConversationID   string              `json:"conversationId,omitempty"`
	ParentMessageID  string              `json:"parentMessageId,omitempty"`
	ForwardMessageID string              `json:"forwardMessageId,omitempty"`
	UpdatedAt        *time.Time          `json:"updatedAt,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	Member           *MemberView         `json:"member,omitempty"`
	User             *profile.Profile    `json:"user,omitempty"`
	Reactions        []reaction.Summary  `json:"reactions"`
	Thread           activity.ThreadInfo `json:"thread"`
	Forwarded        *MessageView        `json:"forwardedMessage,omitempty"`
}

// populateUser merges a user with the preference selected by hint. It returns
// nil when the user does not exist.
func (s *Service) populateUser(ctx context.Context, userID string, hint userHint) (*profile.Profile, error) {
	if userID == "" {
		return nil, nil
	}
	user, err := s.store.GetUser(ctx, userID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	var pref *store.MemberPreference
	if hint.MemberID != "" || hint.WorkspaceID != "" {
		var found store.MemberPreference
		if hint.MemberID != "" {
			found, err = s.store.GetPreferenceByMember(ctx, hint.MemberID, userID)
		} else {
			found, err = s.store.GetPreferenceByUserWorkspace(ctx, userID, hint.WorkspaceID)
		}
		switch {
		case err == nil:
			pref = &found
		case !isNoRows(err):
			return nil, fmt.Errorf("load preference: %w", err)
		}
	}

	p := profile.Build(user, pref)
	if p.MemberID == "" {
		p.MemberID = hint.MemberID
	}
	p.Image, err = s.blobs.URL(ctx, p.ImageID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// populateMember loads a member with its user profile. It returns nil when the
// member does not exist.
func (s *Service) populateMember(ctx context.Context, memberID string) (*MemberView, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	return s.memberView(ctx, member)
}

func (s *Service) memberView(ctx context.Context, member store.Member) (*MemberView, error) {
	user, err := s.populateUser(ctx, member.UserID, userHint{MemberID: member.ID})
	if err != nil {
		return nil, err
	}
	view := &MemberView{
		ID:          member.ID,
		UserID:      member.UserID,
		WorkspaceID: member.WorkspaceID,
		Role:        member.Role,
		OnlineAt:    member.OnlineAt,
		CreatedAt:   member.CreatedAt,
		User:        user,
	}
	if s.sessions != nil {
		_, online, err := s.sessions.LastSeen(ctx, member.WorkspaceID, member.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("member_id", member.ID).Msg("presence lookup failed")
		}
		view.Online = online
	}
	return view, nil
}

func (s *Service) populateReactions(ctx context.Context, messageID string) ([]store.Reaction, error) {
	rows, err := s.store.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// populateThread summarises the replies to messageID. Without replies only
// Count is set.
func (s *Service) populateThread(ctx context.Context, messageID string) (activity.ThreadInfo, error) {
	if messageID == "" {
		return activity.ThreadInfo{}, nil
	}
	summary, err := s.store.ThreadSummary(ctx, messageID)
	if err != nil {
		return activity.ThreadInfo{}, err
	}
	info := activity.ThreadInfo{Count: summary.Count}
	if summary.Count == 0 || summary.LastReply == nil {
		return info, nil
	}
	last := summary.LastReply
	ts := last.CreatedAt
	info.TimeStamp = &ts

	member, err := s.store.GetMember(ctx, last.MemberID)
	if isNoRows(err) {
		return info, nil
	}
	if err != nil {
		return activity.ThreadInfo{}, fmt.Errorf("load last replier: %w", err)
	}
	user, err := s.populateUser(ctx, member.UserID, userHint{MemberID: member.ID})
	if err != nil {
		return activity.ThreadInfo{}, err
	}
	if user != nil {
		info.Name = user.DisplayName
		info.Image = user.Image
	}
	return info, nil
}

// populateMessage joins a message with its author, reactions, thread summary
// and forwarded message. It returns nil when the author no longer exists.
func (s *Service) populateMessage(ctx context.Context, msg store.Message, withForward bool) (*MessageView, error) {
	view := &MessageView{
		ID:               msg.ID,
		Body:             msg.Body,
		MemberID:         msg.MemberID,
		WorkspaceID:      msg.WorkspaceID,
		ChannelID:        msg.Scope.ChannelID(),
		ConversationID:   msg.Scope.ConversationID(),
		ParentMessageID:  msg.Scope.ParentMessageID(),
		ForwardMessageID: msg.ForwardMessageID,
		UpdatedAt:        msg.UpdatedAt,
		CreatedAt:        msg.CreatedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		member, err := s.populateMember(gctx, msg.MemberID)
		if err != nil {
			return err
		}
		view.Member = member
		if member != nil {
			view.User = member.User
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.populateReactions(gctx, msg.ID)
		if err != nil {
			return err
		}
		view.Reactions = reaction.Summarize(rows)
		return nil
	})
	g.Go(func() error {
		thread, err := s.populateThread(gctx, msg.ID)
		if err != nil {
			return err
		}
		view.Thread = thread
		return nil
	})
	g.Go(func() error {
		url, err := s.blobs.URL(gctx, msg.Image)
		if err != nil {
			return err
		}
		view.Image = url
		return nil
	})
	if withForward && msg.ForwardMessageID != "" {
		g.Go(func() error {
			forwarded, err := s.store.GetMessage(gctx, msg.ForwardMessageID)
			if isNoRows(err) {
				return nil
			}
			if err != nil {
				return err
			}
			view.Forwarded, err = s.populateMessage(gctx, forwarded, false)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if view.Member == nil || view.User == nil {
		return nil, nil
	}
	return view, nil
}

// populateMessagesAligned populates msgs concurrently. The result is index
// aligned with msgs and holds nil where the author is gone.
func (s *Service) populateMessagesAligned(ctx context.Context, msgs []store.Message) ([]*MessageView, error) {
	views := make([]*MessageView, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, msg := range msgs {
		g.Go(func() error {
			view, err := s.populateMessage(gctx, msg, true)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// populateMessages populates msgs and keeps their order. Messages whose
// author is gone are dropped.
func (s *Service) populateMessages(ctx context.Context, msgs []store.Message) ([]MessageView, error) {
	views, err := s.populateMessagesAligned(ctx, msgs)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, 0, len(views))
	for _, view := range views {
		if view != nil {
			out = append(out, *view)
		}
	}
	return out, nil
}
