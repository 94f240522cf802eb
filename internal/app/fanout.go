package app

import (
	"context"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/ngochieu276/slack-clone/internal/metrics"
	"github.com/ngochieu276/slack-clone/internal/store"
	"github.com/ngochieu276/slack-clone/internal/util"
)

// mentionPattern matches a member reference written as <@memberId>.
var mentionPattern = regexp.MustCompile(`<@([A-Za-z0-9_\-]+)>`)

type recipient struct {
	UserID   string
	MemberID string
	Type     store.NotificationType
}

// mentionedMemberIDs returns the distinct member ids referenced in body in
// order of first appearance.
func mentionedMemberIDs(body string) []string {
	matches := mentionPattern.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// messageRecipients decides who hears about msg. A member appears at most once
// and mentions take precedence over replies and direct messages. Mentioned
// members who cannot read the conversation are skipped.
func (s *Service) messageRecipients(ctx context.Context, sender store.Member, msg store.Message) ([]recipient, error) {
	seen := map[string]struct{}{sender.ID: {}}
	out := make([]recipient, 0)
	add := func(memberID, userID string, typ store.NotificationType) {
		if _, ok := seen[memberID]; ok || memberID == "" || userID == "" {
			return
		}
		seen[memberID] = struct{}{}
		out = append(out, recipient{UserID: userID, MemberID: memberID, Type: typ})
	}

	for _, id := range mentionedMemberIDs(msg.Body) {
		member, err := s.store.GetMember(ctx, id)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if member.WorkspaceID != msg.WorkspaceID {
			continue
		}
		visible, err := s.canSee(ctx, member, msg.Scope)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		add(member.ID, member.UserID, store.NotificationMention)
	}

	switch {
	case msg.Scope.IsThread():
		authors, err := s.store.ListThreadAuthors(ctx, msg.Scope.ParentMessageID())
		if err != nil {
			return nil, err
		}
		for _, id := range authors {
			if _, ok := seen[id]; ok {
				continue
			}
			member, err := s.store.GetMember(ctx, id)
			if isNoRows(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			add(member.ID, member.UserID, store.NotificationReply)
		}
	case msg.Scope.Kind() == store.ScopeConversation:
		conv, err := s.store.GetConversation(ctx, msg.Scope.ConversationID())
		if err != nil {
			return nil, err
		}
		memberID, userID := conv.OtherMember(sender.ID)
		add(memberID, userID, store.NotificationDirect)
	}
	return out, nil
}

func notificationContent(typ store.NotificationType, senderName string) string {
	switch typ {
	case store.NotificationMention:
		return senderName + " mentioned you"
	case store.NotificationReply:
		return "New message in thread from " + senderName
	default:
		return "New message from " + senderName
	}
}

// fanOut writes one notification per recipient of msg. Inserts run
// concurrently and the first failure is returned.
func (s *Service) fanOut(ctx context.Context, sender store.Member, msg store.Message) error {
	recipients, err := s.messageRecipients(ctx, sender, msg)
	if err != nil || len(recipients) == 0 {
		return err
	}
	senderName := ""
	if p, err := s.populateUser(ctx, sender.UserID, userHint{MemberID: sender.ID}); err != nil {
		return err
	} else if p != nil {
		senderName = p.DisplayName
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range recipients {
		n := store.Notification{
			ID:              util.NewID("noti"),
			UserID:          r.UserID,
			WorkspaceID:     msg.WorkspaceID,
			ChannelID:       msg.Scope.ChannelID(),
			ConversationID:  msg.Scope.ConversationID(),
			ParentMessageID: msg.Scope.ParentMessageID(),
			MessageID:       msg.ID,
			Type:            r.Type,
			Status:          store.StatusUnread,
			SenderID:        sender.UserID,
			SenderMemberID:  sender.ID,
			Content:         notificationContent(r.Type, senderName),
			CreatedAt:       msg.CreatedAt,
		}
		g.Go(func() error {
			err := s.store.InsertNotification(gctx, n)
			metrics.NotificationsCreated.WithLabelValues(string(n.Type), metrics.StatusLabel(err)).Inc()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Debug().Str("message_id", msg.ID).Int("recipients", len(recipients)).Msg("notifications fanned out")
	return nil
}
