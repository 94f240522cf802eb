package activity

import (
	"sort"

	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// Viewer identifies who is reading the inbox.
type Viewer struct {
	UserID   string
	MemberID string
}

// DirectGroup summarises one conversation in the direct-message inbox.
type DirectGroup struct {
	ConversationID string           `json:"conversationId"`
	OtherMemberID  string           `json:"otherMemberId,omitempty"`
	OtherUserID    string           `json:"otherUserId"`
	Other          *profile.Profile `json:"user,omitempty"`
	NewestNoti     Item             `json:"newestNoti"`
	UnreadCount    int              `json:"unreadCount"`
	Notifications  []Item           `json:"notifications"`
}

// DirectInput carries the lookups GroupDirect needs. Conversations and Profiles
// may be partial; missing entries leave the corresponding fields empty.
type DirectInput struct {
	Viewer        Viewer
	Items         []Item
	Conversations map[string]store.Conversation
	// Profiles is keyed by user id.
	Profiles map[string]profile.Profile
}

// GroupDirect groups direct notifications by conversation. Only rows the viewer
// sent or received are considered, and UnreadCount counts only unread rows
// addressed to the viewer. Groups are ordered newest first.
func GroupDirect(in DirectInput) []DirectGroup {
	groups := newOrderedBuckets()
	for _, item := range in.Items {
		if item.Type != store.NotificationDirect || item.ConversationID == "" {
			continue
		}
		if item.UserID != in.Viewer.UserID && item.SenderID != in.Viewer.UserID {
			continue
		}
		groups.add(item.ConversationID, item)
	}

	out := make([]DirectGroup, 0, len(groups.buckets))
	for _, b := range groups.buckets {
		g := DirectGroup{
			ConversationID: b.key,
			NewestNoti:     b.items[0],
			Notifications:  b.items,
		}
		for _, item := range b.items {
			if item.CreatedAt.After(g.NewestNoti.CreatedAt) {
				g.NewestNoti = item
			}
			if item.UserID == in.Viewer.UserID && item.unread() {
				g.UnreadCount++
			}
		}

		if conv, ok := in.Conversations[b.key]; ok {
			g.OtherMemberID, g.OtherUserID = conv.OtherMember(in.Viewer.MemberID)
		} else {
			g.OtherUserID = counterpart(in.Viewer.UserID, g.NewestNoti)
		}
		if p, ok := in.Profiles[g.OtherUserID]; ok {
			other := p
			g.Other = &other
		}
		out = append(out, g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NewestNoti.CreatedAt.After(out[j].NewestNoti.CreatedAt)
	})
	return out
}

func counterpart(viewerUserID string, item Item) string {
	if item.UserID == viewerUserID {
		return item.SenderID
	}
	return item.UserID
}
