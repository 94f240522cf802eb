// Package activity groups a recipient's notifications into the activity feed
// and the direct-message inbox.
package activity

import (
	"time"

	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// ThreadInfo summarises the replies under a message. Image, Name and TimeStamp
// are empty when Count is zero.
type ThreadInfo struct {
	Count     int        `json:"count"`
	Image     string     `json:"image,omitempty"`
	Name      string     `json:"name,omitempty"`
	TimeStamp *time.Time `json:"timeStamp,omitempty"`
}

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageRef is the slice of a message the feed needs to render a preview.
type MessageRef struct {
	ID        string           `json:"id"`
	Body      string           `json:"body"`
	Image     string           `json:"image,omitempty"`
	MemberID  string           `json:"memberId"`
	Author    *profile.Profile `json:"user,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Item is a notification enriched with the entities it points at.
type Item struct {
	ID              string                   `json:"id"`
	Type            store.NotificationType   `json:"type"`
	Status          store.NotificationStatus `json:"status"`
	UserID          string                   `json:"userId"`
	WorkspaceID     string                   `json:"workspaceId"`
	ChannelID       string                   `json:"channelId,omitempty"`
	ConversationID  string                   `json:"conversationId,omitempty"`
	ParentMessageID string                   `json:"parentMessageId,omitempty"`
	MessageID       string                   `json:"messageId,omitempty"`
	ReactionID      string                   `json:"reactionId,omitempty"`
	SenderID        string                   `json:"senderId"`
	SenderMemberID  string                   `json:"senderMemberId,omitempty"`
	Content         string                   `json:"content"`
	CreatedAt       time.Time                `json:"createdAt"`

	Channel       *Channel         `json:"channel,omitempty"`
	Sender        *profile.Profile `json:"sender,omitempty"`
	ParentMessage *MessageRef      `json:"parentMessage,omitempty"`
	Message       *MessageRef      `json:"message,omitempty"`
	Thread        ThreadInfo       `json:"thread"`
}

// NewItem copies the stored notification into an Item with no enrichment.
func NewItem(n store.Notification) Item {
	return Item{
		ID:              n.ID,
		Type:            n.Type,
		Status:          n.Status,
		UserID:          n.UserID,
		WorkspaceID:     n.WorkspaceID,
		ChannelID:       n.ChannelID,
		ConversationID:  n.ConversationID,
		ParentMessageID: n.ParentMessageID,
		MessageID:       n.MessageID,
		ReactionID:      n.ReactionID,
		SenderID:        n.SenderID,
		SenderMemberID:  n.SenderMemberID,
		Content:         n.Content,
		CreatedAt:       n.CreatedAt,
	}
}

func (i Item) unread() bool {
	return i.Status == store.StatusUnread
}
