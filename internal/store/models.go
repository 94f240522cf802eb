package store

import "time"

// User is owned by the external auth provider; the API only reads it.
type User struct {
	ID        string
	Name      string
	Email     string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Workspace struct {
	ID        string
	Name      string
	UserID    string
	JoinCode  string
	CreatedAt time.Time
}

type Member struct {
	ID          string
	UserID      string
	WorkspaceID string
	Role        string
	OnlineAt    *time.Time
	CreatedAt   time.Time
}

// MemberPreference is the per-member override of how a user is presented.
type MemberPreference struct {
	ID            string
	UserID        string
	MemberID      string
	WorkspaceID   string
	FullName      string
	DisplayName   string
	Title         string
	Pronunciation string
	TimeZone      string
	Image         string
	Navigation    []string
	CreatedAt     time.Time
}

// PreferenceProfile is the replaceable part of a MemberPreference.
type PreferenceProfile struct {
	FullName      string
	DisplayName   string
	Title         string
	Pronunciation string
	TimeZone      string
}

type Channel struct {
	ID          string
	Name        string
	WorkspaceID string
	CreatedBy   string
	CreatedAt   time.Time
}

type Conversation struct {
	ID          string
	WorkspaceID string
	MemberOneID string
	MemberTwoID string
	UserOneID   string
	UserTwoID   string
	CreatedAt   time.Time
}

// OtherMember returns the participant that is not memberID.
func (c Conversation) OtherMember(memberID string) (otherMemberID, otherUserID string) {
	if c.MemberOneID == memberID {
		return c.MemberTwoID, c.UserTwoID
	}
	return c.MemberOneID, c.UserOneID
}

// Includes reports whether memberID is one of the two participants.
func (c Conversation) Includes(memberID string) bool {
	return c.MemberOneID == memberID || c.MemberTwoID == memberID
}

type Message struct {
	ID               string
	Body             string
	Image            string
	MemberID         string
	WorkspaceID      string
	Scope            MessageScope
	ForwardMessageID string
	UpdatedAt        *time.Time
	CreatedAt        time.Time
}

type MessagePage struct {
	Page         []Message
	ContinueFrom string
	IsDone       bool
}

// ThreadSummary describes the replies under a root message.
type ThreadSummary struct {
	Count     int
	LastReply *Message
}

type Reaction struct {
	ID          string
	WorkspaceID string
	MessageID   string
	MemberID    string
	Value       string
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotificationMention  NotificationType = "mention"
	NotificationKeyword  NotificationType = "keyword"
	NotificationDirect   NotificationType = "direct"
	NotificationReply    NotificationType = "reply"
	NotificationReaction NotificationType = "reaction"
)

type NotificationStatus string

const (
	StatusRead   NotificationStatus = "read"
	StatusUnread NotificationStatus = "unread"
)

// Notification is a fan-out record addressed to exactly one recipient.
// Optional references are empty strings when absent.
type Notification struct {
	ID              string
	UserID          string
	WorkspaceID     string
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	MessageID       string
	ReactionID      string
	Type            NotificationType
	Status          NotificationStatus
	SenderID        string
	SenderMemberID  string
	Content         string
	CreatedAt       time.Time
}

type NotificationFilter struct {
	UserID         string
	WorkspaceID    string
	ChannelID      string
	ConversationID string
	Types          []NotificationType
	UnreadOnly     bool
}

// MarkReadFilter selects unread notifications of one recipient. Any non-empty
// subject field matches (logical OR); with none set nothing matches.
type MarkReadFilter struct {
	UserID         string
	WorkspaceID    string
	ChannelID      string
	ConversationID string
	MessageID      string
}

func (f MarkReadFilter) Empty() bool {
	return f.ChannelID == "" && f.ConversationID == "" && f.MessageID == ""
}

func (f MarkReadFilter) Matches(n Notification) bool {
	if n.UserID != f.UserID || n.WorkspaceID != f.WorkspaceID || n.Status != StatusUnread {
		return false
	}
	return (f.ChannelID != "" && n.ChannelID == f.ChannelID) ||
		(f.ConversationID != "" && n.ConversationID == f.ConversationID) ||
		(f.MessageID != "" && n.MessageID == f.MessageID)
}

type SavedLaterStatus string

const (
	SavedInProgress SavedLaterStatus = "inprogress"
	SavedArchived   SavedLaterStatus = "archived"
	SavedCompleted  SavedLaterStatus = "completed"
)

func ValidSavedLaterStatus(status string) bool {
	switch SavedLaterStatus(status) {
	case SavedInProgress, SavedArchived, SavedCompleted:
		return true
	default:
		return false
	}
}

type SavedLater struct {
	ID              string
	MemberID        string
	MessageID       string
	WorkspaceID     string
	ChannelID       string
	ConversationID  string
	ParentMessageID string
	Status          SavedLaterStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CascadeResult reports what a member removal deleted. DependentMessageIDs are
// other members' messages removed with the member's threads and conversations.
type CascadeResult struct {
	MessageIDs          []string
	ReactionIDs         []string
	ConversationIDs     []string
	DependentMessageIDs []string
}

// RemovedMessageIDs lists every message id the removal deleted.
func (r CascadeResult) RemovedMessageIDs() []string {
	out := make([]string, 0, len(r.MessageIDs)+len(r.DependentMessageIDs))
	out = append(out, r.MessageIDs...)
	return append(out, r.DependentMessageIDs...)
}
