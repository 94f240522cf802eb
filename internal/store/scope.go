package store

import (
	"errors"
	"fmt"
)

type ScopeKind string

const (
	ScopeChannel      ScopeKind = "channel"
	ScopeConversation ScopeKind = "conversation"
	ScopeThread       ScopeKind = "thread"
)

var ErrInvalidScope = errors.New("message must target exactly one of channel or conversation")

// MessageScope says where a message lives. A thread reply carries the root
// message id and the channel or conversation inherited from that root.
type MessageScope struct {
	kind           ScopeKind
	channelID      string
	conversationID string
	parentID       string
}

func ChannelScope(channelID string) MessageScope {
	return MessageScope{kind: ScopeChannel, channelID: channelID}
}

func ConversationScope(conversationID string) MessageScope {
	return MessageScope{kind: ScopeConversation, conversationID: conversationID}
}

// ThreadScope builds a reply scope under parentID. root is the scope of the
// parent message; nested threads collapse onto the same root target.
func ThreadScope(parentID string, root MessageScope) MessageScope {
	return MessageScope{
		kind:           ScopeThread,
		channelID:      root.channelID,
		conversationID: root.conversationID,
		parentID:       parentID,
	}
}

// ScopeFromColumns rebuilds a scope from its stored columns.
func ScopeFromColumns(channelID, conversationID, parentID string) (MessageScope, error) {
	if (channelID == "") == (conversationID == "") {
		return MessageScope{}, fmt.Errorf("%w: channel=%q conversation=%q", ErrInvalidScope, channelID, conversationID)
	}
	var root MessageScope
	if channelID != "" {
		root = ChannelScope(channelID)
	} else {
		root = ConversationScope(conversationID)
	}
	if parentID != "" {
		return ThreadScope(parentID, root), nil
	}
	return root, nil
}

func (s MessageScope) Kind() ScopeKind         { return s.kind }
func (s MessageScope) ChannelID() string       { return s.channelID }
func (s MessageScope) ConversationID() string  { return s.conversationID }
func (s MessageScope) ParentMessageID() string { return s.parentID }
func (s MessageScope) IsZero() bool            { return s.kind == "" }
func (s MessageScope) IsThread() bool          { return s.kind == ScopeThread }

// Root drops the thread part of the scope.
func (s MessageScope) Root() MessageScope {
	if s.channelID != "" {
		return ChannelScope(s.channelID)
	}
	return ConversationScope(s.conversationID)
}

func (s MessageScope) String() string {
	switch s.kind {
	case ScopeChannel:
		return "channel:" + s.channelID
	case ScopeConversation:
		return "conversation:" + s.conversationID
	case ScopeThread:
		return "thread:" + s.parentID + "@" + s.Root().String()
	default:
		return "unscoped"
	}
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
