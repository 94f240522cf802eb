package activity

import (
	"sort"

	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/store"
)

type Kind string

const (
	KindReply    Kind = "reply"
	KindReaction Kind = "reaction"
	KindMention  Kind = "mention"
)

// Group is one entry of the activity feed: a *ReplyGroup, *ReactionGroup or
// *MentionGroup.
type Group interface {
	Kind() Kind
	Newest() Item
	isGroup()
}

// Summary holds the fields every group kind shares.
type Summary struct {
	GroupKind      Kind              `json:"kind"`
	Key            string            `json:"key,omitempty"`
	ThreadName     string            `json:"threadName,omitempty"`
	NewestNoti     Item              `json:"newestNoti"`
	ThreadMsgCount int               `json:"threadMsgCount"`
	Thread         ThreadInfo        `json:"thread"`
	Senders        []profile.Profile `json:"senders"`
	UnreadCount    int               `json:"unreadCount"`
	Notifications  []Item            `json:"notifications"`
}

func (s *Summary) Kind() Kind   { return s.GroupKind }
func (s *Summary) Newest() Item { return s.NewestNoti }
func (s *Summary) isGroup()     {}

// ReplyGroup collects reply notifications about one thread.
type ReplyGroup struct {
	Summary
}

// ReactionGroup collects reaction notifications about one message.
type ReactionGroup struct {
	Summary
	ReactionsList []ReactionEntry     `json:"reactionsList"`
	Breakdown     []ReactionBreakdown `json:"breakdown"`
}

// MentionGroup wraps a single mention; mentions are never merged.
type MentionGroup struct {
	Summary
}

// ReactionEntry is one reaction notification in a ReactionGroup.
type ReactionEntry struct {
	Value     string `json:"value"`
	Reactor   string `json:"reactor,omitempty"`
	ReactorID string `json:"reactorId"`
}

// ReactionBreakdown counts the reactions with one emoji inside a ReactionGroup.
type ReactionBreakdown struct {
	Value      string   `json:"value"`
	Count      int      `json:"count"`
	ReactorIDs []string `json:"reactorIds"`
}

// Feed builds the activity feed from a recipient's notifications. Reply,
// reaction and mention notifications are grouped; other types are ignored. The
// result is ordered by each group's newest notification, most recent first.
func Feed(items []Item) []Group {
	var replies, reactions, mentions []Item
	for _, item := range items {
		switch item.Type {
		case store.NotificationReply:
			replies = append(replies, item)
		case store.NotificationReaction:
			reactions = append(reactions, item)
		case store.NotificationMention:
			mentions = append(mentions, item)
		}
	}

	out := make([]Group, 0)
	for _, bucket := range groupReplies(replies) {
		out = append(out, &ReplyGroup{Summary: summarize(KindReply, bucket.key, bucket.items)})
	}
	for _, bucket := range groupByMessage(reactions) {
		out = append(out, newReactionGroup(bucket.key, bucket.items))
	}
	for _, item := range mentions {
		out = append(out, &MentionGroup{Summary: summarize(KindMention, item.MessageID, []Item{item})})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Newest().CreatedAt.After(out[j].Newest().CreatedAt)
	})
	return out
}

type bucket struct {
	key   string
	items []Item
}

// orderedBuckets keeps insertion order so the feed is deterministic before sorting.
type orderedBuckets struct {
	index   map[string]int
	buckets []bucket
}

func newOrderedBuckets() *orderedBuckets {
	return &orderedBuckets{index: make(map[string]int)}
}

func (b *orderedBuckets) add(key string, item Item) {
	i, ok := b.index[key]
	if !ok {
		i = len(b.buckets)
		b.index[key] = i
		b.buckets = append(b.buckets, bucket{key: key})
	}
	b.buckets[i].items = append(b.buckets[i].items, item)
}

func (b *orderedBuckets) standalone(item Item) {
	b.buckets = append(b.buckets, bucket{items: []Item{item}})
}

// groupReplies keys reply notifications by thread root. The first pass groups
// rows that carry a parent message id. The second pass places rows without a
// parent under their own message id, joining the thread of that message when
// it already exists. Rows with neither id stand alone.
func groupReplies(items []Item) []bucket {
	groups := newOrderedBuckets()
	var orphans []Item
	for _, item := range items {
		if item.ParentMessageID == "" {
			orphans = append(orphans, item)
			continue
		}
		groups.add(item.ParentMessageID, item)
	}
	for _, item := range orphans {
		if item.MessageID == "" {
			groups.standalone(item)
			continue
		}
		groups.add(item.MessageID, item)
	}
	return groups.buckets
}

func groupByMessage(items []Item) []bucket {
	groups := newOrderedBuckets()
	for _, item := range items {
		if item.MessageID == "" {
			groups.standalone(item)
			continue
		}
		groups.add(item.MessageID, item)
	}
	return groups.buckets
}

func summarize(kind Kind, key string, items []Item) Summary {
	newest := items[0]
	unread := 0
	senders := make([]profile.Profile, 0)
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.CreatedAt.After(newest.CreatedAt) {
			newest = item
		}
		if item.unread() {
			unread++
		}
		if item.Sender == nil {
			continue
		}
		if _, ok := seen[item.SenderID]; ok {
			continue
		}
		seen[item.SenderID] = struct{}{}
		senders = append(senders, *item.Sender)
	}

	s := Summary{
		GroupKind:      kind,
		Key:            key,
		NewestNoti:     newest,
		ThreadMsgCount: newest.Thread.Count,
		Thread:         newest.Thread,
		Senders:        senders,
		UnreadCount:    unread,
		Notifications:  items,
	}
	if newest.Channel != nil {
		s.ThreadName = newest.Channel.Name
	}
	return s
}

func newReactionGroup(key string, items []Item) *ReactionGroup {
	g := &ReactionGroup{
		Summary:       summarize(KindReaction, key, items),
		ReactionsList: make([]ReactionEntry, 0, len(items)),
		Breakdown:     make([]ReactionBreakdown, 0),
	}
	index := make(map[string]int)
	for _, item := range items {
		entry := ReactionEntry{Value: item.Content, ReactorID: item.SenderID}
		if item.Sender != nil {
			entry.Reactor = item.Sender.DisplayName
		}
		g.ReactionsList = append(g.ReactionsList, entry)

		i, ok := index[item.Content]
		if !ok {
			i = len(g.Breakdown)
			index[item.Content] = i
			g.Breakdown = append(g.Breakdown, ReactionBreakdown{Value: item.Content, ReactorIDs: []string{}})
		}
		g.Breakdown[i].Count++
		if !contains(g.Breakdown[i].ReactorIDs, item.SenderID) {
			g.Breakdown[i].ReactorIDs = append(g.Breakdown[i].ReactorIDs, item.SenderID)
		}
	}
	return g
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
