package activity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngochieu276/slack-clone/internal/profile"
	"github.com/ngochieu276/slack-clone/internal/store"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(offset int) time.Time {
	return base.Add(time.Duration(offset) * time.Second)
}

func item(id string, typ store.NotificationType, created int) Item {
	return Item{
		ID:        id,
		Type:      typ,
		Status:    store.StatusUnread,
		UserID:    "usr_viewer",
		SenderID:  "usr_" + id,
		CreatedAt: at(created),
	}
}

func TestGroupOrdersByNewestNotification(t *testing.T) {
	a := item("a", store.NotificationMention, 100)
	b := item("b", store.NotificationMention, 300)
	c := item("c", store.NotificationMention, 200)

	groups := Feed([]Item{a, b, c})
	require.Len(t, groups, 3)

	got := []time.Time{groups[0].Newest().CreatedAt, groups[1].Newest().CreatedAt, groups[2].Newest().CreatedAt}
	assert.Equal(t, []time.Time{at(300), at(200), at(100)}, got)
}

func TestGroupOrdersAcrossKinds(t *testing.T) {
	reply := item("r", store.NotificationReply, 100)
	reply.ParentMessageID = "m1"
	react := item("x", store.NotificationReaction, 300)
	react.MessageID = "m2"
	mention := item("m", store.NotificationMention, 200)

	groups := Feed([]Item{reply, react, mention})
	require.Len(t, groups, 3)
	assert.Equal(t, KindReaction, groups[0].Kind())
	assert.Equal(t, KindMention, groups[1].Kind())
	assert.Equal(t, KindReply, groups[2].Kind())
}

func TestReplyWithoutParentMergesIntoThreadOfItsMessage(t *testing.T) {
	first := item("1", store.NotificationReply, 10)
	first.MessageID = "m1"
	second := item("2", store.NotificationReply, 20)
	second.ParentMessageID = "m1"

	groups := Feed([]Item{first, second})
	require.Len(t, groups, 1)

	g, ok := groups[0].(*ReplyGroup)
	require.True(t, ok)
	assert.Equal(t, "m1", g.Key)
	require.Len(t, g.Notifications, 2)
	ids := []string{g.Notifications[0].ID, g.Notifications[1].ID}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
	assert.Equal(t, "2", g.NewestNoti.ID)
}

func TestReplyWithNeitherIDStandsAlone(t *testing.T) {
	lonely := item("1", store.NotificationReply, 10)
	other := item("2", store.NotificationReply, 20)
	other.ParentMessageID = "m9"

	groups := Feed([]Item{lonely, other})
	require.Len(t, groups, 2)
	assert.Equal(t, "m9", groups[0].(*ReplyGroup).Key)
	assert.Equal(t, "", groups[1].(*ReplyGroup).Key)
}

func TestReplyGroupSummary(t *testing.T) {
	bob := profile.Profile{UserID: "usr_bob", DisplayName: "Bob"}
	amy := profile.Profile{UserID: "usr_amy", DisplayName: "Amy"}

	older := item("1", store.NotificationReply, 10)
	older.ParentMessageID = "m1"
	older.SenderID = bob.UserID
	older.Sender = &bob
	older.Thread = ThreadInfo{Count: 1}
	older.Channel = &Channel{ID: "ch_1", Name: "general"}

	newer := item("2", store.NotificationReply, 30)
	newer.ParentMessageID = "m1"
	newer.SenderID = amy.UserID
	newer.Sender = &amy
	newer.Thread = ThreadInfo{Count: 3, Name: "Amy"}
	newer.Channel = &Channel{ID: "ch_1", Name: "general"}

	again := item("3", store.NotificationReply, 20)
	again.ParentMessageID = "m1"
	again.SenderID = bob.UserID
	again.Sender = &bob
	again.Status = store.StatusRead

	groups := Feed([]Item{older, newer, again})
	require.Len(t, groups, 1)
	g := groups[0].(*ReplyGroup)

	assert.Equal(t, "2", g.NewestNoti.ID)
	assert.Equal(t, 3, g.ThreadMsgCount)
	assert.Equal(t, "Amy", g.Thread.Name)
	assert.Equal(t, "general", g.ThreadName)
	assert.Equal(t, 2, g.UnreadCount)
	require.Len(t, g.Senders, 2)
	assert.Equal(t, "Bob", g.Senders[0].DisplayName)
	assert.Equal(t, "Amy", g.Senders[1].DisplayName)
	assert.Len(t, g.Notifications, 3)
}

func TestThreadCountComesFromNewestEvenWhenFirst(t *testing.T) {
	newest := item("1", store.NotificationReply, 50)
	newest.ParentMessageID = "m1"
	newest.Thread = ThreadInfo{Count: 4}
	older := item("2", store.NotificationReply, 10)
	older.ParentMessageID = "m1"
	older.Thread = ThreadInfo{Count: 1}

	g := Feed([]Item{newest, older})[0].(*ReplyGroup)
	assert.Equal(t, 4, g.ThreadMsgCount)
}

func TestMentionsAreNeverMerged(t *testing.T) {
	a := item("a", store.NotificationMention, 10)
	a.MessageID = "m1"
	b := item("b", store.NotificationMention, 20)
	b.MessageID = "m1"
	b.Status = store.StatusRead

	groups := Feed([]Item{a, b})
	require.Len(t, groups, 2)
	for _, g := range groups {
		m, ok := g.(*MentionGroup)
		require.True(t, ok)
		assert.Len(t, m.Notifications, 1)
		assert.LessOrEqual(t, m.UnreadCount, 1)
	}
	assert.Equal(t, 0, groups[0].(*MentionGroup).UnreadCount)
	assert.Equal(t, 1, groups[1].(*MentionGroup).UnreadCount)
}

func TestReactionGroupBreakdown(t *testing.T) {
	bob := profile.Profile{UserID: "usr_bob", DisplayName: "Bob"}
	amy := profile.Profile{UserID: "usr_amy", DisplayName: "Amy"}

	r1 := item("1", store.NotificationReaction, 10)
	r1.MessageID, r1.Content, r1.SenderID, r1.Sender = "m1", "👍", bob.UserID, &bob
	r2 := item("2", store.NotificationReaction, 20)
	r2.MessageID, r2.Content, r2.SenderID, r2.Sender = "m1", "👍", amy.UserID, &amy
	r3 := item("3", store.NotificationReaction, 30)
	r3.MessageID, r3.Content, r3.SenderID, r3.Sender = "m1", "🎉", bob.UserID, &bob
	other := item("4", store.NotificationReaction, 5)
	other.MessageID, other.Content = "m2", "👀"

	groups := Feed([]Item{r1, r2, r3, other})
	require.Len(t, groups, 2)

	g, ok := groups[0].(*ReactionGroup)
	require.True(t, ok)
	assert.Equal(t, "m1", g.Key)
	assert.Equal(t, "3", g.NewestNoti.ID)
	require.Len(t, g.ReactionsList, 3)
	assert.Equal(t, ReactionEntry{Value: "👍", Reactor: "Bob", ReactorID: "usr_bob"}, g.ReactionsList[0])
	require.Len(t, g.Breakdown, 2)
	assert.Equal(t, ReactionBreakdown{Value: "👍", Count: 2, ReactorIDs: []string{"usr_bob", "usr_amy"}}, g.Breakdown[0])
	assert.Equal(t, ReactionBreakdown{Value: "🎉", Count: 1, ReactorIDs: []string{"usr_bob"}}, g.Breakdown[1])
	assert.Len(t, g.Senders, 2)
}

func TestGroupIgnoresDirectAndKeyword(t *testing.T) {
	groups := Feed([]Item{
		item("d", store.NotificationDirect, 10),
		item("k", store.NotificationKeyword, 20),
	})
	assert.Empty(t, groups)
	assert.NotNil(t, groups)
}

func TestGroupJSONCarriesKind(t *testing.T) {
	reply := item("r", store.NotificationReply, 10)
	reply.ParentMessageID = "m1"

	raw, err := json.Marshal(Feed([]Item{reply}))
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "reply", decoded[0]["kind"])
	assert.Equal(t, "m1", decoded[0]["key"])
}
