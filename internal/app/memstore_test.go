package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ngochieu276/slack-clone/internal/blob"
	"github.com/ngochieu276/slack-clone/internal/config"
	"github.com/ngochieu276/slack-clone/internal/search"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// memStore is an in-memory dataStore. Missing rows return sql.ErrNoRows like
// the Postgres store.
type memStore struct {
	mu sync.Mutex

	users         map[string]store.User
	workspaces    map[string]store.Workspace
	members       map[string]store.Member
	preferences   map[string]store.MemberPreference
	channels      map[string]store.Channel
	conversations map[string]store.Conversation
	messages      map[string]store.Message
	reactions     map[string]store.Reaction
	notifications []store.Notification
	later         map[string]store.SavedLater

	pingErr    error
	cascadeErr error
	upserted   []store.User
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]store.User),
		workspaces:    make(map[string]store.Workspace),
		members:       make(map[string]store.Member),
		preferences:   make(map[string]store.MemberPreference),
		channels:      make(map[string]store.Channel),
		conversations: make(map[string]store.Conversation),
		messages:      make(map[string]store.Message),
		reactions:     make(map[string]store.Reaction),
		later:         make(map[string]store.SavedLater),
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) GetUser(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) UpsertUser(_ context.Context, u store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.upserted = append(m.upserted, u)
	return nil
}

func (m *memStore) ListWorkspacesForUser(_ context.Context, userID string) ([]store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Workspace, 0)
	for _, member := range m.members {
		if member.UserID != userID {
			continue
		}
		if w, ok := m.workspaces[member.WorkspaceID]; ok {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetWorkspace(_ context.Context, id string) (store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return store.Workspace{}, sql.ErrNoRows
	}
	return w, nil
}

func (m *memStore) GetWorkspaceByJoinCode(_ context.Context, code string) (store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workspaces {
		if w.JoinCode == code {
			return w, nil
		}
	}
	return store.Workspace{}, sql.ErrNoRows
}

func (m *memStore) InsertWorkspace(_ context.Context, w store.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[w.ID] = w
	return nil
}

func (m *memStore) UpdateWorkspaceName(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return sql.ErrNoRows
	}
	w.Name = name
	m.workspaces[id] = w
	return nil
}

func (m *memStore) UpdateJoinCode(_ context.Context, id, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return sql.ErrNoRows
	}
	w.JoinCode = code
	m.workspaces[id] = w
	return nil
}

func (m *memStore) DeleteWorkspace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, id)
	for key, member := range m.members {
		if member.WorkspaceID == id {
			delete(m.members, key)
		}
	}
	for key, c := range m.channels {
		if c.WorkspaceID == id {
			delete(m.channels, key)
		}
	}
	for key, msg := range m.messages {
		if msg.WorkspaceID == id {
			delete(m.messages, key)
		}
	}
	return nil
}

func (m *memStore) GetMember(_ context.Context, id string) (store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return store.Member{}, sql.ErrNoRows
	}
	return member, nil
}

func (m *memStore) GetMemberByWorkspaceUser(_ context.Context, workspaceID, userID string) (store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.WorkspaceID == workspaceID && member.UserID == userID {
			return member, nil
		}
	}
	return store.Member{}, sql.ErrNoRows
}

func (m *memStore) ListMembers(_ context.Context, workspaceID string) ([]store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Member, 0)
	for _, member := range m.members {
		if member.WorkspaceID == workspaceID {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InsertMember(_ context.Context, member store.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *memStore) UpdateMemberRole(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return sql.ErrNoRows
	}
	member.Role = role
	m.members[id] = member
	return nil
}

func (m *memStore) TouchMemberOnline(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return sql.ErrNoRows
	}
	member.OnlineAt = &at
	m.members[id] = member
	return nil
}

func (m *memStore) DeleteMemberCascade(_ context.Context, memberID string) (store.CascadeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cascadeErr != nil {
		return store.CascadeResult{}, fmt.Errorf("%w: %v", store.ErrCascadeAborted, m.cascadeErr)
	}
	result := store.CascadeResult{
		MessageIDs:          []string{},
		ReactionIDs:         []string{},
		ConversationIDs:     []string{},
		DependentMessageIDs: []string{},
	}
	for id, msg := range m.messages {
		if msg.MemberID == memberID {
			result.MessageIDs = append(result.MessageIDs, id)
		}
	}
	for id, r := range m.reactions {
		if r.MemberID == memberID {
			result.ReactionIDs = append(result.ReactionIDs, id)
		}
	}
	for id, c := range m.conversations {
		if c.Includes(memberID) {
			result.ConversationIDs = append(result.ConversationIDs, id)
		}
	}
	for id, msg := range m.messages {
		if msg.MemberID == memberID {
			continue
		}
		parent, hasParent := m.messages[msg.Scope.ParentMessageID()]
		conv, inConv := m.conversations[msg.Scope.ConversationID()]
		if (hasParent && parent.MemberID == memberID) || (inConv && conv.Includes(memberID)) {
			result.DependentMessageIDs = append(result.DependentMessageIDs, id)
		}
	}
	for _, id := range result.ReactionIDs {
		delete(m.reactions, id)
	}
	for _, id := range result.RemovedMessageIDs() {
		delete(m.messages, id)
	}
	for _, id := range result.ConversationIDs {
		delete(m.conversations, id)
	}
	delete(m.members, memberID)
	return result, nil
}

func (m *memStore) GetPreferenceByMember(_ context.Context, memberID, userID string) (store.MemberPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.preferences {
		if p.MemberID == memberID && p.UserID == userID {
			return p, nil
		}
	}
	return store.MemberPreference{}, sql.ErrNoRows
}

func (m *memStore) GetPreferenceByUserWorkspace(_ context.Context, userID, workspaceID string) (store.MemberPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.preferences {
		if p.UserID == userID && p.WorkspaceID == workspaceID {
			return p, nil
		}
	}
	return store.MemberPreference{}, sql.ErrNoRows
}

func (m *memStore) InsertPreference(_ context.Context, p store.MemberPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[p.ID] = p
	return nil
}

func (m *memStore) updatePreference(id string, fn func(*store.MemberPreference)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.preferences[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&p)
	m.preferences[id] = p
	return nil
}

func (m *memStore) UpdatePreferenceProfile(_ context.Context, id string, profile store.PreferenceProfile) error {
	return m.updatePreference(id, func(p *store.MemberPreference) {
		p.FullName = profile.FullName
		p.DisplayName = profile.DisplayName
		p.Title = profile.Title
		p.Pronunciation = profile.Pronunciation
		p.TimeZone = profile.TimeZone
	})
}

func (m *memStore) UpdatePreferenceImage(_ context.Context, id, image string) error {
	return m.updatePreference(id, func(p *store.MemberPreference) { p.Image = image })
}

func (m *memStore) UpdatePreferenceNavigation(_ context.Context, id string, nav []string) error {
	return m.updatePreference(id, func(p *store.MemberPreference) { p.Navigation = nav })
}

func (m *memStore) ListChannels(_ context.Context, workspaceID string) ([]store.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Channel, 0)
	for _, c := range m.channels {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetChannel(_ context.Context, id string) (store.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return store.Channel{}, sql.ErrNoRows
	}
	return c, nil
}

func (m *memStore) InsertChannel(_ context.Context, c store.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c.ID] = c
	return nil
}

func (m *memStore) UpdateChannelName(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Name = name
	m.channels[id] = c
	return nil
}

func (m *memStore) DeleteChannel(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
	removed := make([]string, 0)
	for key, msg := range m.messages {
		if msg.Scope.ChannelID() == id {
			delete(m.messages, key)
			removed = append(removed, key)
		}
	}
	return removed, nil
}

func (m *memStore) GetConversation(_ context.Context, id string) (store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return store.Conversation{}, sql.ErrNoRows
	}
	return c, nil
}

func (m *memStore) FindConversation(_ context.Context, workspaceID, a, b string) (store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.WorkspaceID == workspaceID && c.Includes(a) && c.Includes(b) {
			return c, nil
		}
	}
	return store.Conversation{}, sql.ErrNoRows
}

func (m *memStore) ListConversationsForMember(_ context.Context, workspaceID, memberID string) ([]store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Conversation, 0)
	for _, c := range m.conversations {
		if c.WorkspaceID == workspaceID && c.Includes(memberID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InsertConversation(_ context.Context, c store.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = c
	return nil
}

func (m *memStore) GetMessage(_ context.Context, id string) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return store.Message{}, sql.ErrNoRows
	}
	return msg, nil
}

func newerFirst(a, b store.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (m *memStore) ListMessages(_ context.Context, scope store.MessageScope, cursor string, limit int) (store.MessagePage, error) {
	var (
		after   store.Message
		hasFrom bool
	)
	if cursor != "" {
		createdAt, id, err := store.DecodeCursor(cursor)
		if err != nil {
			return store.MessagePage{}, err
		}
		after = store.Message{ID: id, CreatedAt: createdAt}
		hasFrom = true
	}

	m.mu.Lock()
	matched := make([]store.Message, 0)
	for _, msg := range m.messages {
		if scope.IsThread() {
			if msg.Scope.ParentMessageID() != scope.ParentMessageID() {
				continue
			}
		} else if msg.Scope.IsThread() || msg.Scope.ChannelID() != scope.ChannelID() || msg.Scope.ConversationID() != scope.ConversationID() {
			continue
		}
		if hasFrom && !newerFirst(after, msg) {
			continue
		}
		matched = append(matched, msg)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return newerFirst(matched[i], matched[j]) })
	page := store.MessagePage{Page: matched, IsDone: true}
	if len(matched) > limit {
		page.Page = matched[:limit]
		page.IsDone = false
		last := page.Page[len(page.Page)-1]
		page.ContinueFrom = store.EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (m *memStore) InsertMessage(_ context.Context, msg store.Message) error {
	if msg.Scope.IsZero() {
		return store.ErrInvalidScope
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = msg
	return nil
}

func (m *memStore) UpdateMessageBody(_ context.Context, id, body string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	msg.Body = body
	msg.UpdatedAt = &at
	m.messages[id] = msg
	return nil
}

func (m *memStore) DeleteMessage(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make([]string, 0)
	for key, msg := range m.messages {
		if key == id || msg.Scope.ParentMessageID() == id {
			delete(m.messages, key)
			removed = append(removed, key)
		}
	}
	return removed, nil
}

func (m *memStore) threadMessages(parentID string, includeRoot bool) []store.Message {
	out := make([]store.Message, 0)
	for _, msg := range m.messages {
		if msg.Scope.ParentMessageID() == parentID || (includeRoot && msg.ID == parentID) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[j], out[i]) })
	return out
}

func (m *memStore) ThreadSummary(_ context.Context, parentID string) (store.ThreadSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	replies := m.threadMessages(parentID, false)
	summary := store.ThreadSummary{Count: len(replies)}
	if len(replies) > 0 {
		last := replies[len(replies)-1]
		summary.LastReply = &last
	}
	return summary, nil
}

func (m *memStore) ListThreadAuthors(_ context.Context, parentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, msg := range m.threadMessages(parentID, true) {
		if _, ok := seen[msg.MemberID]; ok {
			continue
		}
		seen[msg.MemberID] = struct{}{}
		out = append(out, msg.MemberID)
	}
	return out, nil
}

func (m *memStore) ListReactions(_ context.Context, messageID string) ([]store.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Reaction, 0)
	for _, r := range m.reactions {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) FindReaction(_ context.Context, messageID, memberID, value string) (store.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reactions {
		if r.MessageID == messageID && r.MemberID == memberID && r.Value == value {
			return r, nil
		}
	}
	return store.Reaction{}, sql.ErrNoRows
}

func (m *memStore) InsertReaction(_ context.Context, r store.Reaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[r.ID] = r
	return nil
}

func (m *memStore) DeleteReaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reactions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reactions, id)
	return nil
}

func (m *memStore) InsertNotification(_ context.Context, n store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func hasType(types []store.NotificationType, want store.NotificationType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (m *memStore) ListNotifications(_ context.Context, f store.NotificationFilter) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Notification, 0)
	for _, n := range m.notifications {
		if n.UserID != f.UserID || n.WorkspaceID != f.WorkspaceID {
			continue
		}
		if f.UnreadOnly && n.Status != store.StatusUnread {
			continue
		}
		if f.ChannelID != "" || f.ConversationID != "" {
			if !(f.ChannelID != "" && n.ChannelID == f.ChannelID) && !(f.ConversationID != "" && n.ConversationID == f.ConversationID) {
				continue
			}
		}
		if len(f.Types) > 0 && !hasType(f.Types, n.Type) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memStore) ListDirectNotifications(_ context.Context, workspaceID, userID string, unreadOnly bool) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Notification, 0)
	for _, n := range m.notifications {
		if n.WorkspaceID != workspaceID || n.Type != store.NotificationDirect {
			continue
		}
		if n.UserID != userID && n.SenderID != userID {
			continue
		}
		if unreadOnly && n.Status != store.StatusUnread {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memStore) MarkNotificationsRead(_ context.Context, f store.MarkReadFilter) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0)
	if f.Empty() {
		return ids, nil
	}
	for i, n := range m.notifications {
		if f.Matches(n) {
			m.notifications[i].Status = store.StatusRead
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

func (m *memStore) CountUnread(_ context.Context, workspaceID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.WorkspaceID == workspaceID && n.UserID == userID && n.Status == store.StatusUnread {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetSavedLater(_ context.Context, id string) (store.SavedLater, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.later[id]
	if !ok {
		return store.SavedLater{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memStore) FindSavedLater(_ context.Context, memberID, messageID string) (store.SavedLater, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.later {
		if item.MemberID == memberID && item.MessageID == messageID {
			return item, nil
		}
	}
	return store.SavedLater{}, sql.ErrNoRows
}

func (m *memStore) InsertSavedLater(_ context.Context, item store.SavedLater) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.later[item.ID] = item
	return nil
}

func (m *memStore) UpdateSavedLaterStatus(_ context.Context, id string, status store.SavedLaterStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.later[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	m.later[id] = item
	return nil
}

func (m *memStore) DeleteSavedLater(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.later, id)
	return nil
}

func (m *memStore) ListSavedLater(_ context.Context, memberID string, status store.SavedLaterStatus) ([]store.SavedLater, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.SavedLater, 0)
	for _, item := range m.later {
		if item.MemberID == memberID && (status == "" || item.Status == status) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// notificationsFor returns the notifications addressed to userID about messageID.
func (m *memStore) notificationsFor(userID, messageID string) []store.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Notification, 0)
	for _, n := range m.notifications {
		if n.UserID == userID && (messageID == "" || n.MessageID == messageID) {
			out = append(out, n)
		}
	}
	return out
}

const testSecret = "test-secret"

func newTestService(ms *memStore) *Service {
	svc := New(config.Config{
		JWTSecret:       testSecret,
		DefaultPageSize: 30,
		MaxPageSize:     100,
	}, Deps{Store: ms, Logger: zerolog.Nop()})

	var (
		mu   sync.Mutex
		tick int
	)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func staticBlobs() blob.StaticResolver {
	return blob.StaticResolver{BaseURL: "https://cdn.test", DefaultAvatarURL: "/static/default-avatar.png"}
}

// seedWorkspace creates workspace ws-1 with admin alice and members bob and
// carol, plus a general channel. A second workspace ws-2 holds dave.
func seedWorkspace(ms *memStore) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, u := range []store.User{
		{ID: "u-alice", Name: "Alice"},
		{ID: "u-bob", Name: "Bob"},
		{ID: "u-carol", Name: "Carol"},
		{ID: "u-dave", Name: "Dave"},
	} {
		ms.users[u.ID] = u
	}
	ms.workspaces["ws-1"] = store.Workspace{ID: "ws-1", Name: "Acme", UserID: "u-alice", JoinCode: "abc123", CreatedAt: created}
	ms.workspaces["ws-2"] = store.Workspace{ID: "ws-2", Name: "Other", UserID: "u-dave", JoinCode: "zzz999", CreatedAt: created}
	for _, member := range []store.Member{
		{ID: "m-alice", UserID: "u-alice", WorkspaceID: "ws-1", Role: "admin", CreatedAt: created},
		{ID: "m-bob", UserID: "u-bob", WorkspaceID: "ws-1", Role: "members", CreatedAt: created},
		{ID: "m-carol", UserID: "u-carol", WorkspaceID: "ws-1", Role: "members", CreatedAt: created},
		{ID: "m-dave", UserID: "u-dave", WorkspaceID: "ws-2", Role: "admin", CreatedAt: created},
	} {
		ms.members[member.ID] = member
		ms.preferences["pref-"+member.ID] = store.MemberPreference{
			ID:          "pref-" + member.ID,
			UserID:      member.UserID,
			MemberID:    member.ID,
			WorkspaceID: member.WorkspaceID,
			Navigation:  []string{},
			CreatedAt:   created,
		}
	}
	ms.channels["ch-general"] = store.Channel{ID: "ch-general", Name: "general", WorkspaceID: "ws-1", CreatedBy: "m-alice", CreatedAt: created}
}

var (
	alice = Session{UserID: "u-alice", UserName: "Alice"}
	bob   = Session{UserID: "u-bob", UserName: "Bob"}
	carol = Session{UserID: "u-carol", UserName: "Carol"}
	dave  = Session{UserID: "u-dave", UserName: "Dave"}
)

// recordingIndex is a messageIndex that remembers indexed and deleted ids.
type recordingIndex struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (r *recordingIndex) Search(_ context.Context, q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (r *recordingIndex) IndexMessage(record search.MessageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, record.ID)
}

func (r *recordingIndex) DeleteMessages(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, ids...)
}

func (r *recordingIndex) deletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.deleted...)
	sort.Strings(out)
	return out
}
