package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCascadeAborted marks a member removal that failed part way and was
// rolled back; nothing was deleted.
var ErrCascadeAborted = errors.New("member cascade aborted")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, image, created_at, updated_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, image=EXCLUDED.image, updated_at=NOW()
	`, user.ID, user.Name, user.Email, user.Image)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// --- workspaces ---

const workspaceColumns = `id, name, user_id, join_code, created_at`

func scanWorkspace(row interface{ Scan(...any) error }) (Workspace, error) {
	var item Workspace
	err := row.Scan(&item.ID, &item.Name, &item.UserID, &item.JoinCode, &item.CreatedAt)
	return item, err
}

func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.user_id, w.join_code, w.created_at
		FROM workspaces w
		JOIN members m ON m.workspace_id = w.id
		WHERE m.user_id=$1
		ORDER BY w.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	items := make([]Workspace, 0)
	for rows.Next() {
		item, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	return scanWorkspace(s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id=$1`, workspaceID))
}

func (s *PostgresStore) GetWorkspaceByJoinCode(ctx context.Context, joinCode string) (Workspace, error) {
	return scanWorkspace(s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE join_code=$1`, joinCode))
}

func (s *PostgresStore) InsertWorkspace(ctx context.Context, item Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, user_id, join_code)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.Name, item.UserID, item.JoinCode)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateWorkspaceName(ctx context.Context, workspaceID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE workspaces SET name=$2 WHERE id=$1`, workspaceID, name)
	if err != nil {
		return fmt.Errorf("update workspace name: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateJoinCode(ctx context.Context, workspaceID, joinCode string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE workspaces SET join_code=$2 WHERE id=$1`, workspaceID, joinCode)
	if err != nil {
		return fmt.Errorf("update join code: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id=$1`, workspaceID)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

// --- members ---

const memberColumns = `id, user_id, workspace_id, role, online_at, created_at`

func scanMember(row interface{ Scan(...any) error }) (Member, error) {
	var item Member
	var onlineAt sql.NullTime
	if err := row.Scan(&item.ID, &item.UserID, &item.WorkspaceID, &item.Role, &onlineAt, &item.CreatedAt); err != nil {
		return Member{}, err
	}
	if onlineAt.Valid {
		t := onlineAt.Time
		item.OnlineAt = &t
	}
	return item, nil
}

func (s *PostgresStore) GetMember(ctx context.Context, memberID string) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, memberID))
}

func (s *PostgresStore) GetMemberByWorkspaceUser(ctx context.Context, workspaceID, userID string) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE workspace_id=$1 AND user_id=$2
	`, workspaceID, userID))
}

func (s *PostgresStore) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		item, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertMember(ctx context.Context, item Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, user_id, workspace_id, role)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.UserID, item.WorkspaceID, item.Role)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMemberRole(ctx context.Context, memberID, role string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET role=$2 WHERE id=$1`, memberID, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchMemberOnline(ctx context.Context, memberID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET online_at=$2 WHERE id=$1`, memberID, at)
	if err != nil {
		return fmt.Errorf("touch member online: %w", err)
	}
	return nil
}

// DeleteMemberCascade removes a member with its messages, reactions and the
// conversations it takes part in. Target ids are collected first and deleted in
// a single transaction; on failure the transaction is rolled back and the error
// wraps ErrCascadeAborted.
func (s *PostgresStore) DeleteMemberCascade(ctx context.Context, memberID string) (CascadeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CascadeResult{}, fmt.Errorf("begin member cascade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result CascadeResult
	if result.MessageIDs, err = collectIDs(ctx, tx, `SELECT id FROM messages WHERE member_id=$1`, memberID); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: collect messages: %v", ErrCascadeAborted, err)
	}
	if result.ReactionIDs, err = collectIDs(ctx, tx, `SELECT id FROM reactions WHERE member_id=$1`, memberID); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: collect reactions: %v", ErrCascadeAborted, err)
	}
	if result.ConversationIDs, err = collectIDs(ctx, tx, `SELECT id FROM conversations WHERE member_one_id=$1 OR member_two_id=$1`, memberID); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: collect conversations: %v", ErrCascadeAborted, err)
	}
	if result.DependentMessageIDs, err = collectIDs(ctx, tx, `
		SELECT id FROM messages
		WHERE member_id <> $1
		  AND (parent_message_id IN (SELECT id FROM messages WHERE member_id=$1)
		       OR conversation_id IN (SELECT id FROM conversations WHERE member_one_id=$1 OR member_two_id=$1))
	`, memberID); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: collect dependent messages: %v", ErrCascadeAborted, err)
	}

	steps := []struct {
		label string
		query string
		ids   []string
	}{
		{label: "reactions", query: `DELETE FROM reactions WHERE id = ANY($1)`, ids: result.ReactionIDs},
		{label: "messages", query: `DELETE FROM messages WHERE id = ANY($1)`, ids: result.MessageIDs},
		{label: "conversations", query: `DELETE FROM conversations WHERE id = ANY($1)`, ids: result.ConversationIDs},
	}
	for _, step := range steps {
		if len(step.ids) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.query, step.ids); err != nil {
			return CascadeResult{}, fmt.Errorf("%w: delete %s: %v", ErrCascadeAborted, step.label, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id=$1`, memberID); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: delete member: %v", ErrCascadeAborted, err)
	}
	if err := tx.Commit(); err != nil {
		return CascadeResult{}, fmt.Errorf("%w: commit: %v", ErrCascadeAborted, err)
	}
	return result, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func collectIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- member preferences ---

const preferenceColumns = `id, user_id, member_id, workspace_id,
	COALESCE(full_name, ''), COALESCE(display_name, ''), COALESCE(title, ''),
	COALESCE(pronunciation, ''), COALESCE(time_zone, ''), COALESCE(image, ''),
	COALESCE(navigation::text, '[]'), created_at`

func scanPreference(row interface{ Scan(...any) error }) (MemberPreference, error) {
	var item MemberPreference
	var navigation string
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.MemberID,
		&item.WorkspaceID,
		&item.FullName,
		&item.DisplayName,
		&item.Title,
		&item.Pronunciation,
		&item.TimeZone,
		&item.Image,
		&navigation,
		&item.CreatedAt,
	); err != nil {
		return MemberPreference{}, err
	}
	if err := json.Unmarshal([]byte(navigation), &item.Navigation); err != nil {
		return MemberPreference{}, fmt.Errorf("decode navigation: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) GetPreferenceByMember(ctx context.Context, memberID, userID string) (MemberPreference, error) {
	return scanPreference(s.db.QueryRowContext(ctx, `
		SELECT `+preferenceColumns+`
		FROM member_preferences
		WHERE member_id=$1 AND user_id=$2
	`, memberID, userID))
}

func (s *PostgresStore) GetPreferenceByUserWorkspace(ctx context.Context, userID, workspaceID string) (MemberPreference, error) {
	return scanPreference(s.db.QueryRowContext(ctx, `
		SELECT `+preferenceColumns+`
		FROM member_preferences
		WHERE user_id=$1 AND workspace_id=$2
		ORDER BY created_at ASC
		LIMIT 1
	`, userID, workspaceID))
}

func (s *PostgresStore) InsertPreference(ctx context.Context, item MemberPreference) error {
	navigation, err := json.Marshal(nonNilStrings(item.Navigation))
	if err != nil {
		return fmt.Errorf("encode navigation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO member_preferences (id, user_id, member_id, workspace_id, full_name, display_name, image, navigation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, item.ID, item.UserID, item.MemberID, item.WorkspaceID, nullable(item.FullName), nullable(item.DisplayName), nullable(item.Image), string(navigation))
	if err != nil {
		return fmt.Errorf("insert preference: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePreferenceProfile(ctx context.Context, preferenceID string, profile PreferenceProfile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE member_preferences
		SET full_name=$2, display_name=$3, title=$4, pronunciation=$5, time_zone=$6
		WHERE id=$1
	`, preferenceID,
		nullable(profile.FullName),
		nullable(profile.DisplayName),
		nullable(profile.Title),
		nullable(profile.Pronunciation),
		nullable(profile.TimeZone),
	)
	if err != nil {
		return fmt.Errorf("update preference profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePreferenceImage(ctx context.Context, preferenceID, image string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE member_preferences SET image=$2 WHERE id=$1`, preferenceID, nullable(image))
	if err != nil {
		return fmt.Errorf("update preference image: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePreferenceNavigation(ctx context.Context, preferenceID string, navigation []string) error {
	encoded, err := json.Marshal(nonNilStrings(navigation))
	if err != nil {
		return fmt.Errorf("encode navigation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE member_preferences SET navigation=$2::jsonb WHERE id=$1`, preferenceID, string(encoded))
	if err != nil {
		return fmt.Errorf("update preference navigation: %w", err)
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// --- channels ---

func scanChannel(row interface{ Scan(...any) error }) (Channel, error) {
	var item Channel
	err := row.Scan(&item.ID, &item.Name, &item.WorkspaceID, &item.CreatedBy, &item.CreatedAt)
	return item, err
}

func (s *PostgresStore) ListChannels(ctx context.Context, workspaceID string) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, workspace_id, COALESCE(created_by, ''), created_at
		FROM channels
		WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	items := make([]Channel, 0)
	for rows.Next() {
		item, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	return scanChannel(s.db.QueryRowContext(ctx, `
		SELECT id, name, workspace_id, COALESCE(created_by, ''), created_at
		FROM channels
		WHERE id=$1
	`, channelID))
}

func (s *PostgresStore) InsertChannel(ctx context.Context, item Channel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, name, workspace_id, created_by)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.Name, item.WorkspaceID, nullable(item.CreatedBy))
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateChannelName(ctx context.Context, channelID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE channels SET name=$2 WHERE id=$1`, channelID, name)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return nil
}

// DeleteChannel removes the channel; its messages go with it through the
// foreign key.
// DeleteChannel removes a channel and its messages, returning the message ids.
func (s *PostgresStore) DeleteChannel(ctx context.Context, channelID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete channel: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := collectIDs(ctx, tx, `DELETE FROM messages WHERE channel_id=$1 RETURNING id`, channelID)
	if err != nil {
		return nil, fmt.Errorf("delete channel messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID); err != nil {
		return nil, fmt.Errorf("delete channel: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete channel: %w", err)
	}
	return ids, nil
}

// --- conversations ---

const conversationColumns = `id, workspace_id, member_one_id, member_two_id, user_one_id, user_two_id, created_at`

func scanConversation(row interface{ Scan(...any) error }) (Conversation, error) {
	var item Conversation
	err := row.Scan(&item.ID, &item.WorkspaceID, &item.MemberOneID, &item.MemberTwoID, &item.UserOneID, &item.UserTwoID, &item.CreatedAt)
	return item, err
}

func (s *PostgresStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID))
}

// FindConversation looks up the conversation between two members in either order.
func (s *PostgresStore) FindConversation(ctx context.Context, workspaceID, memberA, memberB string) (Conversation, error) {
	return scanConversation(s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE workspace_id=$1
		  AND ((member_one_id=$2 AND member_two_id=$3) OR (member_one_id=$3 AND member_two_id=$2))
		LIMIT 1
	`, workspaceID, memberA, memberB))
}

func (s *PostgresStore) ListConversationsForMember(ctx context.Context, workspaceID, memberID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE workspace_id=$1 AND (member_one_id=$2 OR member_two_id=$2)
		ORDER BY created_at DESC
	`, workspaceID, memberID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		item, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertConversation(ctx context.Context, item Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, workspace_id, member_one_id, member_two_id, user_one_id, user_two_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.WorkspaceID, item.MemberOneID, item.MemberTwoID, item.UserOneID, item.UserTwoID)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}
