package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const messageColumns = `id, body, COALESCE(image, ''), member_id, workspace_id,
	COALESCE(channel_id, ''), COALESCE(conversation_id, ''), COALESCE(parent_message_id, ''),
	COALESCE(forward_message_id, ''), updated_at, created_at`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var (
		item                                Message
		channelID, conversationID, parentID string
		updatedAt                           sql.NullTime
	)
	if err := row.Scan(
		&item.ID,
		&item.Body,
		&item.Image,
		&item.MemberID,
		&item.WorkspaceID,
		&channelID,
		&conversationID,
		&parentID,
		&item.ForwardMessageID,
		&updatedAt,
		&item.CreatedAt,
	); err != nil {
		return Message{}, err
	}
	scope, err := ScopeFromColumns(channelID, conversationID, parentID)
	if err != nil {
		return Message{}, err
	}
	item.Scope = scope
	if updatedAt.Valid {
		t := updatedAt.Time
		item.UpdatedAt = &t
	}
	return item, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID))
}

// EncodeCursor packs the keyset position of a message into an opaque token.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return time.Unix(0, n).UTC(), id, nil
}

// ListMessages pages through a scope newest first. Channel and conversation
// scopes list top-level messages only; a thread scope lists its replies.
func (s *PostgresStore) ListMessages(ctx context.Context, scope MessageScope, cursor string, limit int) (MessagePage, error) {
	if limit <= 0 {
		return MessagePage{}, fmt.Errorf("list messages: limit must be positive")
	}

	var (
		where string
		args  []any
	)
	switch scope.Kind() {
	case ScopeChannel:
		where = `channel_id=$1 AND parent_message_id IS NULL`
		args = append(args, scope.ChannelID())
	case ScopeConversation:
		where = `conversation_id=$1 AND parent_message_id IS NULL`
		args = append(args, scope.ConversationID())
	case ScopeThread:
		where = `parent_message_id=$1`
		args = append(args, scope.ParentMessageID())
	default:
		return MessagePage{}, ErrInvalidScope
	}

	if cursor != "" {
		createdAt, id, err := DecodeCursor(cursor)
		if err != nil {
			return MessagePage{}, err
		}
		where += fmt.Sprintf(` AND (created_at, id) < ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, createdAt, id)
	}
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return MessagePage{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0, limit+1)
	for rows.Next() {
		item, err := scanMessage(rows)
		if err != nil {
			return MessagePage{}, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return MessagePage{}, fmt.Errorf("iterate messages: %w", err)
	}

	page := MessagePage{Page: items, IsDone: true}
	if len(items) > limit {
		page.Page = items[:limit]
		page.IsDone = false
	}
	if len(page.Page) > 0 {
		last := page.Page[len(page.Page)-1]
		page.ContinueFrom = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (s *PostgresStore) InsertMessage(ctx context.Context, item Message) error {
	if item.Scope.IsZero() {
		return ErrInvalidScope
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, body, image, member_id, workspace_id, channel_id, conversation_id, parent_message_id, forward_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID,
		item.Body,
		nullable(item.Image),
		item.MemberID,
		item.WorkspaceID,
		nullable(item.Scope.ChannelID()),
		nullable(item.Scope.ConversationID()),
		nullable(item.Scope.ParentMessageID()),
		nullable(item.ForwardMessageID),
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMessageBody(ctx context.Context, messageID, body string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET body=$2, updated_at=$3 WHERE id=$1`, messageID, body, at)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return expectAffected(res)
}

// DeleteMessage removes a message together with its thread replies and
// returns the ids of every deleted row.
func (s *PostgresStore) DeleteMessage(ctx context.Context, messageID string) ([]string, error) {
	ids, err := collectIDs(ctx, s.db, `DELETE FROM messages WHERE id=$1 OR parent_message_id=$1 RETURNING id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	return ids, nil
}

// ThreadSummary counts the direct replies of a message and returns the newest one.
func (s *PostgresStore) ThreadSummary(ctx context.Context, parentID string) (ThreadSummary, error) {
	var summary ThreadSummary
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE parent_message_id=$1`, parentID).Scan(&summary.Count); err != nil {
		return ThreadSummary{}, fmt.Errorf("count thread replies: %w", err)
	}
	if summary.Count == 0 {
		return summary, nil
	}
	last, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE parent_message_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, parentID))
	if err != nil {
		return ThreadSummary{}, fmt.Errorf("load last reply: %w", err)
	}
	summary.LastReply = &last
	return summary, nil
}

// ListThreadAuthors returns the distinct members who wrote the root message or
// any reply under it.
func (s *PostgresStore) ListThreadAuthors(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, MIN(created_at) AS first_at
		FROM messages
		WHERE id=$1 OR parent_message_id=$1
		GROUP BY member_id
		ORDER BY first_at ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list thread authors: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var (
			id      string
			firstAt time.Time
		)
		if err := rows.Scan(&id, &firstAt); err != nil {
			return nil, fmt.Errorf("scan thread author: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread authors: %w", err)
	}
	return ids, nil
}

// --- reactions ---

func scanReaction(row interface{ Scan(...any) error }) (Reaction, error) {
	var item Reaction
	err := row.Scan(&item.ID, &item.WorkspaceID, &item.MessageID, &item.MemberID, &item.Value, &item.CreatedAt)
	return item, err
}

func (s *PostgresStore) ListReactions(ctx context.Context, messageID string) ([]Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id=$1
		ORDER BY created_at ASC, id ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	items := make([]Reaction, 0)
	for rows.Next() {
		item, err := scanReaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) FindReaction(ctx context.Context, messageID, memberID, value string) (Reaction, error) {
	return scanReaction(s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id=$1 AND member_id=$2 AND value=$3
		ORDER BY created_at ASC
		LIMIT 1
	`, messageID, memberID, value))
}

func (s *PostgresStore) InsertReaction(ctx context.Context, item Reaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reactions (id, workspace_id, message_id, member_id, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, member_id, value) DO NOTHING
	`, item.ID, item.WorkspaceID, item.MessageID, item.MemberID, item.Value)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reactionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reactions WHERE id=$1`, reactionID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
