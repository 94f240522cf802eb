package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const notificationColumns = `id, user_id, workspace_id,
	COALESCE(channel_id, ''), COALESCE(conversation_id, ''), COALESCE(parent_message_id, ''),
	COALESCE(message_id, ''), COALESCE(reaction_id, ''), type, status, sender_id,
	COALESCE(sender_member_id, ''), content, created_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var item Notification
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.WorkspaceID,
		&item.ChannelID,
		&item.ConversationID,
		&item.ParentMessageID,
		&item.MessageID,
		&item.ReactionID,
		&item.Type,
		&item.Status,
		&item.SenderID,
		&item.SenderMemberID,
		&item.Content,
		&item.CreatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertNotification(ctx context.Context, item Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, workspace_id, channel_id, conversation_id, parent_message_id,
			message_id, reaction_id, type, status, sender_id, sender_member_id, content, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, item.ID,
		item.UserID,
		item.WorkspaceID,
		nullable(item.ChannelID),
		nullable(item.ConversationID),
		nullable(item.ParentMessageID),
		nullable(item.MessageID),
		nullable(item.ReactionID),
		string(item.Type),
		string(item.Status),
		item.SenderID,
		nullable(item.SenderMemberID),
		item.Content,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the recipient's notifications newest first. When
// both ChannelID and ConversationID are set, rows matching either are returned.
func (s *PostgresStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]Notification, error) {
	clauses := []string{`user_id=$1`, `workspace_id=$2`}
	args := []any{filter.UserID, filter.WorkspaceID}
	next := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.UnreadOnly {
		clauses = append(clauses, `status='unread'`)
	}
	var subject []string
	if filter.ChannelID != "" {
		subject = append(subject, `channel_id=`+next(filter.ChannelID))
	}
	if filter.ConversationID != "" {
		subject = append(subject, `conversation_id=`+next(filter.ConversationID))
	}
	if len(subject) > 0 {
		clauses = append(clauses, "("+strings.Join(subject, " OR ")+")")
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		clauses = append(clauses, `type = ANY(`+next(types)+`)`)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListDirectNotifications returns direct notifications the user sent or received.
func (s *PostgresStore) ListDirectNotifications(ctx context.Context, workspaceID, userID string, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE workspace_id=$1 AND type='direct' AND (user_id=$2 OR sender_id=$2)`
	if unreadOnly {
		query += ` AND status='unread'`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list direct notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// MarkNotificationsRead flips matching unread rows to read and returns their ids.
// An empty filter matches nothing.
func (s *PostgresStore) MarkNotificationsRead(ctx context.Context, filter MarkReadFilter) ([]string, error) {
	if filter.Empty() {
		return []string{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		UPDATE notifications
		SET status='read'
		WHERE user_id=$1
		  AND workspace_id=$2
		  AND status='unread'
		  AND (
			($3::text <> '' AND channel_id=$3)
			OR ($4::text <> '' AND conversation_id=$4)
			OR ($5::text <> '' AND message_id=$5)
		  )
		RETURNING id
	`, filter.UserID, filter.WorkspaceID, filter.ChannelID, filter.ConversationID, filter.MessageID)
	if err != nil {
		return nil, fmt.Errorf("mark notifications read: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, workspaceID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE workspace_id=$1 AND user_id=$2 AND status='unread'
	`, workspaceID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Next() bool
	Scan(...any) error
	Err() error
}

func collectNotifications(rows rowScanner) ([]Notification, error) {
	items := make([]Notification, 0)
	for rows.Next() {
		item, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

// --- save for later ---

const savedLaterColumns = `id, member_id, message_id, workspace_id,
	COALESCE(channel_id, ''), COALESCE(conversation_id, ''), COALESCE(parent_message_id, ''),
	status, created_at, updated_at`

func scanSavedLater(row interface{ Scan(...any) error }) (SavedLater, error) {
	var item SavedLater
	err := row.Scan(
		&item.ID,
		&item.MemberID,
		&item.MessageID,
		&item.WorkspaceID,
		&item.ChannelID,
		&item.ConversationID,
		&item.ParentMessageID,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) GetSavedLater(ctx context.Context, id string) (SavedLater, error) {
	return scanSavedLater(s.db.QueryRowContext(ctx, `SELECT `+savedLaterColumns+` FROM saved_laters WHERE id=$1`, id))
}

func (s *PostgresStore) FindSavedLater(ctx context.Context, memberID, messageID string) (SavedLater, error) {
	return scanSavedLater(s.db.QueryRowContext(ctx, `
		SELECT `+savedLaterColumns+`
		FROM saved_laters
		WHERE member_id=$1 AND message_id=$2
	`, memberID, messageID))
}

func (s *PostgresStore) InsertSavedLater(ctx context.Context, item SavedLater) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_laters (id, member_id, message_id, workspace_id, channel_id, conversation_id, parent_message_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID,
		item.MemberID,
		item.MessageID,
		item.WorkspaceID,
		nullable(item.ChannelID),
		nullable(item.ConversationID),
		nullable(item.ParentMessageID),
		string(item.Status),
	)
	if err != nil {
		return fmt.Errorf("insert saved later: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSavedLaterStatus(ctx context.Context, id string, status SavedLaterStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE saved_laters SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update saved later: %w", err)
	}
	return expectAffected(res)
}

func (s *PostgresStore) DeleteSavedLater(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM saved_laters WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete saved later: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSavedLater(ctx context.Context, memberID string, status SavedLaterStatus) ([]SavedLater, error) {
	query := `SELECT ` + savedLaterColumns + ` FROM saved_laters WHERE member_id=$1`
	args := []any{memberID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saved later: %w", err)
	}
	defer rows.Close()

	items := make([]SavedLater, 0)
	for rows.Next() {
		item, err := scanSavedLater(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved later: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved later: %w", err)
	}
	return items, nil
}
