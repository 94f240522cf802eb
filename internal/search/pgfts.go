package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher over the generated messages.fts column.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres the API is down anyway.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `m.fts @@ plainto_tsquery('english', $1) AND m.workspace_id = $2 AND m.channel_id IS NOT NULL`
	args := []any{q.Text, q.WorkspaceID}
	if q.ChannelID != "" {
		where += ` AND m.channel_id = $3`
		args = append(args, q.ChannelID)
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM messages m WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT m.id,
			ts_headline('english', m.body, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>'),
			m.workspace_id, m.channel_id, m.member_id, COALESCE(m.parent_message_id, ''), m.created_at
		FROM messages m
		WHERE %s
		ORDER BY ts_rank(m.fts, plainto_tsquery('english', $1)) DESC, m.created_at DESC
		LIMIT %d OFFSET %d`, where, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Snippet, &r.WorkspaceID, &r.ChannelID, &r.MemberID, &r.ParentMessage, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every channel message for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]MessageRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, body, workspace_id, channel_id, member_id, COALESCE(parent_message_id, ''),
			(EXTRACT(EPOCH FROM created_at) * 1000)::bigint
		FROM messages
		WHERE channel_id IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	records := make([]MessageRecord, 0)
	for rows.Next() {
		var r MessageRecord
		if err := rows.Scan(&r.ID, &r.Body, &r.WorkspaceID, &r.ChannelID, &r.MemberID, &r.ParentMessageID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message records: %w", err)
	}
	return records, nil
}
