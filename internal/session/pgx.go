package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgxpool.Pool the querier needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxQuerier implements Querier against PostgreSQL.
type PgxQuerier struct {
	db DB
}

// NewQuerier creates a PgxQuerier on the given connection pool.
func NewQuerier(db DB) *PgxQuerier {
	return &PgxQuerier{db: db}
}

func (q *PgxQuerier) CreateSession(ctx context.Context, title *string) (SessionRow, error) {
	var row SessionRow
	err := q.db.QueryRow(ctx, `
		INSERT INTO sessions (title)
		VALUES ($1)
		RETURNING id, title, message_count, created_at, updated_at`,
		title,
	).Scan(&row.ID, &row.Title, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return SessionRow{}, fmt.Errorf("create session: %w", err)
	}
	return row, nil
}

func (q *PgxQuerier) GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error) {
	var row SessionRow
	err := q.db.QueryRow(ctx, `
		SELECT id, title, message_count, created_at, updated_at
		FROM sessions
		WHERE id = $1`,
		id,
	).Scan(&row.ID, &row.Title, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRow{}, ErrNotFound
	}
	if err != nil {
		return SessionRow{}, fmt.Errorf("get session: %w", err)
	}
	return row, nil
}

func (q *PgxQuerier) ListSessions(ctx context.Context, limit, offset int32) ([]SessionRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, title, message_count, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.ID, &row.Title, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return results, nil
}

func (q *PgxQuerier) DeleteSession(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *PgxQuerier) AddMessage(ctx context.Context, arg AddMessageParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO messages (session_id, role, content, sequence_number)
		VALUES ($1, $2, $3, $4)`,
		arg.SessionID, arg.Role, arg.Content, arg.SequenceNumber,
	)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

func (q *PgxQuerier) GetMessages(ctx context.Context, arg GetMessagesParams) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, session_id, role, content, sequence_number, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY sequence_number ASC
		LIMIT $2 OFFSET $3`,
		arg.SessionID, arg.ResultLimit, arg.ResultOffset,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var results []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Role, &row.Content, &row.SequenceNumber, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return results, nil
}

func (q *PgxQuerier) MaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	var maxSeq int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0)
		FROM messages
		WHERE session_id = $1`,
		sessionID,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("max sequence number: %w", err)
	}
	return maxSeq, nil
}

func (q *PgxQuerier) TouchSession(ctx context.Context, id pgtype.UUID, messageCount int32) error {
	_, err := q.db.Exec(ctx, `
		UPDATE sessions
		SET message_count = $2, updated_at = now()
		WHERE id = $1`,
		id, messageCount,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
