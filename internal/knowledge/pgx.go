package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the querier needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxQuerier implements Querier against PostgreSQL with pgvector.
type PgxQuerier struct {
	db DB
}

// NewQuerier creates a PgxQuerier on the given connection pool.
func NewQuerier(db DB) *PgxQuerier {
	return &PgxQuerier{db: db}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

func (q *PgxQuerier) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

const searchDocumentsFilteredSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`

func (q *PgxQuerier) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if arg.FilterMetadata != nil {
		rows, err = q.db.Query(ctx, searchDocumentsFilteredSQL,
			arg.QueryEmbedding, arg.FilterMetadata, arg.ResultLimit)
	} else {
		rows, err = q.db.Query(ctx, searchDocumentsSQL,
			arg.QueryEmbedding, arg.ResultLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return results, nil
}

func (q *PgxQuerier) CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	var count int64
	var err error
	if filterMetadata != nil {
		err = q.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE metadata @> $1`, filterMetadata).Scan(&count)
	} else {
		err = q.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (q *PgxQuerier) DeleteDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM documents WHERE metadata @> $1`, filterMetadata)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return tag.RowsAffected(), nil
}
