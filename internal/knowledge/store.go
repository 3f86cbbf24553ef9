package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/sunmarke/assistant/internal/log"
)

// UpsertDocumentParams carries one document write.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// SearchDocumentsParams carries one vector search. A nil FilterMetadata
// searches the whole corpus.
type SearchDocumentsParams struct {
	QueryEmbedding *pgvector.Vector
	FilterMetadata []byte
	ResultLimit    int32
}

// DocumentRow is one row returned by a vector search.
type DocumentRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float64
}

// Querier defines the database operations the Store depends on. The
// interface is defined here, by the consumer, so tests can substitute a
// mock without a live database.
type Querier interface {
	// UpsertDocument inserts or replaces a document by ID.
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error

	// SearchDocuments performs a vector similarity search, optionally
	// restricted by a metadata containment filter.
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error)

	// CountDocuments counts documents matching the filter; nil counts all.
	CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error)

	// DeleteDocuments removes documents matching the filter and reports
	// how many were removed.
	DeleteDocuments(ctx context.Context, filterMetadata []byte) (int64, error)
}

// Store manages corpus documents with vector search. It handles embedding
// generation on both the write and the query path.
//
// Store is safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. A nil logger discards output.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds and upserts one document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: &embedding,
		Metadata:  metadataJSON,
		CreatedAt: pgtype.Timestamptz{Time: createdAt, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search embeds the query and returns the most similar documents, best
// first. The whole call is bounded by the configured timeout.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: &embedding,
		FilterMetadata: filterJSON,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of documents matching the filter. A nil or
// empty filter counts the whole corpus.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var filterJSON []byte
	if len(filter) > 0 {
		var err error
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	count, err := s.queries.CountDocuments(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// DeleteBySource removes every document whose metadata carries the given
// source value. Used by reindexing to clear a corpus before a rebuild.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	filterJSON, err := json.Marshal(map[string]string{"source": source})
	if err != nil {
		return 0, fmt.Errorf("marshaling filter: %w", err)
	}

	deleted, err := s.queries.DeleteDocuments(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("deleting documents for source %q: %w", source, err)
	}

	s.logger.Debug("deleted documents", "source", source, "count", deleted)
	return deleted, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(fitDimension(resp.Embeddings[0].Embedding)), nil
}

// fitDimension truncates an embedding to the documents.embedding column
// width and renormalizes. Gemini embeddings are Matryoshka representations,
// so a truncated prefix remains a valid lower-dimensional embedding.
func fitDimension(vec []float32) []float32 {
	if len(vec) <= VectorDimension {
		return vec
	}
	truncated := vec[:VectorDimension]

	var sumSquares float64
	for _, v := range truncated {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return truncated
	}

	normalized := make([]float32, VectorDimension)
	for i, v := range truncated {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}

func (s *Store) rowsToResults(rows []DocumentRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: createdAt,
			},
			Similarity: float32(row.Similarity),
		})
	}
	return results
}
