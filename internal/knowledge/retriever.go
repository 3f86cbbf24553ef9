package knowledge

import (
	"context"
	"fmt"

	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/pipeline"
)

// Retriever adapts the Store to the answer pipeline. It fetches the single
// best-matching corpus passage for a question; relevance filtering is the
// pipeline's job, not the retriever's.
type Retriever struct {
	store  *Store
	logger log.Logger
}

// NewRetriever creates a Retriever over the given store.
func NewRetriever(store *Store, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{store: store, logger: logger}
}

// Retrieve returns the top-1 passage for the question, or an empty slice
// when the corpus has no candidates at all.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]pipeline.Passage, error) {
	results, err := r.store.Search(ctx, question, WithTopK(1))
	if err != nil {
		return nil, fmt.Errorf("corpus search: %w", err)
	}

	passages := make([]pipeline.Passage, 0, len(results))
	for _, res := range results {
		r.logger.Debug("retrieved passage",
			"id", res.Document.ID,
			"similarity", res.Similarity,
		)
		passages = append(passages, pipeline.Passage{
			Text:     res.Document.Content,
			Metadata: res.Document.Metadata,
		})
	}
	return passages, nil
}
