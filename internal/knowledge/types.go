package knowledge

import "time"

// VectorDimension is the width of the documents.embedding column. Longer
// embeddings are truncated and renormalized on write and on query.
const VectorDimension = 768

// Document is one stored passage of the school corpus.
type Document struct {
	ID        string            // unique identifier, stable across reindexes
	Content   string            // passage text
	Metadata  map[string]string // source, url, section, subsection
	CreatedAt time.Time
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity, 0-1
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int32
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter restricts results to documents whose metadata contains the
// given key/value pair. Multiple filters combine with AND logic.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout bounds the whole search including embedding generation.
// Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
