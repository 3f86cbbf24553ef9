package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/sunmarke/assistant/internal/knowledge"
	"github.com/sunmarke/assistant/internal/log"
)

// Source marks every corpus chunk in document metadata, so a rebuild can
// clear exactly the documents it owns.
const Source = "corpus"

// lockRetryDelay is how often a blocked rebuild re-attempts the file lock.
const lockRetryDelay = 250 * time.Millisecond

// DocumentStore is the slice of the knowledge store the indexer needs.
type DocumentStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	Count(ctx context.Context, filter map[string]string) (int, error)
	DeleteBySource(ctx context.Context, source string) (int64, error)
}

// Indexer builds the corpus index. Rebuilds across processes are
// serialized with a file lock under the data directory.
type Indexer struct {
	store      DocumentStore
	corpusPath string
	lockPath   string
	chunkSize  int
	logger     log.Logger
}

// Config holds the required parameters for an Indexer.
type Config struct {
	Store      DocumentStore
	CorpusPath string // path to the corpus JSON file
	DataDir    string // directory for the reindex lock file
	ChunkSize  int    // 0 uses DefaultChunkSize
	Logger     log.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(cfg Config) (*Indexer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("corpus: store is required")
	}
	if cfg.CorpusPath == "" {
		return nil, fmt.Errorf("corpus: corpus path is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("corpus: data dir is required")
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Indexer{
		store:      cfg.Store,
		corpusPath: cfg.CorpusPath,
		lockPath:   filepath.Join(cfg.DataDir, "reindex.lock"),
		chunkSize:  chunkSize,
		logger:     logger,
	}, nil
}

// EnsureIndexed builds the index only when the store holds no corpus
// documents yet. This is the startup policy: an existing index is reused
// as-is, never rebuilt implicitly.
func (ix *Indexer) EnsureIndexed(ctx context.Context) error {
	count, err := ix.store.Count(ctx, map[string]string{"source": Source})
	if err != nil {
		return fmt.Errorf("checking corpus index: %w", err)
	}
	if count > 0 {
		ix.logger.Info("corpus index present", "documents", count)
		return nil
	}

	ix.logger.Info("corpus index empty, building")
	return ix.Rebuild(ctx)
}

// Rebuild wipes the corpus documents and reindexes the corpus file from
// scratch. Concurrent rebuilds, including ones from other processes, wait
// on a file lock; the context bounds the wait.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(ix.lockPath), 0o750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	fileLock := flock.New(ix.lockPath)
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring reindex lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("reindex lock held by another process")
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			ix.logger.Warn("releasing reindex lock", "error", err)
		}
	}()

	records, err := Load(ix.corpusPath)
	if err != nil {
		return err
	}

	deleted, err := ix.store.DeleteBySource(ctx, Source)
	if err != nil {
		return fmt.Errorf("clearing old index: %w", err)
	}

	start := time.Now()
	chunks := 0
	for _, rec := range records {
		for i, chunk := range SplitText(rec.Content, ix.chunkSize) {
			doc := knowledge.Document{
				ID:      fmt.Sprintf("%s-%d-%d", Source, rec.ID, i),
				Content: chunk,
				Metadata: map[string]string{
					"source":     Source,
					"url":        rec.URL,
					"section":    rec.Section,
					"subsection": rec.Subsection,
				},
			}
			if err := ix.store.Add(ctx, doc); err != nil {
				return fmt.Errorf("indexing record %d chunk %d: %w", rec.ID, i, err)
			}
			chunks++
		}
	}

	ix.logger.Info("corpus reindexed",
		"records", len(records),
		"chunks", chunks,
		"replaced", deleted,
		"elapsed", time.Since(start),
	)
	return nil
}
