// Package app wires the application together.
//
// Construction is two-phase: Setup builds every component without touching
// the corpus (cheap, fails fast on bad config or an unreachable database),
// and WarmUp makes the knowledge index ready before the first question.
// Entry points call Setup, then WarmUp, then hand questions to Pipeline.
package app

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunmarke/assistant/internal/config"
	"github.com/sunmarke/assistant/internal/knowledge"
	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/pipeline"
	"github.com/sunmarke/assistant/internal/session"
)

// CorpusIndexer prepares the knowledge index. Implemented by
// corpus.Indexer; an interface here keeps WarmUp testable without a
// database.
type CorpusIndexer interface {
	// EnsureIndexed builds the index only when the store holds no corpus
	// documents.
	EnsureIndexed(ctx context.Context) error

	// Rebuild wipes the corpus documents and indexes the corpus file from
	// scratch.
	Rebuild(ctx context.Context) error
}

// App is the application container. Fields are populated by Setup and
// read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Sessions  *session.Store
	Pipeline  *pipeline.Pipeline
	Indexer   CorpusIndexer

	warmOnce sync.Once
	warmErr  error

	otelCleanup func()
}

// WarmUp makes the knowledge index ready: when the store already holds
// corpus documents it is a no-op, otherwise the corpus file is chunked,
// embedded and indexed. Idempotent; concurrent callers share one result.
func (a *App) WarmUp(ctx context.Context) error {
	a.warmOnce.Do(func() {
		a.Logger.Debug("warming up knowledge index")
		a.warmErr = a.Indexer.EnsureIndexed(ctx)
	})
	return a.warmErr
}

// Reindex rebuilds the knowledge index from the corpus file, replacing
// whatever is indexed. Unlike WarmUp it always does the work.
func (a *App) Reindex(ctx context.Context) error {
	return a.Indexer.Rebuild(ctx)
}

// Close releases all resources. Safe to call on a partially constructed
// App, which is how Setup cleans up after a mid-construction failure.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Debug("shutting down")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
