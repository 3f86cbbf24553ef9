package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/sunmarke/assistant/db"
	"github.com/sunmarke/assistant/internal/config"
	"github.com/sunmarke/assistant/internal/corpus"
	"github.com/sunmarke/assistant/internal/knowledge"
	"github.com/sunmarke/assistant/internal/llm"
	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/pipeline"
	"github.com/sunmarke/assistant/internal/session"
	"github.com/sunmarke/assistant/internal/websearch"
)

// Setup constructs the application: trace exporter, database pool with
// migrations, Genkit with the Google AI plugin, the stores, the model
// client and the answer pipeline. It does not touch the corpus; call
// WarmUp for that. On failure everything already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideTracing(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Knowledge = knowledge.New(knowledge.NewQuerier(pool), a.Embedder,
		logger.With("component", "knowledge"))
	a.Sessions = session.New(session.NewQuerier(pool),
		logger.With("component", "session"))

	model, err := provideModelClient(cfg, g, logger)
	if err != nil {
		return nil, err
	}

	web, err := websearch.New(websearch.Config{
		BaseURL: cfg.SearXNG.BaseURL,
		Logger:  logger.With("component", "websearch"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating web search client: %w", err)
	}

	indexer, err := corpus.NewIndexer(corpus.Config{
		Store:      a.Knowledge,
		CorpusPath: cfg.CorpusPath,
		DataDir:    cfg.DataDir,
		Logger:     logger.With("component", "corpus"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating corpus indexer: %w", err)
	}
	a.Indexer = indexer

	p, err := providePipeline(cfg, model, a.Knowledge, web, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = p

	return a, nil
}

// provideTracing sets up OTLP trace export before Genkit initialization,
// so spans from model calls land on the registered processor. The exporter
// targets a local collector over OTLP HTTP; the collector handles
// authentication and forwarding.
//
// Tracing failures never abort startup. A broken collector costs traces,
// not answers.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tc := cfg.Tracing
	if !tc.Enabled {
		return func() {}
	}

	agentHost := tc.AgentHost
	if agentHost == "" {
		agentHost = "localhost:4318"
	}

	// Genkit's TracerProvider reads these at span creation.
	// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly once
	// at startup before any goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"collector", agentHost,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. Call ordering
// in Setup ensures tracing is registered first.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideModelClient creates the shared Gemini client. A single client
// serves completions, binary grading and route classification, so the
// request rate limit covers every model call the pipeline makes.
func provideModelClient(cfg *config.Config, g *genkit.Genkit, logger log.Logger) (*llm.Client, error) {
	var limiter *rate.Limiter
	if cfg.LLMRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LLMRateLimit), 5)
	}

	client, err := llm.New(llm.Config{
		Genkit:      g,
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		RateLimiter: limiter,
		Logger:      logger.With("component", "llm"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	return client, nil
}

// providePipeline assembles the answer pipeline around the shared model
// client and the knowledge retriever.
func providePipeline(cfg *config.Config, model *llm.Client, store *knowledge.Store, web *websearch.Client, logger log.Logger) (*pipeline.Pipeline, error) {
	plLogger := logger.With("component", "pipeline")
	graders := pipeline.NewGraders(model)

	p, err := pipeline.New(pipeline.Config{
		Router:     pipeline.NewRouter(model, plLogger),
		Retriever:  knowledge.NewRetriever(store, plLogger),
		Web:        web,
		Relevance:  graders,
		Grounded:   graders,
		Adequacy:   graders,
		Rewriter:   pipeline.NewRewriter(model),
		Generator:  pipeline.NewGenerator(model, web, plLogger),
		MaxRetries: cfg.MaxRetries,
		Logger:     plLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("assembling pipeline: %w", err)
	}
	return p, nil
}
