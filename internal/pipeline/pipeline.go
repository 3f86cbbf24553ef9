package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sunmarke/assistant/internal/log"
)

// step is a state of the orchestrator's state machine.
type step int

const (
	stepRoute step = iota
	stepRetrieve
	stepWebSearch
	stepGradeDocs
	stepGenerate
	stepGradeGeneration
	stepTransformQuery
	stepChatGenerate
	stepAccept
)

func (s step) String() string {
	switch s {
	case stepRoute:
		return "route"
	case stepRetrieve:
		return "retrieve"
	case stepWebSearch:
		return "web_search"
	case stepGradeDocs:
		return "grade_docs"
	case stepGenerate:
		return "generate"
	case stepGradeGeneration:
		return "grade_generation"
	case stepTransformQuery:
		return "transform_query"
	case stepChatGenerate:
		return "chat_generate"
	default:
		return "accept"
	}
}

// state is the mutable record threaded through one pipeline run. It is owned
// solely by the orchestrator and discarded when the run terminates.
type state struct {
	question   string    // current question, replaced by rewrites
	original   string    // question as asked, for logging
	evidence   []Passage // zero or one element, top-1 design
	answer     string
	retryCount int

	// webFallback marks that the single web lookup fallback for the current
	// retrieve cycle has been spent. Reset on every query rewrite.
	webFallback bool
}

// evidenceText flattens the evidence for prompts and grading.
func (s *state) evidenceText() string {
	if len(s.evidence) == 0 {
		return ""
	}
	return s.evidence[0].Text
}

// Config holds the collaborators of a Pipeline. All role fields are
// required except Logger.
type Config struct {
	Router     QuestionRouter
	Retriever  Retriever
	Web        WebSearcher
	Relevance  RelevanceGrader
	Grounded   GroundednessGrader
	Adequacy   AdequacyGrader
	Rewriter   QuestionRewriter
	Generator  AnswerGenerator
	MaxRetries int
	Logger     log.Logger
}

// Pipeline is the orchestrator: it sequences routing, retrieval, grading,
// generation and the rewrite loop for one question at a time. A Pipeline is
// immutable after construction and safe for concurrent use; each Run owns
// its state exclusively.
type Pipeline struct {
	router     QuestionRouter
	retriever  Retriever
	web        WebSearcher
	relevance  RelevanceGrader
	grounded   GroundednessGrader
	adequacy   AdequacyGrader
	rewriter   QuestionRewriter
	generator  AnswerGenerator
	maxRetries int
	logger     log.Logger
}

// New creates a Pipeline, validating that every collaborator is present.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Router == nil:
		return nil, errors.New("pipeline: router is required")
	case cfg.Retriever == nil:
		return nil, errors.New("pipeline: retriever is required")
	case cfg.Web == nil:
		return nil, errors.New("pipeline: web searcher is required")
	case cfg.Relevance == nil || cfg.Grounded == nil || cfg.Adequacy == nil:
		return nil, errors.New("pipeline: all three graders are required")
	case cfg.Rewriter == nil:
		return nil, errors.New("pipeline: rewriter is required")
	case cfg.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	return &Pipeline{
		router:     cfg.Router,
		retriever:  cfg.Retriever,
		web:        cfg.Web,
		relevance:  cfg.Relevance,
		grounded:   cfg.Grounded,
		adequacy:   cfg.Adequacy,
		rewriter:   cfg.Rewriter,
		generator:  cfg.Generator,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}, nil
}

// Run answers one question. It returns the final answer text, or an error
// wrapping ErrUnavailable when an external call fails unrecoverably. Budget
// exhaustion is not an error: the last generated answer is returned as a
// best effort rather than failing the request.
func (p *Pipeline) Run(ctx context.Context, question string) (string, error) {
	st := &state{question: question, original: question}

	route := p.router.Route(ctx, question)
	p.logger.Info("question routed", "route", route.String())

	var current step
	switch route {
	case RouteKnowledgeBase:
		current = stepRetrieve
	case RouteWebSearch:
		current = stepWebSearch
	default:
		current = stepChatGenerate
	}

	for current != stepAccept {
		p.logger.Debug("pipeline step", "step", current.String(), "retry_count", st.retryCount)

		var err error
		switch current {
		case stepChatGenerate:
			current, err = p.runChatGenerate(ctx, st)
		case stepRetrieve:
			current, err = p.runRetrieve(ctx, st)
		case stepWebSearch:
			current, err = p.runWebSearch(ctx, st)
		case stepGradeDocs:
			current, err = p.runGradeDocs(ctx, st)
		case stepGenerate:
			current, err = p.runGenerate(ctx, st)
		case stepGradeGeneration:
			current, err = p.runGradeGeneration(ctx, st)
		case stepTransformQuery:
			current, err = p.runTransformQuery(ctx, st, route)
		default:
			return "", fmt.Errorf("%w: unknown pipeline step %d", ErrUnavailable, current)
		}
		if err != nil {
			return "", err
		}
	}

	return st.answer, nil
}

// runChatGenerate handles the chat branch: one unconstrained completion,
// terminal immediately, no grading.
func (p *Pipeline) runChatGenerate(ctx context.Context, st *state) (step, error) {
	answer, err := p.generator.Chat(ctx, st.question)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st.answer = answer
	return stepAccept, nil
}

// runRetrieve fetches the top-1 passage from the knowledge base.
func (p *Pipeline) runRetrieve(ctx context.Context, st *state) (step, error) {
	passages, err := p.retriever.Retrieve(ctx, st.question)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(passages) > 1 {
		passages = passages[:1]
	}
	st.evidence = passages
	return stepGradeDocs, nil
}

// runWebSearch performs a live lookup and installs its result as the sole
// evidence passage. Web evidence goes straight to generation; an empty
// result falls through to a query rewrite.
func (p *Pipeline) runWebSearch(ctx context.Context, st *state) (step, error) {
	result, err := p.web.Search(ctx, st.question)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if passage, ok := result.Passage(); ok {
		st.evidence = []Passage{passage}
		return stepGenerate, nil
	}

	st.evidence = nil
	p.logger.Debug("web lookup returned no usable result")
	return stepTransformQuery, nil
}

// runGradeDocs filters the retrieved evidence through the relevance grader.
// A rejected passage triggers a single web lookup fallback before any query
// rewrite; retrieval is never retried against the same index without a
// reformulated question.
func (p *Pipeline) runGradeDocs(ctx context.Context, st *state) (step, error) {
	kept := st.evidence[:0:0]
	for _, passage := range st.evidence {
		grade, err := p.relevance.GradeRelevance(ctx, st.question, passage.Text)
		if err != nil {
			return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if grade.Yes() {
			kept = append(kept, passage)
		} else {
			p.logger.Debug("passage rejected as irrelevant")
		}
	}
	st.evidence = kept

	if len(st.evidence) > 0 {
		return stepGenerate, nil
	}

	if !st.webFallback {
		st.webFallback = true
		p.logger.Info("no relevant evidence, falling back to web lookup")
		return stepWebSearch, nil
	}

	return stepTransformQuery, nil
}

// runGenerate produces an answer from the current evidence (possibly none).
func (p *Pipeline) runGenerate(ctx context.Context, st *state) (step, error) {
	answer, err := p.generator.Generate(ctx, st.question, st.evidenceText())
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st.answer = answer
	return stepGradeGeneration, nil
}

// runGradeGeneration applies the two answer grades in strict order:
// groundedness first, then adequacy. An ungrounded answer is regenerated
// until the budget runs out, then returned as-is; an inadequate answer
// triggers the rewrite loop.
func (p *Pipeline) runGradeGeneration(ctx context.Context, st *state) (step, error) {
	grounded, err := p.grounded.GradeGroundedness(ctx, st.evidenceText(), st.answer)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !grounded.Yes() {
		if st.retryCount >= p.maxRetries {
			p.logger.Warn("retry budget exhausted, returning ungrounded answer",
				"retry_count", st.retryCount)
			return stepAccept, nil
		}
		st.retryCount++
		p.logger.Info("answer not grounded, regenerating", "retry_count", st.retryCount)
		return stepGenerate, nil
	}

	adequate, err := p.adequacy.GradeAdequacy(ctx, st.question, st.answer)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if adequate.Yes() {
		return stepAccept, nil
	}

	p.logger.Info("answer does not resolve the question", "retry_count", st.retryCount)
	return stepTransformQuery, nil
}

// runTransformQuery rewrites the question and loops back to the branch
// entry point. It owns the retry budget: each rewrite costs one retry, and
// exhaustion terminates the run with the best answer produced so far.
func (p *Pipeline) runTransformQuery(ctx context.Context, st *state, route Route) (step, error) {
	if st.retryCount >= p.maxRetries {
		p.logger.Warn("retry budget exhausted", "retry_count", st.retryCount)
		if st.answer == "" {
			// Never drop the question: one final best-effort generation
			// from whatever evidence is at hand.
			answer, err := p.generator.Generate(ctx, st.question, st.evidenceText())
			if err != nil {
				return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			st.answer = answer
		}
		return stepAccept, nil
	}
	st.retryCount++

	better, err := p.rewriter.Rewrite(ctx, st.question)
	if err != nil {
		return stepAccept, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.logger.Info("question rewritten", "retry_count", st.retryCount)
	st.question = better
	st.webFallback = false

	if route == RouteWebSearch {
		return stepWebSearch, nil
	}
	return stepRetrieve, nil
}
