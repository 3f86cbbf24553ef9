package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable signals an unrecoverable external-call failure inside the
// pipeline. Callers map it to a "temporarily unavailable" response; no
// internal state, retry counts, or grading verdicts cross the boundary.
var ErrUnavailable = errors.New("assistant temporarily unavailable")

// Route is the handling strategy selected for a question.
type Route int

const (
	// RouteChat answers conversationally, with no retrieval or grading.
	RouteChat Route = iota

	// RouteKnowledgeBase answers from the school knowledge base.
	RouteKnowledgeBase

	// RouteWebSearch answers from a live web lookup.
	RouteWebSearch
)

// String returns the route name for logging.
func (r Route) String() string {
	switch r {
	case RouteKnowledgeBase:
		return "knowledge_base"
	case RouteWebSearch:
		return "web_search"
	default:
		return "chat"
	}
}

// Passage is a single piece of retrieved evidence. Passages are never
// mutated after creation, only kept, discarded, or replaced.
type Passage struct {
	Text     string
	Metadata map[string]string
}

// Grade is the binary verdict of a grading call. The only valid scores are
// "yes" and "no"; anything else is a malformed classifier response and must
// be treated as a hard failure of the grading step, never as an implicit
// "no".
type Grade struct {
	BinaryScore string `json:"binary_score" jsonschema_description:"Binary verdict, exactly 'yes' or 'no'"`
}

// Yes reports whether the grade is a positive verdict.
func (g Grade) Yes() bool {
	return strings.EqualFold(strings.TrimSpace(g.BinaryScore), "yes")
}

// Validate returns an error when the score is neither "yes" nor "no".
func (g Grade) Validate() error {
	s := strings.ToLower(strings.TrimSpace(g.BinaryScore))
	if s != "yes" && s != "no" {
		return fmt.Errorf("malformed binary score %q", g.BinaryScore)
	}
	return nil
}

// WebResult is the normalized outcome of a web lookup: either a flattened
// text summary or discrete passages, decided by the adapter at the
// collaborator boundary so the pipeline never branches on runtime shape.
type WebResult struct {
	text     string
	passages []Passage
}

// WebText wraps a plain text summary as a WebResult.
func WebText(text string) WebResult {
	return WebResult{text: text}
}

// WebPassages wraps discrete search results as a WebResult.
func WebPassages(passages []Passage) WebResult {
	return WebResult{passages: passages}
}

// Passage normalizes the result to a single evidence passage. The boolean is
// false when the lookup produced nothing usable.
func (r WebResult) Passage() (Passage, bool) {
	if len(r.passages) > 0 {
		return r.passages[0], true
	}
	if strings.TrimSpace(r.text) != "" {
		return Passage{Text: r.text, Metadata: map[string]string{"source": "web"}}, true
	}
	return Passage{}, false
}

// Text flattens the result to plain text for prompt context.
func (r WebResult) Text() string {
	if p, ok := r.Passage(); ok {
		return p.Text
	}
	return ""
}

// Collaborator interfaces. Defined here, by the consumer; implementations
// live in internal/llm, internal/knowledge and internal/websearch.

// Completer produces a free-form text completion for a system/user prompt
// pair.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// BinaryClassifier produces a structured yes/no verdict for a grading
// prompt. A response that cannot be decoded into a Grade is an error.
type BinaryClassifier interface {
	ClassifyBinary(ctx context.Context, system, prompt string) (Grade, error)
}

// RouteClassifier labels a question with one of the router datasource
// labels ("vectorstore", "web_search", "chat").
type RouteClassifier interface {
	ClassifyRoute(ctx context.Context, system, question string) (string, error)
}

// Retriever returns the most relevant stored passages for a question.
// Implementations keep only the top-ranked match, so the slice has zero or
// one element.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]Passage, error)
}

// WebSearcher performs a live web lookup.
type WebSearcher interface {
	Search(ctx context.Context, query string) (WebResult, error)
}

// Role interfaces consumed by the orchestrator. The concrete implementations
// in this package satisfy them; tests substitute stubs.

// QuestionRouter selects the handling strategy for a question. It never
// fails outward: classification errors degrade to RouteChat.
type QuestionRouter interface {
	Route(ctx context.Context, question string) Route
}

// RelevanceGrader decides whether a retrieved passage is on-topic for the
// question.
type RelevanceGrader interface {
	GradeRelevance(ctx context.Context, question, document string) (Grade, error)
}

// GroundednessGrader decides whether a generated answer is entailed by the
// evidence it was generated from.
type GroundednessGrader interface {
	GradeGroundedness(ctx context.Context, documents, generation string) (Grade, error)
}

// AdequacyGrader decides whether a generated answer resolves the question.
type AdequacyGrader interface {
	GradeAdequacy(ctx context.Context, question, generation string) (Grade, error)
}

// QuestionRewriter reformulates a question that failed grading into one
// better suited to retrieval.
type QuestionRewriter interface {
	Rewrite(ctx context.Context, question string) (string, error)
}

// AnswerGenerator produces the final answer text. Generate answers strictly
// from the supplied evidence text; Chat is the unconstrained conversational
// mode.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, evidence string) (string, error)
	Chat(ctx context.Context, question string) (string, error)
}
