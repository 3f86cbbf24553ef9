package pipeline

import (
	"context"
	"fmt"

	"github.com/sunmarke/assistant/internal/log"
)

// aiSignalTerms trigger the one-off web augmentation in Generate: when the
// question mentions AI, a single web lookup is summarized and appended under
// a labeled section. This is a narrow, named special case, not a general
// multi-source synthesis feature.
var aiSignalTerms = []string{"ai", "artificial intelligence"}

// Generator produces answers via the completion client. It satisfies
// AnswerGenerator.
type Generator struct {
	completer Completer
	web       WebSearcher
	logger    log.Logger
}

// NewGenerator creates a Generator. web may be nil, which disables the AI
// augmentation special case.
func NewGenerator(completer Completer, web WebSearcher, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{completer: completer, web: web, logger: logger}
}

// Generate answers question strictly from evidence: at most three
// sentences, with an explicit "I don't know" when the evidence is
// insufficient.
func (g *Generator) Generate(ctx context.Context, question, evidence string) (string, error) {
	answer, err := g.complete(ctx, question, evidence)
	if err != nil {
		return "", err
	}

	if g.web != nil && containsAnyKeyword(normalize(question), aiSignalTerms) {
		augmented, err := g.augmentWithWeb(ctx, question, answer)
		if err != nil {
			// Augmentation is additive; its failure must not discard a
			// perfectly good grounded answer.
			g.logger.Warn("web augmentation failed", "error", err)
			return answer, nil
		}
		return augmented, nil
	}

	return answer, nil
}

// Chat answers question conversationally, with no context constraint. No
// grading is performed on chat answers.
func (g *Generator) Chat(ctx context.Context, question string) (string, error) {
	answer, err := g.completer.Complete(ctx, "", question)
	if err != nil {
		return "", fmt.Errorf("chat generation: %w", err)
	}
	return answer, nil
}

func (g *Generator) complete(ctx context.Context, question, evidence string) (string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nContext: %s\n\nAnswer:", question, evidence)
	answer, err := g.completer.Complete(ctx, answerSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("answer generation: %w", err)
	}
	return answer, nil
}

// augmentWithWeb issues one web lookup and a second constrained completion
// over the web text, concatenating the result under a labeled section.
func (g *Generator) augmentWithWeb(ctx context.Context, question, answer string) (string, error) {
	result, err := g.web.Search(ctx, question)
	if err != nil {
		return "", fmt.Errorf("augmentation lookup: %w", err)
	}

	webText := result.Text()
	if webText == "" {
		return answer, nil
	}

	summary, err := g.complete(ctx, question, webText)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s\n\nAbout AI:\n%s", answer, summary), nil
}
