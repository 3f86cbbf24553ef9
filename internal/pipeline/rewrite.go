package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Rewriter reformulates questions that failed grading into versions better
// suited to retrieval. It satisfies QuestionRewriter.
type Rewriter struct {
	completer Completer
}

// NewRewriter creates a Rewriter.
func NewRewriter(completer Completer) *Rewriter {
	return &Rewriter{completer: completer}
}

// Rewrite produces a retrieval-optimized reformulation of question,
// preserving its semantic intent. The result is the rewritten question text
// only; an empty completion is an error rather than an empty question.
func (r *Rewriter) Rewrite(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf("Here is the initial question:\n\n%s\n\nFormulate an improved question.", question)

	improved, err := r.completer.Complete(ctx, rewriteSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	improved = strings.TrimSpace(improved)
	if improved == "" {
		return "", fmt.Errorf("rewriter returned an empty question")
	}
	return improved, nil
}
