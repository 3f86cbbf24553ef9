package pipeline

import (
	"context"
	"fmt"
)

// Graders wraps the three binary grading calls behind one classification
// client. Each grader issues a single structured call with a fixed binary
// output schema; a malformed or missing score is a hard error for that
// grading step, surfaced to the orchestrator rather than treated as "no".
//
// Graders satisfies RelevanceGrader, GroundednessGrader and AdequacyGrader.
type Graders struct {
	classifier BinaryClassifier
}

// NewGraders creates the grader set.
func NewGraders(classifier BinaryClassifier) *Graders {
	return &Graders{classifier: classifier}
}

// GradeRelevance decides whether document is on-topic for question.
func (g *Graders) GradeRelevance(ctx context.Context, question, document string) (Grade, error) {
	prompt := fmt.Sprintf("Retrieved document:\n\n%s\n\nUser question: %s", document, question)
	return g.grade(ctx, relevanceSystem, prompt)
}

// GradeGroundedness decides whether generation is entailed by documents.
// Empty evidence means an expected grounding is absent, so the verdict is
// "no" without a model call.
func (g *Graders) GradeGroundedness(ctx context.Context, documents, generation string) (Grade, error) {
	if documents == "" {
		return Grade{BinaryScore: "no"}, nil
	}
	prompt := fmt.Sprintf("Set of facts:\n\n%s\n\nLLM generation: %s", documents, generation)
	return g.grade(ctx, groundednessSystem, prompt)
}

// GradeAdequacy decides whether generation resolves question.
func (g *Graders) GradeAdequacy(ctx context.Context, question, generation string) (Grade, error) {
	prompt := fmt.Sprintf("User question:\n\n%s\n\nLLM generation: %s", question, generation)
	return g.grade(ctx, adequacySystem, prompt)
}

func (g *Graders) grade(ctx context.Context, system, prompt string) (Grade, error) {
	grade, err := g.classifier.ClassifyBinary(ctx, system, prompt)
	if err != nil {
		return Grade{}, fmt.Errorf("grading call failed: %w", err)
	}
	if err := grade.Validate(); err != nil {
		return Grade{}, fmt.Errorf("grading call returned %w", err)
	}
	return grade, nil
}
