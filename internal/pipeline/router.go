package pipeline

import (
	"context"
	"strings"
	"unicode"

	"github.com/sunmarke/assistant/internal/log"
)

// greetingTokens are courtesy inputs matched exactly against the normalized
// question.
var greetingTokens = map[string]bool{
	"hi":             true,
	"hello":          true,
	"hey":            true,
	"yo":             true,
	"thanks":         true,
	"thank you":      true,
	"ok":             true,
	"okay":           true,
	"bye":            true,
	"goodbye":        true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
}

// casualPhrases indicate conversational intent anywhere in the question.
var casualPhrases = []string{
	"how are you",
	"what can you do",
	"who are you",
	"nice to meet you",
	"good job",
}

// domainKeywords route to the knowledge base. Single words are matched
// against whole words only; short tokens like "ib" would otherwise match
// inside unrelated words.
var domainKeywords = []string{
	"sunmarke",
	"school",
	"admission",
	"admissions",
	"fee",
	"fees",
	"tuition",
	"scholarship",
	"principal",
	"campus",
	"curriculum",
	"subjects",
	"eyfs",
	"ib",
	"a-level",
	"a level",
	"btec",
	"sixth form",
	"uniform",
	"term dates",
	"enrolment",
	"enrollment",
	"teacher",
	"teachers",
	"eca",
	"foss",
	"steam",
}

// freshnessKeywords indicate the question needs live external facts.
var freshnessKeywords = []string{
	"today",
	"tonight",
	"latest",
	"news",
	"weather",
	"price",
	"prices",
	"stock",
	"score",
	"currently",
}

// HeuristicRouter classifies questions with deterministic keyword rules
// first and a structured model classification only for ambiguous input.
// It satisfies QuestionRouter.
type HeuristicRouter struct {
	classifier RouteClassifier
	logger     log.Logger
}

// NewRouter creates a HeuristicRouter. classifier may be nil, in which case
// ambiguous questions default to RouteChat.
func NewRouter(classifier RouteClassifier, logger log.Logger) *HeuristicRouter {
	if logger == nil {
		logger = log.NewNop()
	}
	return &HeuristicRouter{classifier: classifier, logger: logger}
}

// Route selects the handling strategy for question. It never returns an
// error: a failed or unrecognized classification degrades to RouteChat,
// the safest branch (no retrieval, no grounding claim).
func (r *HeuristicRouter) Route(ctx context.Context, question string) Route {
	normalized := normalize(question)

	if greetingTokens[normalized] || containsAnyPhrase(normalized, casualPhrases) {
		r.logger.Debug("routed by heuristic", "route", RouteChat, "reason", "casual")
		return RouteChat
	}

	if containsAnyKeyword(normalized, domainKeywords) {
		r.logger.Debug("routed by heuristic", "route", RouteKnowledgeBase, "reason", "domain keyword")
		return RouteKnowledgeBase
	}

	if containsAnyKeyword(normalized, freshnessKeywords) {
		r.logger.Debug("routed by heuristic", "route", RouteWebSearch, "reason", "freshness keyword")
		return RouteWebSearch
	}

	return r.classify(ctx, question)
}

// classify invokes the structured model classification for questions no
// heuristic matched.
func (r *HeuristicRouter) classify(ctx context.Context, question string) Route {
	if r.classifier == nil {
		return RouteChat
	}

	label, err := r.classifier.ClassifyRoute(ctx, routerSystem, question)
	if err != nil {
		r.logger.Warn("route classification failed, defaulting to chat", "error", err)
		return RouteChat
	}

	switch strings.ToLower(strings.TrimSpace(label)) {
	case "vectorstore", "vector_store", "vector-store", "knowledge_base":
		return RouteKnowledgeBase
	case "web_search", "websearch", "web-search":
		return RouteWebSearch
	case "chat":
		return RouteChat
	default:
		r.logger.Warn("unrecognized route label, defaulting to chat", "label", label)
		return RouteChat
	}
}

// normalize lowercases the question and trims surrounding whitespace and
// punctuation, so "Hello!" matches the greeting set.
func normalize(question string) string {
	s := strings.ToLower(strings.TrimSpace(question))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// containsAnyPhrase reports whether any phrase occurs as a substring.
func containsAnyPhrase(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// containsAnyKeyword matches multi-word keywords as substrings and single
// words against the question's word set.
func containsAnyKeyword(normalized string, keywords []string) bool {
	words := wordSet(normalized)
	for _, k := range keywords {
		if strings.ContainsAny(k, " -") {
			if strings.Contains(normalized, k) {
				return true
			}
			continue
		}
		if words[k] {
			return true
		}
	}
	return false
}

// wordSet splits the normalized question into lowercase words.
func wordSet(normalized string) map[string]bool {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
