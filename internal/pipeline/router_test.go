package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/sunmarke/assistant/internal/log"
)

// stubRouteClassifier records calls and returns a canned label or error.
type stubRouteClassifier struct {
	label     string
	err       error
	callCount int
}

func (s *stubRouteClassifier) ClassifyRoute(_ context.Context, _, _ string) (string, error) {
	s.callCount++
	return s.label, s.err
}

func TestRouteGreetingsAreDeterministic(t *testing.T) {
	classifier := &stubRouteClassifier{label: "web_search"}
	router := NewRouter(classifier, log.NewNop())

	greetings := []string{
		"hi", "Hello", "HEY", "thanks", "Thank you", "ok", "Good morning",
		"hello!", "  hi  ", "bye",
	}
	for _, q := range greetings {
		if got := router.Route(context.Background(), q); got != RouteChat {
			t.Errorf("Route(%q) = %v, want chat", q, got)
		}
	}

	if classifier.callCount != 0 {
		t.Errorf("classifier invoked %d times for greetings, want 0", classifier.callCount)
	}
}

func TestRouteCasualPhrases(t *testing.T) {
	router := NewRouter(&stubRouteClassifier{}, log.NewNop())

	for _, q := range []string{"how are you doing", "so what can you do for me?"} {
		if got := router.Route(context.Background(), q); got != RouteChat {
			t.Errorf("Route(%q) = %v, want chat", q, got)
		}
	}
}

func TestRouteDomainKeywords(t *testing.T) {
	classifier := &stubRouteClassifier{label: "chat"}
	router := NewRouter(classifier, log.NewNop())

	questions := []string{
		"What are Sunmarke's IB subject offerings?",
		"how much are the fees",
		"tell me about the admissions process",
		"what is the sixth form curriculum like",
		"is there a BTEC pathway",
	}
	for _, q := range questions {
		if got := router.Route(context.Background(), q); got != RouteKnowledgeBase {
			t.Errorf("Route(%q) = %v, want knowledge_base", q, got)
		}
	}

	if classifier.callCount != 0 {
		t.Errorf("classifier invoked %d times for domain questions, want 0", classifier.callCount)
	}
}

func TestShortDomainTokensMatchWholeWordsOnly(t *testing.T) {
	// "describe" contains "ib" as a substring and must not route to the
	// knowledge base on that account.
	router := NewRouter(&stubRouteClassifier{label: "chat"}, log.NewNop())

	if got := router.Route(context.Background(), "describe a rainbow for me"); got != RouteChat {
		t.Errorf("Route() = %v, want chat", got)
	}
}

func TestRouteFreshnessKeywords(t *testing.T) {
	router := NewRouter(&stubRouteClassifier{}, log.NewNop())

	questions := []string{
		"what is the weather like in Dubai",
		"latest football results",
		"gold price per gram",
	}
	for _, q := range questions {
		if got := router.Route(context.Background(), q); got != RouteWebSearch {
			t.Errorf("Route(%q) = %v, want web_search", q, got)
		}
	}
}

func TestRouteClassifierFallback(t *testing.T) {
	tests := []struct {
		name  string
		label string
		err   error
		want  Route
	}{
		{"vectorstore label", "vectorstore", nil, RouteKnowledgeBase},
		{"vectorstore variant", "vector-store", nil, RouteKnowledgeBase},
		{"web label", "web_search", nil, RouteWebSearch},
		{"chat label", "chat", nil, RouteChat},
		{"label with whitespace", "  Chat \n", nil, RouteChat},
		{"unrecognized label", "banana", nil, RouteChat},
		{"classifier error", "", errors.New("model unreachable"), RouteChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &stubRouteClassifier{label: tt.label, err: tt.err}
			router := NewRouter(classifier, log.NewNop())

			// A question no heuristic matches.
			got := router.Route(context.Background(), "please summarize the plot of hamlet")
			if got != tt.want {
				t.Errorf("Route() = %v, want %v", got, tt.want)
			}
			if classifier.callCount != 1 {
				t.Errorf("classifier invoked %d times, want 1", classifier.callCount)
			}
		})
	}
}

func TestRouteNilClassifierDefaultsToChat(t *testing.T) {
	router := NewRouter(nil, log.NewNop())

	if got := router.Route(context.Background(), "please summarize the plot of hamlet"); got != RouteChat {
		t.Errorf("Route() = %v, want chat", got)
	}
}
