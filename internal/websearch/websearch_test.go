package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sunmarke/assistant/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestSearchReturnsTopResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "dubai weather today" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"title": "Dubai weather", "url": "https://weather.example/dubai", "content": "Sunny, 41 degrees."},
				{"title": "Other", "url": "https://other.example", "content": "Unrelated."}
			]
		}`))
	})

	result, err := client.Search(context.Background(), "dubai weather today")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	passage, ok := result.Passage()
	if !ok {
		t.Fatal("expected a usable result")
	}
	if passage.Text != "Sunny, 41 degrees." {
		t.Errorf("text = %q", passage.Text)
	}
	if passage.Metadata["url"] != "https://weather.example/dubai" {
		t.Errorf("url = %q", passage.Metadata["url"])
	}
}

func TestSearchPrefersDirectAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answers": ["The UAE national day is December 2."],
			"results": [{"title": "t", "url": "u", "content": "snippet"}]
		}`))
	})

	result, err := client.Search(context.Background(), "uae national day")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Text() != "The UAE national day is December 2." {
		t.Errorf("text = %q, want the direct answer", result.Text())
	}
}

func TestSearchSkipsEmptySnippets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"title": "empty", "url": "u1", "content": "  "},
				{"title": "good", "url": "u2", "content": "Usable snippet."}
			]
		}`))
	})

	result, err := client.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Text() != "Usable snippet." {
		t.Errorf("text = %q", result.Text())
	}
}

func TestSearchEmptyResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	result, err := client.Search(context.Background(), "obscure query")
	if err != nil {
		t.Fatalf("Search() error = %v, empty results are not an error", err)
	}
	if _, ok := result.Passage(); ok {
		t.Error("expected an empty result")
	}
}

func TestSearchErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Search(context.Background(), "q")
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("Search() error = %v, want ErrBadStatus", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
