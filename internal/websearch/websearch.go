// Package websearch provides the live web lookup used when a question
// falls outside the school corpus. It queries a SearXNG instance's JSON
// API and reduces the response to a single result for the answer pipeline.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/pipeline"
)

// ErrBadStatus indicates the search instance answered with a non-2xx code.
var ErrBadStatus = errors.New("search instance returned error status")

const defaultTimeout = 15 * time.Second

// searchResponse mirrors the fields of SearXNG's JSON format this client
// consumes.
type searchResponse struct {
	Answers []string `json:"answers"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Client queries one SearXNG instance. It is safe for concurrent use.
type Client struct {
	http   *resty.Client
	logger log.Logger
}

// Config holds the parameters for a Client.
type Config struct {
	BaseURL string        // instance root, e.g. "http://localhost:8888"
	Timeout time.Duration // 0 uses the default
	Logger  log.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("websearch: base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	return &Client{http: http, logger: logger}, nil
}

// Search runs one query and returns the best single result. A direct
// answer from the instance wins over result snippets; an empty result set
// yields an empty WebResult, not an error.
func (c *Client) Search(ctx context.Context, query string) (pipeline.WebResult, error) {
	var parsed searchResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
		}).
		SetResult(&parsed).
		Get("/search")
	if err != nil {
		return pipeline.WebResult{}, fmt.Errorf("searching %q: %w", query, err)
	}
	if resp.IsError() {
		return pipeline.WebResult{}, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status())
	}

	if len(parsed.Answers) > 0 && strings.TrimSpace(parsed.Answers[0]) != "" {
		c.logger.Debug("web lookup answered directly", "query_length", len(query))
		return pipeline.WebText(strings.TrimSpace(parsed.Answers[0])), nil
	}

	for _, result := range parsed.Results {
		content := strings.TrimSpace(result.Content)
		if content == "" {
			continue
		}
		c.logger.Debug("web lookup hit", "url", result.URL)
		return pipeline.WebPassages([]pipeline.Passage{{
			Text: content,
			Metadata: map[string]string{
				"title": result.Title,
				"url":   result.URL,
			},
		}}), nil
	}

	c.logger.Debug("web lookup found nothing", "query_length", len(query))
	return pipeline.WebResult{}, nil
}
