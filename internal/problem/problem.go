// Package problem implements the Problem Metadata Client (C8): a thin,
// boundary-only HTTP client fetching test cases and wrapper text for a
// (problem slug, language) pair from an external problem bank. The core
// consumes only this interface; it defines no backing store of its own.
package problem

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/judgecore/engine/internal/types"
	"github.com/sirupsen/logrus"
)

// Client resolves problem metadata over HTTP.
type Client interface {
	GetTestsAndExecution(problemSlug, languageTag string) (*types.ProblemPayload, bool, error)
}

// HTTPClient is the reference implementation, backed by a configurable
// problem-bank base URL.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Entry
}

// NewHTTPClient builds a client against baseURL. An empty baseURL yields a
// client whose every lookup reports "not found", which is the correct
// posture for deployments that only ever serve custom-run requests.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
		logger:  logrus.WithField("component", "problem"),
	}
}

// GetTestsAndExecution fetches the test suite and wrapper text for a
// problem/language pair. The bool return is false (with a nil error) when
// the problem bank reports the pair as unknown.
func (c *HTTPClient) GetTestsAndExecution(problemSlug, languageTag string) (*types.ProblemPayload, bool, error) {
	if c.baseURL == "" {
		return nil, false, nil
	}

	endpoint := fmt.Sprintf("%s/problems/%s/execution?language=%s",
		c.baseURL, url.PathEscape(problemSlug), url.QueryEscape(languageTag))

	c.logger.WithField("problem", problemSlug).Debug("fetching problem metadata")

	resp, err := c.http.Get(endpoint)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch problem metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("problem service returned status: %d", resp.StatusCode)
	}

	var payload types.ProblemPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode problem payload: %w", err)
	}

	return &payload, true, nil
}
