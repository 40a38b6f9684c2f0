// Package indexer is the client for the OpenRep indexer service, which
// watches the chain and serves historical and aggregate reads that would be
// impractical against a node directly: reputation summaries, feedback
// history, and agent search.
//
// The indexer is eventually consistent with the chain. Authoritative
// current state always comes from the sdk package.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the indexer has no data for the requested
// agent.
var ErrNotFound = errors.New("agent not found in index")

// ReputationSummary aggregates an agent's feedback and validation history.
type ReputationSummary struct {
	AgentID         uint64    `json:"agent_id"`
	FeedbackCount   uint64    `json:"feedback_count"`
	AverageScore    float64   `json:"average_score"`
	ValidationCount uint64    `json:"validation_count"`
	ValidationsOK   uint64    `json:"validations_ok"`
	LastActivity    time.Time `json:"last_activity"`
}

// FeedbackEntry is one historical feedback record as indexed.
type FeedbackEntry struct {
	AgentID   uint64    `json:"agent_id"`
	Client    string    `json:"client"`
	Score     uint8     `json:"score"`
	Tag       string    `json:"tag,omitempty"`
	URI       string    `json:"uri,omitempty"`
	Slot      uint64    `json:"slot"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackPage is one page of feedback history. Cursor is empty on the
// last page.
type FeedbackPage struct {
	Entries []FeedbackEntry `json:"entries"`
	Cursor  string          `json:"cursor,omitempty"`
}

// AgentSummary is one search hit.
type AgentSummary struct {
	AgentID       uint64  `json:"agent_id"`
	Mint          string  `json:"mint"`
	Owner         string  `json:"owner"`
	DescriptorURI string  `json:"descriptor_uri,omitempty"`
	AverageScore  float64 `json:"average_score"`
}

// Client talks to one indexer deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the default 10 s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates an indexer client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ReputationSummary returns aggregate reputation data for an agent.
func (c *Client) ReputationSummary(ctx context.Context, agentID uint64) (*ReputationSummary, error) {
	var summary ReputationSummary
	path := fmt.Sprintf("/v1/agents/%d/reputation", agentID)
	if err := c.get(ctx, path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// FeedbackHistory returns one page of an agent's feedback, newest first.
// Pass the previous page's cursor to continue; an empty cursor starts from
// the top.
func (c *Client) FeedbackHistory(ctx context.Context, agentID uint64, limit int, cursor string) (*FeedbackPage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var page FeedbackPage
	path := fmt.Sprintf("/v1/agents/%d/feedback", agentID)
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchAgents returns agents whose descriptor or metadata matches q.
func (c *Client) SearchAgents(ctx context.Context, q string, limit int) ([]AgentSummary, error) {
	query := url.Values{"q": {q}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Agents []AgentSummary `json:"agents"`
	}
	if err := c.get(ctx, "/v1/agents/search", query, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read indexer response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode indexer response: %w", err)
	}
	return nil
}
