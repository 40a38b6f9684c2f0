package contentstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPStore is a Store backed by a content-store service speaking plain
// HTTP: PUT /v1/blobs/{key} to store, GET <uri> to retrieve.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		s.httpClient = hc
	}
}

// NewHTTPStore creates a Store talking to the content-store service at
// baseURL.
func NewHTTPStore(baseURL string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Put uploads payload under a fresh content key. The SHA-256 digest rides
// along so the service can verify integrity; the returned URI comes from
// the service response.
func (s *HTTPStore) Put(ctx context.Context, payload []byte, contentType string) (string, error) {
	digest := sha256.Sum256(payload)
	url := s.baseURL + "/v1/blobs/" + uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build store request: %w", err)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Content-Digest", "sha256:"+hex.EncodeToString(digest[:]))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read store response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("content store error %d: %s", resp.StatusCode, string(body))
	}

	var payloadResp struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(body, &payloadResp); err != nil {
		return "", fmt.Errorf("decode store response: %w", err)
	}
	if payloadResp.URI == "" {
		return "", fmt.Errorf("content store returned no uri")
	}
	return payloadResp.URI, nil
}

// Get downloads the payload at uri. Only http(s) URIs are supported.
func (s *HTTPStore) Get(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return nil, fmt.Errorf("http store cannot serve %q", uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content store error %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
