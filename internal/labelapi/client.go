package labelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ctenopool/labeler/internal/models"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://127.0.0.1:5000"

// Client talks to the labeling backend
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ImageSet fetches a main image and one sample image per class
func (c *Client) ImageSet(ctx context.Context) (*models.ImageSet, error) {
	var set models.ImageSet
	if err := c.do(ctx, http.MethodGet, "/api/image-set", nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// ImagePair fetches two images and the options to judge them by
func (c *Client) ImagePair(ctx context.Context) (*models.ImagePair, error) {
	var pair models.ImagePair
	if err := c.do(ctx, http.MethodGet, "/api/two-image-pair", nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// SubmitSingleLabel posts a class choice for a main image
func (c *Client) SubmitSingleLabel(ctx context.Context, label models.SingleLabel) (*models.SubmitResult, error) {
	var res models.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/submit-single-label", label, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitPairLabel posts an option for an image pair
func (c *Client) SubmitPairLabel(ctx context.Context, label models.PairLabel) (*models.SubmitResult, error) {
	var res models.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/submit-pair-label", label, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
