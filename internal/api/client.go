package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bulkctl/bulkctl/internal/api/dto"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
	"github.com/bulkctl/bulkctl/internal/retry"
	"github.com/bulkctl/bulkctl/internal/utils"
	"github.com/bulkctl/bulkctl/pkg/version"
)

const (
	DefaultAPIURL  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// Client talks to the items REST API. It implements domain.ItemLister,
// domain.ItemMutator and domain.BulkJobAPI and is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	logger       *slog.Logger
	retryClient  *retry.Client
}

type ClientOption func(*Client)

// WithRetryConfig overrides the backoff used for idempotent GETs
func WithRetryConfig(config *retry.Config) ClientOption {
	return func(c *Client) {
		c.retryClient = retry.NewClient(config, c.logger)
	}
}

// WithHTTPClient replaces the client used for plain requests
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey, baseURL string, logger *slog.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		// event streams stay open for the life of a job, so no overall timeout
		streamClient: &http.Client{},
		baseURL:      baseURL,
		apiKey:       apiKey,
		logger:       logger,
	}
	c.retryClient = retry.NewClient(retry.DefaultConfig(), logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(headerRequestID, uuid.NewString())
	return req, nil
}

func (c *Client) do(httpClient *http.Client, req *http.Request) (*http.Response, error) {
	c.logger.Debug("API request",
		"method", req.Method,
		"url", req.URL.String(),
		"request_id", req.Header.Get(headerRequestID),
		"authorization", utils.RedactAuthHeader(req.Header.Get("Authorization")),
	)

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Debug("API request failed",
			"request_id", req.Header.Get(headerRequestID),
			"error", utils.SanitizeErrorMessage(err, c.apiKey),
		)
		return nil, &errors.NetworkError{
			Err:       err,
			Operation: fmt.Sprintf("%s %s", req.Method, req.URL.Path),
			URL:       req.URL.String(),
		}
	}

	c.logger.Debug("API response", "status", resp.Status, "request_id", req.Header.Get(headerRequestID))
	return resp, nil
}

// doJSON sends one request and decodes a JSON response into out when out is non-nil
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, prepare func(*http.Request)) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := ValidateResponseAccepted(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getWithRetry runs an idempotent GET under the retry policy
func getWithRetry[T any](ctx context.Context, c *Client, path string) (*T, error) {
	return retry.Do(ctx, c.retryClient, func() (*T, error) {
		var out T
		if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, nil); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// ListItems fetches one page of items matching filter
func (c *Client) ListItems(ctx context.Context, filter domain.Filter, page, pageSize int) (*domain.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("page size must be >= 1, got %d", pageSize)
	}

	raw, err := getWithRetry[json.RawMessage](ctx, c, ItemsListURL(filter, page, pageSize))
	if err != nil {
		return nil, err
	}

	var envelope dto.ListItemsEnvelope
	if err := json.Unmarshal(*raw, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data.ToDomain(page, pageSize), nil
	}

	var listResp dto.ListItemsResponse
	if err := json.Unmarshal(*raw, &listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return listResp.ToDomain(page, pageSize), nil
}

// MutateItem applies action to one item. Delete maps to DELETE on the item; every
// other action is a POST to the item's action route. Not retried.
func (c *Client) MutateItem(ctx context.Context, id string, action domain.Action) error {
	if id == "" {
		return fmt.Errorf("item ID cannot be empty")
	}
	if action == domain.ActionDelete {
		return c.doJSON(ctx, http.MethodDelete, ItemURL(id), nil, nil, nil)
	}
	return c.doJSON(ctx, http.MethodPost, ItemActionURL(id, action), nil, nil, nil)
}

// StartBulkJob asks the server to run action over scope as one job
func (c *Client) StartBulkJob(ctx context.Context, action domain.Action, scope domain.Scope) (*domain.JobHandle, error) {
	var startResp dto.StartBulkJobResponse
	err := c.doJSON(ctx, http.MethodPost, EndpointBulkJobs, dto.NewStartBulkJobRequest(action, scope), &startResp,
		func(req *http.Request) {
			req.Header.Set(headerIdempotencyKey, uuid.NewString())
		})
	if err != nil {
		return nil, err
	}
	return startResp.ToDomain(), nil
}

// GetBulkJob fetches job status
func (c *Client) GetBulkJob(ctx context.Context, jobID string) (*domain.BulkJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID cannot be empty")
	}
	jobResp, err := getWithRetry[dto.BulkJobResponse](ctx, c, BulkJobURL(jobID))
	if err != nil {
		return nil, err
	}
	job, err := jobResp.ToDomain()
	if err != nil {
		c.logger.Warn("job status not understood", "job_id", jobID, "status", jobResp.Status)
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	return job, nil
}

// CancelBulkJob asks the server to stop a job
func (c *Client) CancelBulkJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job ID cannot be empty")
	}
	return c.doJSON(ctx, http.MethodPost, BulkJobCancelURL(jobID), nil, nil, nil)
}
