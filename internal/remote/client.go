package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientConfig configures the API client.
type ClientConfig struct {
	// Endpoint is the base URL of the DocuDepth API.
	Endpoint string
	// Token is the bearer token sent with every request.
	Token string
	// RequestTimeout is the per-request timeout (default: 30s).
	RequestTimeout time.Duration
}

// Client talks to the DocuDepth job API over HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	timeout    time.Duration
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	// Timeouts are applied per request via context so a caller-supplied
	// context can still cut a call short.
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		token:      cfg.Token,
		timeout:    cfg.RequestTimeout,
	}
}

// SubmitAnalysis submits a full workspace snapshot for analysis and
// returns the job id to poll.
func (c *Client) SubmitAnalysis(ctx context.Context, repo RepoMeta, files []File) (string, error) {
	var resp analyzeResponse
	err := c.do(ctx, http.MethodPost, "/v1/analyze", analyzeRequest{Repo: repo, Files: files}, &resp)
	if err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", &APIError{Kind: KindServer, Message: "analyze response missing job id"}
	}
	return resp.JobID, nil
}

// SubmitUpdate submits an ordered list of incremental changes against a
// completed job and returns the updated artifact.
func (c *Client) SubmitUpdate(ctx context.Context, jobID string, changes []ChangeUpload) (*UpdateResult, error) {
	var resp UpdateResult
	path := fmt.Sprintf("/v1/jobs/%s/update", jobID)
	if err := c.do(ctx, http.MethodPost, path, updateRequest{Changes: changes}, &resp); err != nil {
		return nil, err
	}
	if resp.JobID == "" {
		resp.JobID = jobID
	}
	return &resp, nil
}

// GetStatus fetches the current status of a job.
func (c *Client) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &status); err != nil {
		return nil, err
	}
	if status.JobID == "" {
		status.JobID = jobID
	}
	return &status, nil
}

// GetResult fetches the finished artifact of a completed job.
func (c *Client) GetResult(ctx context.Context, jobID string) (json.RawMessage, string, error) {
	var resp resultResponse
	path := fmt.Sprintf("/v1/jobs/%s/result", jobID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Artifact, resp.Version, nil
}

// do performs one JSON request/response round trip. All failures come
// back as *APIError, classified here at the boundary.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return &APIError{Kind: KindServer, StatusCode: resp.StatusCode,
				Message: "decode response: " + err.Error(), Cause: err}
		}
	}

	return nil
}
