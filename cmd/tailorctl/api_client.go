package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// apiError is a non-2xx answer from the server.
type apiError struct {
	StatusCode int
	Message    string
	TraceID    string
}

func (e *apiError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("API error (%d): %s [trace %s]", e.StatusCode, e.Message, e.TraceID)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// apiClient talks JSON to the server.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(opts *globalOptions) *apiClient {
	return &apiClient{
		base: strings.TrimRight(opts.apiAddr, "/"),
		http: &http.Client{Timeout: opts.timeout},
	}
}

// get performs a GET request and decodes the JSON answer into out.
func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post performs a POST request with in as the JSON body.
func (c *apiClient) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *apiClient) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error   string `json:"error"`
			TraceID string `json:"trace_id"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.TraceID = payload.TraceID
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
