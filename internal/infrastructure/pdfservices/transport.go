package pdfservices

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

type requestFactory func(ctx context.Context) (*http.Request, error)

// do sends one request under its own timeout and returns the response body.
func (c *Client) do(ctx context.Context, operation string, timeout time.Duration, newRequest requestFactory) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newRequest(callCtx)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("client_secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdfservices %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(operation, resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	raw, err := c.do(ctx, operation, timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	return decodeJSON(raw, out, operation)
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, out any, operation string) error {
	raw, err := c.get(ctx, path, timeout, operation)
	if err != nil {
		return err
	}
	return decodeJSON(raw, out, operation)
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration, operation string) ([]byte, error) {
	return c.do(ctx, operation, timeout, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	})
}

func decodeJSON(raw []byte, out any, operation string) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
