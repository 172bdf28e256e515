package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Auth holds authentication settings for a provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Endpoint holds the shared HTTP state for provider adapters. Embed it in a
// concrete adapter to get request building, auth, custom headers, JSON
// round-trips, and streaming POSTs.
type Endpoint struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Authentication settings.
	Client  *http.Client      // HTTP client; falls back to a cached default.
	Headers map[string]string // Extra headers applied to every request.
	Usage   Tracker           // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// httpClient returns the configured client or a cached default with a
// 10-minute timeout.
func (e *Endpoint) httpClient() *http.Client {
	if e.Client != nil {
		return e.Client
	}

	e.clientOnce.Do(func() {
		e.defaultClient = &http.Client{Timeout: 10 * time.Minute}
	})

	return e.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (e *Endpoint) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := e.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if e.Auth.Key != "" {
		header := e.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := e.Auth.Key
		if header == "Authorization" {
			scheme := e.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if e.Auth.Scheme != "" {
			value = e.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range e.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (e *Endpoint) Do(req *http.Request) (*http.Response, error) {
	return e.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// checkStatus converts non-2xx responses into the error taxonomy, consuming
// the body. It returns nil for success responses.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode == http.StatusTooManyRequests {
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Err: &RateLimitError{
				RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
				Body:       string(respBody),
			},
		}
	}

	return &Error{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
}

// PostJSON marshals payload as JSON, sends a POST to the given path, checks
// for a 2xx status, and unmarshals the response body into dest. If dest is
// nil the response body is discarded after the status check.
func (e *Endpoint) PostJSON(ctx context.Context, op, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := e.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(op, resp); err != nil {
		return err
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &DecodeError{Op: op, Err: err}
	}

	return nil
}

// GetJSON sends a GET to the given path and unmarshals the response into dest.
func (e *Endpoint) GetJSON(ctx context.Context, op, path string, dest any) error {
	req, err := e.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := e.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(op, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &DecodeError{Op: op, Err: err}
	}

	return nil
}

// PostStream sends a POST expecting a streaming response. The caller owns
// the response body on success; on a non-2xx status the body is consumed
// and an error from the taxonomy is returned.
func (e *Endpoint) PostStream(ctx context.Context, op, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := e.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	if err := checkStatus(op, resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	return resp, nil
}
