package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_NewRequest_DefaultAuth(t *testing.T) {
	e := &Endpoint{BaseURL: "https://api.example.com", Auth: Auth{Key: "sk-test"}}

	req, err := e.NewRequest(context.Background(), http.MethodGet, "/v1/models", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/models", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
}

func TestEndpoint_NewRequest_CustomHeaderAuth(t *testing.T) {
	e := &Endpoint{BaseURL: "https://api.example.com", Auth: Auth{Key: "k", Header: "X-Api-Key"}}

	req, err := e.NewRequest(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, "k", req.Header.Get("X-Api-Key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestEndpoint_NewRequest_ExtraHeaders(t *testing.T) {
	e := &Endpoint{BaseURL: "http://x", Headers: map[string]string{"X-Custom": "v"}}

	req, err := e.NewRequest(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, "v", req.Header.Get("X-Custom"))
}

func TestEndpoint_PostJSON_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL, Auth: Auth{Key: "sk-test"}}

	var out struct {
		OK bool `json:"ok"`
	}
	err := e.PostJSON(context.Background(), "complete", "/v1/chat/completions", map[string]string{"model": "m"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestEndpoint_PostJSON_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	err := e.PostJSON(context.Background(), "complete", "/", nil, nil)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
	assert.Contains(t, terr.Body, "internal")
}

func TestEndpoint_PostJSON_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down")) //nolint:errcheck
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	err := e.PostJSON(context.Background(), "complete", "/", nil, nil)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
	assert.Equal(t, "slow down", rle.Body)
}

func TestEndpoint_PostJSON_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	var out map[string]any
	err := e.PostJSON(context.Background(), "complete", "/", nil, &out)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestEndpoint_PostJSON_ConnectionRefused(t *testing.T) {
	e := &Endpoint{BaseURL: "http://127.0.0.1:1", Client: &http.Client{Timeout: time.Second}}

	err := e.PostJSON(context.Background(), "complete", "/", nil, nil)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.StatusCode)
}

func TestEndpoint_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"data":[{"id":"m1"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, e.GetJSON(context.Background(), "list models", "/v1/models", &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "m1", out.Data[0].ID)
}

func TestEndpoint_PostStream_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	_, err := e.PostStream(context.Background(), "stream", "/", nil)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadRequest, terr.StatusCode)
}

func TestEndpoint_PostStream_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Write([]byte("data: [DONE]\n")) //nolint:errcheck
	}))
	defer srv.Close()

	e := &Endpoint{BaseURL: srv.URL}

	resp, err := e.PostStream(context.Background(), "stream", "/", map[string]bool{"stream": true})
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	r := NewSSEReader(resp.Body)
	_, err = r.Next()
	assert.Error(t, err) // io.EOF via [DONE]
}
