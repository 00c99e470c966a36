package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/geoippro/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c := NewClient("https://api.example.com/")
	assert.Equal(t, "https://api.example.com", c.baseURL)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Nil(t, c.retryConfig)

	c = NewClient("https://api.example.com", 2*time.Second)
	assert.Equal(t, 2*time.Second, c.httpClient.Timeout)
}

func TestWithRetry_DefaultsChecker(t *testing.T) {
	c := NewClient("https://api.example.com").With(WithRetry(resilience.DefaultRetryConfig()))

	require.NotNil(t, c.retryConfig)
	assert.Equal(t, 3, c.retryConfig.MaxAttempts)
	assert.NotNil(t, c.retryConfig.RetryableChecker)
}

func TestClient_GetWithQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("city"))
		assert.Equal(t, "geoippro-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL).With(WithUserAgent("geoippro-test"))
	body, err := c.GetWithQuery(context.Background(), "/search", url.Values{"city": {"Paris"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestClient_PostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "k", r.PostForm.Get("key"))
		assert.Equal(t, "a@b.c", r.PostForm.Get("email"))
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	body, err := NewClient(server.URL).PostForm(context.Background(), "/api/", url.Values{"key": {"k"}, "email": {"a@b.c"}}, nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(body))
}

func TestClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetWithQuery(context.Background(), "/", nil, nil)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "HTTP 401: bad key", httpErr.Error())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiplier: 2}
	body, err := NewClient(server.URL).With(WithRetry(cfg)).GetWithQuery(context.Background(), "/", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	_, err := NewClient(server.URL).With(WithRetry(cfg)).GetWithQuery(context.Background(), "/", nil, nil)

	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL, 10*time.Second).GetWithQuery(ctx, "/", nil, nil)
	assert.Error(t, err)
}

func TestIsHTTPRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: 500}, true},
		{&HTTPError{StatusCode: 503}, true},
		{&HTTPError{StatusCode: 429}, true},
		{&HTTPError{StatusCode: 400}, false},
		{&HTTPError{StatusCode: 404}, false},
		{errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isHTTPRetryable(tt.err), tt.err.Error())
	}
}
