package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiolens/whatsapp-relay/internal/retry"
)

func fastRetries(n int) Option {
	return WithRetryPolicy(retry.Policy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
}

func TestDo_SendsJSONAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "static", r.Header.Get("X-Static"))
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "value", in["key"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL+"/v1/", WithHeader("X-Static", "static"))
	var out struct {
		ID string `json:"id"`
	}
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/items",
		Query:  url.Values{"q": {"abc"}},
		Header: http.Header{"Authorization": {"Bearer t"}},
		Body:   map[string]string{"key": "value"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL, fastRetries(2))
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil))
	assert.EqualValues(t, 3, calls.Load())
}

func TestDo_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL, fastRetries(2))
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, retry.StatusOf(err))
	assert.Contains(t, err.Error(), "not found")
	assert.EqualValues(t, 1, calls.Load())
}

func TestDo_TimeoutIsRetriedThenSurfaced(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := New("test", srv.URL, WithTimeout(20*time.Millisecond), fastRetries(1))
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/slow"}, nil)
	require.Error(t, err)
	assert.True(t, retry.Transient(err))
	assert.EqualValues(t, 2, calls.Load())
}

func TestDo_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := New("test", srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
