package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Do(context.Background(), Request{Method: "GET", URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, m["ok"])
}

func TestDoGetNeverSendsBody(t *testing.T) {
	var sawBody bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			sawBody = true
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{
		Method:  "GET",
		URL:     srv.URL,
		Body:    map[string]any{"x": 1},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.False(t, sawBody)
}

func TestDoRetriesOn500ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(500)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Do(context.Background(), Request{
		Method:     "GET",
		URL:        srv.URL,
		Timeout:    time.Second,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoDoesNotRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(404)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{
		Method:     "GET",
		URL:        srv.URL,
		Timeout:    time.Second,
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRetriesOn408(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(408)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{
		Method:     "GET",
		URL:        srv.URL,
		Timeout:    time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStatusFromHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{Method: "GET", URL: srv.URL, Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, 401, StatusFromHTTPError(err))
}

func TestDoJSONBodyEncodesAndSetsContentType(t *testing.T) {
	var gotContentType string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{
		Method:  "POST",
		URL:     srv.URL,
		Body:    map[string]any{"a": 1},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, gotBody, `"a":1`)
}
