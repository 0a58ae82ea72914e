package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("hello"))
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(1000)

	t.Run("returns body", func(t *testing.T) {
		body, err := c.Get(context.Background(), srv.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("404 is not found", func(t *testing.T) {
		_, err := c.Get(context.Background(), srv.URL+"/missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("5xx is a status error", func(t *testing.T) {
		_, err := c.Get(context.Background(), srv.URL+"/boom")
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	})
}

func TestClient_Get_CancelledWhileThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := New(0.01)
	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestNew_DefaultRate(t *testing.T) {
	c := New(0, WithHTTPClient(&http.Client{Timeout: time.Second}))
	assert.InDelta(t, DefaultRate, float64(c.limiter.Limit()), 0.001)
	assert.Equal(t, time.Second, c.http.Timeout)
}
