package breeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/cat-agency/src/agency/errs"
)

const listing = `[{"id":"siam","name":"Siamese"},{"id":"beng","name":"Bengal"}]`

func newServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		assert.Equal(t, "/v1/breeds", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyBreed_CaseInsensitive(t *testing.T) {
	srv := newServer(t, http.StatusOK, listing, nil)
	api := NewCatAPI(Options{BaseURL: srv.URL, Timeout: time.Second, Logger: zerolog.Nop()})

	ok, err := api.VerifyBreed(context.Background(), "  siamese ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = api.VerifyBreed(context.Background(), "Dragon")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyBreed_Non200IsUnavailable(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, `oops`, nil)
	api := NewCatAPI(Options{BaseURL: srv.URL, Timeout: time.Second, Attempts: 1, Logger: zerolog.Nop()})

	ok, err := api.VerifyBreed(context.Background(), "Siamese")

	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrServiceUnavailable)
}

func TestVerifyBreed_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	api := NewCatAPI(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: zerolog.Nop()})

	_, err := api.VerifyBreed(context.Background(), "Siamese")

	assert.ErrorIs(t, err, errs.ErrServiceUnavailable)
}

func TestVerifyBreed_GarbageIsUnavailable(t *testing.T) {
	srv := newServer(t, http.StatusOK, `<html>`, nil)
	api := NewCatAPI(Options{BaseURL: srv.URL, Timeout: time.Second, Logger: zerolog.Nop()})

	_, err := api.VerifyBreed(context.Background(), "Siamese")

	assert.ErrorIs(t, err, errs.ErrServiceUnavailable)
}

func TestVerifyBreed_UsesRedisCache(t *testing.T) {
	var calls int32
	srv := newServer(t, http.StatusOK, listing, &calls)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := NewCatAPI(Options{
		BaseURL:  srv.URL,
		Timeout:  time.Second,
		CacheTTL: time.Minute,
		Redis:    rdb,
		Logger:   zerolog.Nop(),
	})

	for _, name := range []string{"Siamese", "Bengal", "bengal"} {
		ok, err := api.VerifyBreed(context.Background(), name)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists(cacheKey))

	mr.FastForward(2 * time.Minute)
	_, err := api.VerifyBreed(context.Background(), "Siamese")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
