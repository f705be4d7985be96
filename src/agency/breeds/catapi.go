// Package breeds verifies cat breeds against TheCatAPI.
package breeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/metrics"
	"github.com/stake-plus/cat-agency/src/webclient"
)

const cacheKey = "breeds:thecatapi"

type Options struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Attempts int
	CacheTTL time.Duration
	Redis    *redis.Client // optional breed list cache
	Logger   zerolog.Logger
}

// CatAPI checks breed names against the /v1/breeds listing.
type CatAPI struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	attempts int
	ttl      time.Duration
	http     *http.Client
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewCatAPI(opts Options) *CatAPI {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &CatAPI{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		attempts: opts.Attempts,
		ttl:      opts.CacheTTL,
		http:     webclient.NewDefault(opts.Timeout),
		rdb:      opts.Redis,
		log:      opts.Logger,
	}
}

// VerifyBreed reports whether name is a known breed (case-insensitive).
// Any failure to obtain the breed list wraps errs.ErrServiceUnavailable.
func (c *CatAPI) VerifyBreed(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names, source, err := c.breeds(ctx)
	if err != nil {
		metrics.RecordBreedLookup("unavailable", "api")
		return false, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	for _, n := range names {
		if n == want {
			metrics.RecordBreedLookup("ok", source)
			return true, nil
		}
	}
	metrics.RecordBreedLookup("invalid", source)
	return false, nil
}

func (c *CatAPI) breeds(ctx context.Context) ([]string, string, error) {
	if names, ok := c.cached(ctx); ok {
		return names, "cache", nil
	}
	names, err := c.fetch(ctx)
	if err != nil {
		return nil, "api", err
	}
	c.store(ctx, names)
	return names, "api", nil
}

func (c *CatAPI) fetch(ctx context.Context) ([]string, error) {
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["x-api-key"] = c.apiKey
	}

	status, body, err := webclient.DoWithRetry(ctx, c.attempts, 0,
		webclient.Get(ctx, c.http, c.baseURL+"/v1/breeds", headers))
	if err != nil {
		return nil, fmt.Errorf("%w: thecatapi: %v", errs.ErrServiceUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: thecatapi returned %d", errs.ErrServiceUnavailable, status)
	}

	var listing []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: decode breeds: %v", errs.ErrServiceUnavailable, err)
	}

	names := make([]string, 0, len(listing))
	for _, b := range listing {
		if b.Name != "" {
			names = append(names, strings.ToLower(b.Name))
		}
	}
	return names, nil
}

func (c *CatAPI) cached(ctx context.Context) ([]string, bool) {
	if c.rdb == nil || c.ttl <= 0 {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("breed cache read failed")
		}
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		c.log.Warn().Err(err).Msg("breed cache entry corrupt")
		return nil, false
	}
	return names, true
}

func (c *CatAPI) store(ctx context.Context, names []string) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("breed cache write failed")
	}
}
