// Package cache keeps ranked result pages in Redis, keyed by the index
// fingerprint so pages from an older index are never served.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "docsearch:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cached page.
type Key struct {
	Fingerprint string
	Query       string
	Limit       int
	Categories  []string
}

// String hashes the key. Category order does not matter.
func (k Key) String() string {
	cats := slices.Clone(k.Categories)
	slices.Sort(cats)
	h := sha256.New()
	h.Write([]byte(k.Fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(k.Query))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k.Limit)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(cats, ",")))
	return keyPrefix + hex.EncodeToString(h.Sum(nil)[:16])
}

// Hit is one ranked location.
type Hit struct {
	Location   string  `json:"l"`
	Score      float64 `json:"s"`
	ExactTitle bool    `json:"e,omitempty"`
}

// Page is what gets cached for a query: the ranking, not the rendered
// results.
type Page struct {
	Mode      string `json:"m"`
	TotalHits int    `json:"t"`
	Hits      []Hit  `json:"h"`
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Breaker string `json:"breaker"`
}

// ResultCache is a fail-open read-through cache. Redis errors are counted
// and logged, never returned.
type ResultCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
}

// New creates a ResultCache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	c := &ResultCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns the cached page for key, if any.
func (c *ResultCache) Get(ctx context.Context, key Key) (*Page, bool) {
	k := key.String()
	if !c.breaker.Allow() {
		c.miss()
		return nil, false
	}
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.breaker.Record(nil)
		} else {
			c.breaker.Record(err)
			c.errors.Add(1)
			c.logger.Warn("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	c.breaker.Record(nil)
	page, err := decode(data)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache decode failed, evicting", "key", k, "error", err)
		if err := c.store.Del(ctx, k); err != nil {
			c.logger.Warn("cache evict failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return page, true
}

// Set stores page under key.
func (c *ResultCache) Set(ctx context.Context, key Key, page *Page) {
	k := key.String()
	data, err := encode(page)
	if err != nil {
		c.logger.Error("cache encode failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached page for key or computes, stores and
// returns it. Concurrent misses for the same key share one computation.
// The bool reports a cache hit.
func (c *ResultCache) GetOrCompute(ctx context.Context, key Key, compute func() (*Page, error)) (*Page, bool, error) {
	if page, ok := c.Get(ctx, key); ok {
		return page, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		page, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, page)
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Page), false, nil
}

// Invalidate deletes every cached page. A successful flush shows Redis is
// reachable again, so an open breaker is closed.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	if state := c.breaker.GetState(); state != resilience.StateClosed {
		c.breaker.Reset()
		c.logger.Info("circuit breaker closed by invalidation", "breaker", c.breaker.Name(), "was", state.String())
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns the current counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Breaker: c.breaker.GetState().String(),
	}
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func encode(p *Page) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func decode(data []byte) (*Page, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompressing page: %w", err)
	}
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshalling page: %w", err)
	}
	return &p, nil
}
