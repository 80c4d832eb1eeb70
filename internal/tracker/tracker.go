// Package tracker wraps a fetch operation with a time-expiring result cache
// and a per-URL access counter kept in a cache.KV.
//
// For every URL two keys are kept: "count:{url}" counts calls since the last
// miss and "result:{url}" holds the last fetched content until its TTL runs
// out. The keys are written independently, so concurrent callers may observe
// or leave behind a count that does not match the result.
package tracker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang/groupcache/singleflight"

	"github.com/leonardcser/web-cache/internal/cache"
	"github.com/leonardcser/web-cache/internal/logger"
)

// DefaultTTL is how long a fetched result stays cached.
const DefaultTTL = 10 * time.Second

var ErrEmptyURL = errors.New("tracker: empty url")

// Fetcher retrieves the content at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, url string) (string, error)

func (f FetchFunc) Fetch(ctx context.Context, url string) (string, error) { return f(ctx, url) }

type Options struct {
	// TTL of cached results. Zero means DefaultTTL.
	TTL time.Duration
	// SingleFlight collapses concurrent misses for one URL in this process
	// into a single fetch.
	SingleFlight bool
	// Namespace is prepended to both keys as "{ns}:".
	Namespace string
}

// CachingFetcher is safe for concurrent use.
type CachingFetcher struct {
	fetch Fetcher
	kv    cache.KV
	ttl   time.Duration
	ns    string
	group *singleflight.Group
}

func New(fetch Fetcher, kv cache.KV, opts Options) *CachingFetcher {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &CachingFetcher{fetch: fetch, kv: kv, ttl: ttl}
	if opts.Namespace != "" {
		c.ns = opts.Namespace + ":"
	}
	if opts.SingleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

func (c *CachingFetcher) TTL() time.Duration { return c.ttl }

func (c *CachingFetcher) CountKey(url string) string  { return c.ns + "count:" + url }
func (c *CachingFetcher) ResultKey(url string) string { return c.ns + "result:" + url }

// Get returns the content at url, from the cache when a live result exists
// and from the fetcher otherwise. Every call counts; a miss resets the count
// to zero. Fetch and store errors are returned as they are.
func (c *CachingFetcher) Get(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", ErrEmptyURL
	}
	n, err := c.kv.Incr(ctx, c.CountKey(url))
	if err != nil {
		return "", err
	}
	v, err := c.kv.Get(ctx, c.ResultKey(url))
	if err == nil {
		logger.Debugf("cache hit: %s (count=%d)", url, n)
		return string(v), nil
	}
	if !cache.IsMiss(err) {
		return "", err
	}
	logger.Debugf("cache miss: %s", url)

	if c.group == nil {
		return c.refresh(ctx, url)
	}
	return c.sharedRefresh(ctx, url)
}

type flightResult struct {
	body string
	err  error
}

// sharedRefresh joins the in-flight fetch for url, or starts one. The fetch
// runs detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (c *CachingFetcher) sharedRefresh(ctx context.Context, url string) (string, error) {
	shared := context.WithoutCancel(ctx)
	done := make(chan flightResult, 1)
	go func() {
		out, err := c.group.Do(url, func() (interface{}, error) {
			return c.refresh(shared, url)
		})
		body, _ := out.(string)
		done <- flightResult{body: body, err: err}
	}()
	select {
	case r := <-done:
		return r.body, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *CachingFetcher) refresh(ctx context.Context, url string) (string, error) {
	start := time.Now()
	body, err := c.fetch.Fetch(ctx, url)
	if err != nil {
		logger.Warnf("fetch %s failed: %v", url, err)
		return "", err
	}
	if err := c.kv.Put(ctx, c.CountKey(url), []byte("0"), 0); err != nil {
		return "", err
	}
	if err := c.kv.Put(ctx, c.ResultKey(url), []byte(body), c.ttl); err != nil {
		return "", err
	}
	logger.WithFields(map[string]interface{}{
		"bytes":   len(body),
		"elapsed": logger.Since(start),
	}).Infof("fetched %s", url)
	return body, nil
}

// Count returns the calls observed for url since its last miss.
func (c *CachingFetcher) Count(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, ErrEmptyURL
	}
	v, err := c.kv.Get(ctx, c.CountKey(url))
	if cache.IsMiss(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, &cache.StoreError{Op: "count", Key: c.CountKey(url), Err: cache.ErrNotInteger}
	}
	return n, nil
}
