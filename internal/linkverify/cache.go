package linkverify

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrCacheMiss is returned when a URL has no cached result.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry is a cached verification result.
type CacheEntry struct {
	URL             string    `json:"url"`
	Status          int       `json:"status"`
	IsValid         bool      `json:"is_valid"`
	Error           string    `json:"error,omitempty"`
	LastChecked     time.Time `json:"last_checked"`
	FailureCount    int       `json:"failure_count"`
	FirstFailedAt   time.Time `json:"first_failed_at,omitzero"`
	ConsecutiveFail bool      `json:"consecutive_fail"`
}

// Fresh reports whether the entry is younger than ttl. Failures are kept for
// a fifth of ttl so a flaky host is retried sooner.
func (e *CacheEntry) Fresh(ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	if !e.IsValid {
		ttl /= 5
	}
	return now.Sub(e.LastChecked) < ttl
}

// Cache stores verification results across runs.
type Cache interface {
	Get(ctx context.Context, url string) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Close() error
}

// Publisher receives broken link events.
type Publisher interface {
	PublishBrokenLink(ctx context.Context, event *BrokenLinkEvent) error
}

// MemoryCache is an in-process LRU cache. It is used when no NATS server is
// configured or reachable.
type MemoryCache struct {
	entries *lru.Cache[string, CacheEntry]
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: c}, nil
}

func (c *MemoryCache) Get(_ context.Context, url string) (*CacheEntry, error) {
	e, ok := c.entries.Get(url)
	if !ok {
		return nil, ErrCacheMiss
	}
	return &e, nil
}

func (c *MemoryCache) Put(_ context.Context, entry *CacheEntry) error {
	if entry == nil {
		return nil
	}
	c.entries.Add(entry.URL, *entry)
	return nil
}

func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
