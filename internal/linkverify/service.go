// Package linkverify checks that external links are reachable. Results are
// cached (NATS JetStream KV or an in-process LRU) and broken links are
// published as events.
package linkverify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Check is one external link to verify.
type Check struct {
	URL  string
	Page string
	File string
	Line int
}

// Result is the outcome of a Check.
type Result struct {
	Check
	Status        int
	Reachable     bool
	Err           string
	Cached        bool // answered from the cache without a request
	FailureCount  int
	FirstFailedAt time.Time
}

// VerificationService verifies external links with bounded concurrency and
// a delay between requests.
type VerificationService struct {
	cfg        config.ExternalConfig
	cache      Cache
	publisher  Publisher
	httpClient *http.Client
	now        func() time.Time
	runID      string
}

// Option customizes a VerificationService.
type Option func(*VerificationService)

// WithCache replaces the cache; the default is chosen from the config.
func WithCache(c Cache) Option { return func(s *VerificationService) { s.cache = c } }

// WithPublisher sets where broken link events go.
func WithPublisher(p Publisher) Option { return func(s *VerificationService) { s.publisher = p } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(s *VerificationService) { s.httpClient = c } }

// WithRunID stamps published events with the run id.
func WithRunID(id string) Option { return func(s *VerificationService) { s.runID = id } }

// NewVerificationService builds a service from cfg. With a NATS URL the
// JetStream cache and publisher are used; when NATS is unreachable the
// service falls back to the in-process cache.
func NewVerificationService(ctx context.Context, cfg config.ExternalConfig, opts ...Option) (*VerificationService, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	// Respects HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	s := &VerificationService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after %d redirects", len(via))
				}
				return nil
			},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil && cfg.NATSURL != "" {
		nc, err := NewNATSClient(ctx, cfg)
		if err != nil {
			slog.Warn("NATS link cache unavailable; using in-process cache", logfields.URL(cfg.NATSURL), logfields.Error(err))
		} else {
			s.cache = nc
			if s.publisher == nil {
				s.publisher = nc
			}
		}
	}
	if s.cache == nil {
		mc, err := NewMemoryCache(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create link cache: %w", err)
		}
		s.cache = mc
	}
	return s, nil
}

// Verify checks every link. Each distinct URL is requested at most once;
// results come back in the order of checks. Verify never fails as a whole:
// cancellation leaves the remaining links unverified and they are omitted.
func (s *VerificationService) Verify(ctx context.Context, checks []Check) []Result {
	urls := make([]string, 0, len(checks))
	seen := map[string]struct{}{}
	for _, c := range checks {
		if s.skipped(c.URL) {
			continue
		}
		if _, dup := seen[c.URL]; !dup {
			seen[c.URL] = struct{}{}
			urls = append(urls, c.URL)
		}
	}
	slog.Info("Starting link verification", logfields.Count(len(urls)))

	entries := make(map[string]*CacheEntry, len(urls))
	cached := map[string]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.Concurrency)

	var throttle <-chan time.Time
	if s.cfg.RateLimitDelay > 0 {
		ticker := time.NewTicker(s.cfg.RateLimitDelay)
		defer ticker.Stop()
		throttle = ticker.C
	}

loop:
	for _, u := range urls {
		if ctx.Err() != nil {
			slog.Info("Link verification canceled")
			break
		}
		if hit, err := s.cache.Get(ctx, u); err == nil && hit.Fresh(s.cfg.CacheTTL, s.now()) {
			mu.Lock()
			entries[u] = hit
			cached[u] = true
			mu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		if throttle != nil {
			select {
			case <-ctx.Done():
				<-sem
				break loop
			case <-throttle:
			}
		}

		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()
			entry := s.verifyURL(ctx, u)
			mu.Lock()
			entries[u] = entry
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	results := s.results(checks, entries, cached)
	s.publishBroken(ctx, results)
	slog.Info("Link verification completed", logfields.Count(len(results)))
	return results
}

func (s *VerificationService) results(checks []Check, entries map[string]*CacheEntry, cached map[string]bool) []Result {
	out := make([]Result, 0, len(checks))
	for _, c := range checks {
		e, ok := entries[c.URL]
		if !ok {
			continue
		}
		out = append(out, Result{
			Check:         c,
			Status:        e.Status,
			Reachable:     e.IsValid,
			Err:           e.Error,
			Cached:        cached[c.URL],
			FailureCount:  e.FailureCount,
			FirstFailedAt: e.FirstFailedAt,
		})
	}
	return out
}

func (s *VerificationService) skipped(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	return slices.ContainsFunc(s.cfg.SkipHosts, func(h string) bool {
		h = strings.ToLower(h)
		return host == h || strings.HasSuffix(host, "."+h)
	})
}

// verifyURL checks one URL and records the result in the cache.
func (s *VerificationService) verifyURL(ctx context.Context, u string) *CacheEntry {
	var previous *CacheEntry
	if cached, err := s.cache.Get(ctx, u); err == nil {
		previous = cached
	}

	status, err := s.checkExternalLink(ctx, u)
	entry := &CacheEntry{URL: u, Status: status, IsValid: err == nil, LastChecked: s.now()}
	if err != nil {
		entry.Error = err.Error()
		updateFailureTracking(entry, previous, s.now())
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		slog.Warn("Failed to update link cache", logfields.URL(u), logfields.Error(err))
	}
	return entry
}

func updateFailureTracking(entry, cached *CacheEntry, now time.Time) {
	if cached != nil && !cached.IsValid {
		entry.FailureCount = cached.FailureCount + 1
		entry.FirstFailedAt = cached.FirstFailedAt
	} else {
		entry.FailureCount = 1
	}
	if entry.FirstFailedAt.IsZero() {
		entry.FirstFailedAt = now
	}
	entry.ConsecutiveFail = true
}

// checkExternalLink sends HEAD and falls back to GET when the server does
// not answer HEAD properly.
func (s *VerificationService) checkExternalLink(ctx context.Context, linkURL string) (int, error) {
	status, err := s.request(ctx, http.MethodHead, linkURL)
	if err != nil || status >= 400 && !isAuthError(status) {
		status, err = s.request(ctx, http.MethodGet, linkURL)
	}
	if err != nil {
		return status, err
	}
	if isAuthError(status) {
		return status, nil
	}
	if status >= 400 {
		return status, fmt.Errorf("HTTP %d: %s", status, http.StatusText(status))
	}
	return status, nil
}

func (s *VerificationService) request(ctx context.Context, method, linkURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, linkURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}

// isAuthError returns true for status codes that show the URL exists but
// refuses anonymous or automated access.
func isAuthError(statusCode int) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed, http.StatusTooManyRequests:
		return true
	}
	return false
}

func (s *VerificationService) publishBroken(ctx context.Context, results []Result) {
	if s.publisher == nil {
		return
	}
	for _, r := range results {
		if r.Reachable || r.Cached {
			continue
		}
		event := &BrokenLinkEvent{
			URL:           r.URL,
			Status:        r.Status,
			Error:         r.Err,
			Page:          r.Page,
			File:          r.File,
			Line:          r.Line,
			RunID:         s.runID,
			Timestamp:     s.now(),
			LastChecked:   s.now(),
			FailureCount:  r.FailureCount,
			FirstFailedAt: r.FirstFailedAt,
		}
		if err := s.publisher.PublishBrokenLink(ctx, event); err != nil {
			slog.Error("Failed to publish broken link event", logfields.URL(r.URL), logfields.Page(r.Page), logfields.Error(err))
		}
	}
}

// Close releases the cache.
func (s *VerificationService) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
