package engine

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultStatsRequestTTL is how long a character stays "done" after its
// stats were generated.
const DefaultStatsRequestTTL = 10 * time.Minute

// statsFetch generates and applies stats for a batch of names.
type statsFetch func(ctx context.Context, names []string) error

// Coalescer de-duplicates stats generation. A batch is keyed by its sorted
// names; identical in-flight batches share one call, names already pending
// or recently completed are filtered out, and completed names expire after
// ttl so a character can be regenerated later.
type Coalescer struct {
	fetch   statsFetch
	limiter *rate.Limiter
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	group singleflight.Group
	wg    sync.WaitGroup

	mu        sync.Mutex
	pending   map[string]struct{}
	completed map[string]time.Time
}

func newCoalescer(fetch statsFetch, limiter *rate.Limiter, ttl time.Duration, logger *slog.Logger) *Coalescer {
	if ttl <= 0 {
		ttl = DefaultStatsRequestTTL
	}
	return &Coalescer{
		fetch:     fetch,
		limiter:   limiter,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
		pending:   make(map[string]struct{}),
		completed: make(map[string]time.Time),
	}
}

// BatchKey is the canonical key for a set of names.
func BatchKey(names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return strings.Join(sorted, "\x1f")
}

// Filter drops names that are pending or completed within the ttl.
func (c *Coalescer) Filter(names []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()

	var out []string
	for _, name := range names {
		if _, ok := c.pending[name]; ok {
			continue
		}
		if _, ok := c.completed[name]; ok {
			continue
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Request starts generation for names in the background and returns at
// once. Names already tracked are skipped.
func (c *Coalescer) Request(ctx context.Context, names []string) bool {
	batch := c.claim(names)
	if len(batch) == 0 {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, batch)
	}()
	return true
}

func (c *Coalescer) claim(names []string) []string {
	batch := c.Filter(names)
	if len(batch) == 0 {
		return nil
	}
	slices.Sort(batch)
	c.mu.Lock()
	for _, name := range batch {
		c.pending[name] = struct{}{}
	}
	c.mu.Unlock()
	return batch
}

func (c *Coalescer) run(ctx context.Context, batch []string) {
	key := BatchKey(batch)
	_, err, _ := c.group.Do(key, func() (interface{}, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return nil, c.fetch(ctx, batch)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range batch {
		delete(c.pending, name)
		if err == nil {
			c.completed[name] = c.now().Add(c.ttl)
		}
	}
	if err != nil && ctx.Err() == nil {
		c.logger.Warn("stats request failed", "characters", batch, "error", err)
	}
}

func (c *Coalescer) evictLocked() {
	now := c.now()
	for name, expires := range c.completed {
		if !now.Before(expires) {
			delete(c.completed, name)
		}
	}
}

// Forget drops any record of name so it can be requested again.
func (c *Coalescer) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.completed, name)
}

// Wait blocks until every started request has finished.
func (c *Coalescer) Wait() {
	c.wg.Wait()
}
