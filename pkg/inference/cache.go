package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/metrics"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize       = 8
	DefaultColdConcurrency = 4
	DefaultLoadTimeout     = time.Minute
)

type ModelCacheEntry struct {
	Model    *search.Artifact
	LoadedAt time.Time
	Cost     int
}

// Loader fetch and decode the model of one job
type Loader func(ctx context.Context) (*search.Artifact, error)

// ModelCache process local models keyed by job id. It is never durable: any
// entry may vanish at any time and the next lookup simply loads again.
type ModelCache struct {
	entries *lru.Cache
	flights singleflight.Group
	cold    *semaphore.Weighted
	now     func() time.Time

	// loads in flight by id, an id dropped by Invalidate is not stored when its load ends
	mu          sync.Mutex
	seq         uint64
	inflight    map[string]uint64
	loadTimeout time.Duration
}

// NewModelCache size and coldConcurrency fall back to the defaults when not positive
func NewModelCache(size, coldConcurrency int) *ModelCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if coldConcurrency <= 0 {
		coldConcurrency = DefaultColdConcurrency
	}
	entries, _ := lru.NewWithEvict(size, func(key, _ interface{}) {
		logrus.Debugf("model cache evict %v", key)
	})
	return &ModelCache{
		entries:     entries,
		cold:        semaphore.NewWeighted(int64(coldConcurrency)),
		now:         time.Now,
		inflight:    make(map[string]uint64),
		loadTimeout: DefaultLoadTimeout,
	}
}

// GetOrLoad the cached entry of id, or run load once for every concurrent
// caller missing on the same id. The bool reports a cache hit.
func (c *ModelCache) GetOrLoad(ctx context.Context, id string, load Loader) (*ModelCacheEntry, bool, error) {
	if v, ok := c.entries.Get(id); ok {
		metrics.ModelCacheHitCount.Inc()
		return v.(*ModelCacheEntry), true, nil
	}
	metrics.ModelCacheMissCount.Inc()
	ch := c.flights.DoChan(id, func() (interface{}, error) {
		token := c.begin(id)
		// shared by every waiter, detached from the caller that started it
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		if err := c.cold.Acquire(loadCtx, 1); err != nil {
			c.finish(id, token, nil)
			return nil, err
		}
		defer c.cold.Release(1)
		if v, ok := c.entries.Get(id); ok {
			c.finish(id, token, nil)
			return v, nil
		}
		start := time.Now()
		model, err := load(loadCtx)
		metrics.ModelLoadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			c.finish(id, token, nil)
			return nil, err
		}
		entry := &ModelCacheEntry{Model: model, LoadedAt: c.now(), Cost: model.Cost()}
		c.finish(id, token, entry)
		return entry, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, fmt.Errorf("load model %s: %w", id, res.Err)
		}
		return res.Val.(*ModelCacheEntry), false, nil
	}
}

// Peek the entry of id without loading, for tests and warm checks
func (c *ModelCache) Peek(id string) (*ModelCacheEntry, bool) {
	v, ok := c.entries.Peek(id)
	if !ok {
		return nil, false
	}
	return v.(*ModelCacheEntry), true
}

func (c *ModelCache) begin(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.inflight[id] = c.seq
	return c.seq
}

// finish store entry unless id was invalidated since the load began
func (c *ModelCache) finish(id string, token uint64, entry *ModelCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[id] != token {
		return
	}
	delete(c.inflight, id)
	if entry != nil {
		c.entries.Add(id, entry)
	}
}

// Invalidate drop the entry of id. A load in flight still answers its
// waiters but its result is not cached, later callers load again.
func (c *ModelCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
	c.flights.Forget(id)
	c.entries.Remove(id)
}

// Keys cached job ids, oldest first
func (c *ModelCache) Keys() []string {
	keys := c.entries.Keys()
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.(string))
	}
	return ids
}

func (c *ModelCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = make(map[string]uint64)
	c.entries.Purge()
}

func (c *ModelCache) Len() int {
	return c.entries.Len()
}
