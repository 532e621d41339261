package inference

import (
	"context"
	"sync"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/sirupsen/logrus"
)

// CacheListener drops cached models whose job was undeployed or deleted
// through another process. Predict re-checks the record on every call, the
// sweep only frees the entries early.
type CacheListener struct {
	store    *job.Store
	cache    *ModelCache
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	started  bool
}

func NewCacheListener(store *job.Store, cache *ModelCache, interval time.Duration) *CacheListener {
	return &CacheListener{
		store:    store,
		cache:    cache,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start sweep every interval until Close
func (l *CacheListener) Start() {
	l.started = true
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), config.HTTPTIMEOUT)
				l.Sweep(ctx)
				cancel()
			}
		}
	}()
}

// Sweep check every cached job once, returns the evicted ids
func (l *CacheListener) Sweep(ctx context.Context) []string {
	var evicted []string
	for _, id := range l.cache.Keys() {
		j, err := l.store.Get(ctx, id, job.Strong)
		switch {
		case errdefs.IsNotFound(err), err == nil && !j.Deployed:
			l.cache.Invalidate(id)
			evicted = append(evicted, id)
		case err != nil:
			logrus.WithFields(logrus.Fields{"jobId": id}).Warnf("cache sweep read: %v", err)
		}
	}
	if len(evicted) > 0 {
		logrus.Infof("cache sweep evicted %v", evicted)
	}
	return evicted
}

// Close stop the sweep loop and wait for it, safe to call more than once
func (l *CacheListener) Close() {
	l.once.Do(func() {
		close(l.stop)
	})
	if l.started {
		<-l.done
	}
}
