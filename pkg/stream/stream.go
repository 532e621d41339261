// Package stream pushes job snapshots to one subscriber until the job is
// terminal, the session ceiling is hit or the subscriber goes away.
package stream

import (
	"context"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const (
	EventMessage = "message"
	EventDone    = "done"
	EventTimeout = "timeout"
	EventError   = "error"
)

// session end reasons, the metric label
const (
	reasonDone       = "done"
	reasonTimeout    = "timeout"
	reasonDisconnect = "disconnect"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxDuration = 5 * time.Minute
)

type Fetcher interface {
	Get(ctx context.Context, id string, consistency job.Consistency) (*job.Job, error)
}

// Event Job is set on message and done, Err on error
type Event struct {
	Name string
	Job  *job.Job
	Err  error
}

type Streamer struct {
	fetcher     Fetcher
	interval    time.Duration
	maxDuration time.Duration
}

func NewStreamer(fetcher Fetcher, interval, maxDuration time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Streamer{fetcher: fetcher, interval: interval, maxDuration: maxDuration}
}

// Open start a session. The channel closes after done or timeout, or as soon
// as ctx is cancelled; at most one of done and timeout is ever sent.
func (s *Streamer) Open(ctx context.Context, id string) <-chan Event {
	ch := make(chan Event, 1)
	go s.run(ctx, id, ch)
	return ch
}

func (s *Streamer) run(ctx context.Context, id string, ch chan<- Event) {
	entry := logrus.WithFields(logrus.Fields{"jobId": id})
	reason := reasonDisconnect
	defer func() {
		close(ch)
		metrics.StreamSessionCount.WithLabelValues(reason).Inc()
		entry.Debugf("stream closed: %s", reason)
	}()
	send := func(ev Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	ceiling := time.NewTimer(s.maxDuration)
	defer ceiling.Stop()

	for {
		snapshot, err := s.fetcher.Get(ctx, id, job.BestEffort)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			entry.Warnf("stream fetch: %v", err)
			if !send(Event{Name: EventError, Err: errdefs.TransientRead(err, "fetch job %s", id)}) {
				return
			}
		default:
			if !send(Event{Name: EventMessage, Job: snapshot}) {
				return
			}
			if snapshot.Status.Terminal() {
				if send(Event{Name: EventDone, Job: snapshot}) {
					reason = reasonDone
				}
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ceiling.C:
			if send(Event{Name: EventTimeout}) {
				reason = reasonTimeout
			}
			return
		case <-ticker.C:
		}
	}
}
