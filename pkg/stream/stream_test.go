package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher replays statuses, the last one repeats; a nil entry is a failed read
type scriptedFetcher struct {
	lock     sync.Mutex
	statuses []*job.Status
	calls    int
}

func status(s job.Status) *job.Status { return &s }

func (f *scriptedFetcher) Get(_ context.Context, id string, _ job.Consistency) (*job.Job, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	i := f.calls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.calls++
	if f.statuses[i] == nil {
		return nil, errors.New("read timeout")
	}
	return &job.Job{ID: id, Status: *f.statuses[i]}, nil
}

func collect(t *testing.T, ch <-chan Event) []Event {
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func names(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Name)
	}
	return out
}

func TestStreamUntilDone(t *testing.T) {
	f := &scriptedFetcher{statuses: []*job.Status{
		status(job.StatusPending), nil, status(job.StatusRunning), status(job.StatusCompleted),
	}}
	s := NewStreamer(f, time.Millisecond, time.Minute)
	events := collect(t, s.Open(context.Background(), "job-1"))

	assert.Equal(t, []string{EventMessage, EventError, EventMessage, EventMessage, EventDone}, names(events))
	assert.True(t, errdefs.IsTransientRead(events[1].Err))
	assert.Equal(t, job.StatusCompleted, events[4].Job.Status)
}

func TestStreamTimeout(t *testing.T) {
	f := &scriptedFetcher{statuses: []*job.Status{status(job.StatusRunning)}}
	s := NewStreamer(f, 5*time.Millisecond, 30*time.Millisecond)
	events := collect(t, s.Open(context.Background(), "job-1"))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventTimeout, last.Name)
	terminal := 0
	for _, ev := range events {
		if ev.Name == EventDone || ev.Name == EventTimeout {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestStreamFailedJob(t *testing.T) {
	f := &scriptedFetcher{statuses: []*job.Status{status(job.StatusFailed)}}
	events := collect(t, NewStreamer(f, time.Hour, time.Hour).Open(context.Background(), "job-1"))
	assert.Equal(t, []string{EventMessage, EventDone}, names(events))
}

func TestStreamDisconnect(t *testing.T) {
	f := &scriptedFetcher{statuses: []*job.Status{status(job.StatusRunning)}}
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewStreamer(f, time.Hour, time.Hour).Open(ctx, "job-1")

	first := <-ch
	assert.Equal(t, EventMessage, first.Name)
	cancel()
	events := collect(t, ch)
	for _, ev := range events {
		assert.NotEqual(t, EventTimeout, ev.Name)
		assert.NotEqual(t, EventDone, ev.Name)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	assert.Equal(t, 1, f.calls)
}
