package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

const DefaultPollInterval = 3 * time.Second

type Mode string

const (
	ModePush Mode = "push"
	ModePoll Mode = "poll"
	modeDone Mode = "done"
)

// watcher events
const (
	eventFallback = "fallback"
	eventFinish   = "finish"
)

var watchEvents = fsm.Events{
	{Name: eventFallback, Src: []string{string(ModePush)}, Dst: string(ModePoll)},
	{Name: eventFinish, Src: []string{string(ModePush), string(ModePoll)}, Dst: string(modeDone)},
}

// UpdateFunc receives every merged snapshot together with the transport that delivered it
type UpdateFunc func(snapshot *models.JobResponse, mode Mode)

// errPushEnded the push transport gave up before a terminal snapshot
var errPushEnded = errors.New("push ended before a terminal status")

// transport delivers snapshots until deliver reports a terminal one. A nil
// return means a terminal snapshot was delivered.
type transport interface {
	mode() Mode
	run(ctx context.Context, id string, deliver func(*models.JobResponse) bool) error
}

type pushTransport struct {
	client *Client
}

func (p *pushTransport) mode() Mode { return ModePush }

func (p *pushTransport) run(ctx context.Context, id string, deliver func(*models.JobResponse) bool) error {
	body, err := p.client.OpenStream(ctx, id)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer body.Close()
	reader := newSSEReader(body)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return errPushEnded
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		switch ev.Name {
		case "message", "done":
			snapshot := new(models.JobResponse)
			if err := json.Unmarshal([]byte(ev.Data), snapshot); err != nil {
				return fmt.Errorf("decode %s event: %w", ev.Name, err)
			}
			if deliver(snapshot) {
				return nil
			}
		case "error", "timeout":
			return fmt.Errorf("stream %s: %s", ev.Name, ev.Data)
		default:
			logrus.Debugf("skip stream event %s", ev.Name)
		}
	}
}

type pollTransport struct {
	client   *Client
	interval time.Duration
}

func (p *pollTransport) mode() Mode { return ModePoll }

func (p *pollTransport) run(ctx context.Context, id string, deliver func(*models.JobResponse) bool) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		snapshot, err := p.client.GetJob(ctx, id, false)
		switch {
		case err == nil:
			if deliver(snapshot) {
				return nil
			}
		case IsNotFound(err):
			return err
		case ctx.Err() == nil:
			logrus.Warnf("poll job %s: %v", id, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watcher follows one job to its terminal status, push first then polling
type Watcher struct {
	push transport
	poll transport
}

type WatchOption func(*watchOptions)

type watchOptions struct {
	pollInterval time.Duration
	disablePush  bool
}

func WithPollInterval(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.pollInterval = d
	}
}

// WithoutPush poll from the start, for runtimes that cannot hold a stream
func WithoutPush() WatchOption {
	return func(o *watchOptions) {
		o.disablePush = true
	}
}

func NewWatcher(client *Client, opts ...WatchOption) *Watcher {
	o := &watchOptions{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(o)
	}
	w := &Watcher{poll: &pollTransport{client: client, interval: o.pollInterval}}
	if !o.disablePush {
		w.push = &pushTransport{client: client}
	}
	return w
}

// Watch returns the last merged snapshot, terminal unless ctx ended first
func (w *Watcher) Watch(ctx context.Context, id string, onUpdate UpdateFunc) (*models.JobResponse, error) {
	initial := ModePush
	if w.push == nil {
		initial = ModePoll
	}
	machine := fsm.NewFSM(string(initial), watchEvents, fsm.Callbacks{})

	var current *models.JobResponse
	for {
		var t transport
		switch Mode(machine.Current()) {
		case ModePush:
			t = w.push
		case ModePoll:
			t = w.poll
		default:
			return current, nil
		}
		deliver := func(snapshot *models.JobResponse) bool {
			current = Merge(current, snapshot)
			if onUpdate != nil {
				onUpdate(current, t.mode())
			}
			return current.Terminal()
		}
		err := t.run(ctx, id, deliver)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return current, ctxErr
		}
		if err == nil {
			_ = machine.Event(ctx, eventFinish)
			continue
		}
		if t.mode() == ModePoll {
			return current, err
		}
		logrus.Infof("watch job %s: %v, fall back to polling", id, err)
		if err := machine.Event(ctx, eventFallback); err != nil {
			return current, err
		}
	}
}
