package store

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Subscription is a live view of one path. Every value received on C is the
// full node content, never a delta. C is closed once the subscription ends.
type Subscription struct {
	C <-chan Node

	cancel context.CancelFunc
	done   chan struct{}
}

// Close ends the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// fetchFunc reads the observed node and its content tag.
type fetchFunc func(ctx context.Context) (Node, string, error)

// watch starts the delivery loop shared by all backends. The loop re-reads the
// node whenever trigger fires or, when interval is positive, on every tick,
// and forwards it only when its tag moved. Slow consumers therefore see the
// latest state rather than every intermediate one.
func watch(ctx context.Context, path string, trigger <-chan struct{}, interval time.Duration, fetch fetchFunc, release func()) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Node)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		if release != nil {
			defer release()
		}

		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		glog.V(1).Infof("store: subscribed to %s", path)
		defer glog.V(1).Infof("store: unsubscribed from %s", path)

		delivered := false
		lastTag := ""
		for {
			node, tag, err := fetch(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				glog.Warningf("store: observe %s: %v", path, err)
			case !delivered || tag != lastTag:
				select {
				case out <- node:
				case <-ctx.Done():
					return
				}
				delivered = true
				lastTag = tag
			}

			select {
			case <-ctx.Done():
				return
			case <-trigger:
			case <-tick:
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel, done: done}
}
