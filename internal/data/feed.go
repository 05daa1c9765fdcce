package data

import (
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

// Update is one decoded snapshot of an observed node.
type Update[T any] struct {
	Items []T
	Err   error
}

// Feed is a live sequence of decoded snapshots. The owner must Close it when
// it no longer reads C.
type Feed[T any] struct {
	C <-chan Update[T]

	sub  *store.Subscription
	done chan struct{}
}

// Close releases the underlying subscription.
func (f *Feed[T]) Close() {
	f.sub.Close()
	<-f.done
}

// Done is closed once the feed has ended.
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

func newFeed[T any](sub *store.Subscription, decode func(store.Node) ([]T, error)) *Feed[T] {
	out := make(chan Update[T])
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for node := range sub.C {
			items, err := decode(node)
			select {
			case out <- Update[T]{Items: items, Err: err}:
			case <-sub.Done():
				return
			}
		}
	}()

	return &Feed[T]{C: out, sub: sub, done: done}
}
