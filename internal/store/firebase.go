package store

import (
	"context"
	"encoding/json"
	"time"

	"firebase.google.com/go/db"
	"github.com/pkg/errors"
)

// Firebase is a Store backed by the Firebase Realtime Database REST API.
// Firebase tags every node with an ETag, which backs Versioned directly.
type Firebase struct {
	client   *db.Client
	interval time.Duration
}

// NewFirebase returns a Firebase store. The Admin SDK has no streaming
// listener, so observed paths are polled every pollInterval with a
// conditional GET.
func NewFirebase(client *db.Client, pollInterval time.Duration) *Firebase {
	return &Firebase{client: client, interval: pollInterval}
}

func (f *Firebase) ref(path string) (*db.Ref, []string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, nil, ErrInvalidPath
	}
	return f.client.NewRef(joinPath(segs)), segs, nil
}

// Get implements Store.
func (f *Firebase) Get(ctx context.Context, path string) (Node, error) {
	ref, segs, err := f.ref(path)
	if err != nil {
		return Node{}, err
	}
	var raw json.RawMessage
	if err := ref.Get(ctx, &raw); err != nil {
		return Node{}, errors.Wrapf(err, "get %s", ref.Path)
	}
	node := Node{Path: joinPath(segs), Raw: raw}
	if !node.Exists() {
		return node, ErrNotFound
	}
	return node, nil
}

// GetVersioned implements Versioned.
func (f *Firebase) GetVersioned(ctx context.Context, path string) (Node, string, error) {
	ref, segs, err := f.ref(path)
	if err != nil {
		return Node{}, "", err
	}
	var raw json.RawMessage
	etag, err := ref.GetWithETag(ctx, &raw)
	if err != nil {
		return Node{}, "", errors.Wrapf(err, "get %s", ref.Path)
	}
	return Node{Path: joinPath(segs), Raw: raw}, etag, nil
}

// Set implements Store.
func (f *Firebase) Set(ctx context.Context, path string, v any) error {
	ref, _, err := f.ref(path)
	if err != nil {
		return err
	}
	if v == nil {
		return errors.Wrapf(ref.Delete(ctx), "delete %s", ref.Path)
	}
	return errors.Wrapf(ref.Set(ctx, v), "set %s", ref.Path)
}

// SetIfVersion implements Versioned.
func (f *Firebase) SetIfVersion(ctx context.Context, path, tag string, v any) (bool, error) {
	ref, _, err := f.ref(path)
	if err != nil {
		return false, err
	}
	ok, err := ref.SetIfUnchanged(ctx, tag, v)
	if err != nil {
		return false, errors.Wrapf(err, "conditional set %s", ref.Path)
	}
	return ok, nil
}

// Observe implements Store.
func (f *Firebase) Observe(ctx context.Context, path string) (*Subscription, error) {
	ref, segs, err := f.ref(path)
	if err != nil {
		return nil, err
	}
	interval := f.interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var (
		last Node
		etag string
	)
	fetch := func(ctx context.Context) (Node, string, error) {
		if etag == "" {
			node, tag, err := f.GetVersioned(ctx, path)
			if err != nil {
				return Node{}, "", err
			}
			last, etag = node, tag
			return last, etag, nil
		}
		var raw json.RawMessage
		changed, tag, err := ref.GetIfChanged(ctx, etag, &raw)
		if err != nil {
			return Node{}, "", errors.Wrapf(err, "poll %s", ref.Path)
		}
		if changed {
			last, etag = Node{Path: joinPath(segs), Raw: raw}, tag
		}
		return last, etag, nil
	}
	return watch(ctx, joinPath(segs), nil, interval, fetch, nil), nil
}
