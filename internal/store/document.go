package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultPollInterval is how often document backends re-read observed paths.
const DefaultPollInterval = 500 * time.Millisecond

// maxRootRetries bounds the internal retries of a sub-path write when other
// writers keep bumping the same root document.
const maxRootRetries = 16

// rootStore persists one JSON document per first path segment, guarded by a
// version counter. Version 0 means the document does not exist.
type rootStore interface {
	load(ctx context.Context, key string) (raw []byte, version int64, err error)
	// save replaces the document only if it is still at version. A nil raw
	// removes the document.
	save(ctx context.Context, key string, raw []byte, version int64) (bool, error)
}

// documentStore implements Store and Versioned on top of a rootStore. Writes
// below the root are read-modify-write cycles on the root document, repeated
// until the version guard holds, so sibling paths are never clobbered.
type documentStore struct {
	roots    rootStore
	interval time.Duration
}

func (d *documentStore) read(ctx context.Context, path string) (Node, string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return Node{}, "", ErrInvalidPath
	}
	raw, _, err := d.roots.load(ctx, segs[0])
	if err != nil {
		return Node{}, "", err
	}
	root, err := parseTree(raw)
	if err != nil {
		return Node{}, "", err
	}
	out, err := encodeTree(lookup(root, segs[1:]))
	if err != nil {
		return Node{}, "", err
	}
	return Node{Path: joinPath(segs), Raw: out}, contentTag(out), nil
}

// Get implements Store.
func (d *documentStore) Get(ctx context.Context, path string) (Node, error) {
	node, _, err := d.read(ctx, path)
	if err != nil {
		return node, err
	}
	if !node.Exists() {
		return node, ErrNotFound
	}
	return node, nil
}

// GetVersioned implements Versioned.
func (d *documentStore) GetVersioned(ctx context.Context, path string) (Node, string, error) {
	return d.read(ctx, path)
}

// Set implements Store.
func (d *documentStore) Set(ctx context.Context, path string, v any) error {
	_, err := d.write(ctx, path, "", false, v)
	return err
}

// SetIfVersion implements Versioned.
func (d *documentStore) SetIfVersion(ctx context.Context, path, tag string, v any) (bool, error) {
	return d.write(ctx, path, tag, true, v)
}

func (d *documentStore) write(ctx context.Context, path, tag string, guarded bool, v any) (bool, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return false, ErrInvalidPath
	}
	val, err := toTree(v)
	if err != nil {
		return false, err
	}

	for i := 0; i < maxRootRetries; i++ {
		raw, version, err := d.roots.load(ctx, segs[0])
		if err != nil {
			return false, err
		}
		root, err := parseTree(raw)
		if err != nil {
			return false, err
		}
		if guarded {
			cur, err := encodeTree(lookup(root, segs[1:]))
			if err != nil {
				return false, err
			}
			if contentTag(cur) != tag {
				return false, nil
			}
		}

		// val is reused across attempts, so assign a private copy
		next, err := toTree(val)
		if err != nil {
			return false, err
		}
		root = assign(root, segs[1:], next)

		var out []byte
		if root != nil {
			if out, err = encodeTree(root); err != nil {
				return false, err
			}
		}
		ok, err := d.roots.save(ctx, segs[0], out, version)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Errorf("write %s: root document kept changing", joinPath(segs))
}

// Observe implements Store by polling the node every interval.
func (d *documentStore) Observe(ctx context.Context, path string) (*Subscription, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, ErrInvalidPath
	}
	interval := d.interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	fetch := func(ctx context.Context) (Node, string, error) {
		return d.read(ctx, path)
	}
	return watch(ctx, joinPath(segs), nil, interval, fetch, nil), nil
}
