package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Subscribers are notified on every write that
// touches their path, so it behaves like the hosted database's push channel.
type Memory struct {
	mu     sync.RWMutex
	root   any
	subs   map[int64]*memorySub
	nextID int64
}

type memorySub struct {
	segs   []string
	notify chan struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int64]*memorySub)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, path string) (Node, error) {
	node, _, err := m.GetVersioned(ctx, path)
	if err != nil {
		return node, err
	}
	if !node.Exists() {
		return node, ErrNotFound
	}
	return node, nil
}

// GetVersioned implements Versioned.
func (m *Memory) GetVersioned(ctx context.Context, path string) (Node, string, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, "", err
	}
	segs := splitPath(path)

	m.mu.RLock()
	raw, err := encodeTree(lookup(m.root, segs))
	m.mu.RUnlock()
	if err != nil {
		return Node{}, "", err
	}
	return Node{Path: joinPath(segs), Raw: raw}, contentTag(raw), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, path string, v any) error {
	_, err := m.write(ctx, path, "", false, v)
	return err
}

// SetIfVersion implements Versioned.
func (m *Memory) SetIfVersion(ctx context.Context, path, tag string, v any) (bool, error) {
	return m.write(ctx, path, tag, true, v)
}

func (m *Memory) write(ctx context.Context, path, tag string, guarded bool, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return false, ErrInvalidPath
	}
	val, err := toTree(v)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	if guarded {
		raw, err := encodeTree(lookup(m.root, segs))
		if err != nil {
			m.mu.Unlock()
			return false, err
		}
		if contentTag(raw) != tag {
			m.mu.Unlock()
			return false, nil
		}
	}
	m.root = assign(m.root, segs, val)
	var wake []chan struct{}
	for _, sub := range m.subs {
		if overlaps(sub.segs, segs) {
			wake = append(wake, sub.notify)
		}
	}
	m.mu.Unlock()

	for _, ch := range wake {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true, nil
}

// Observe implements Store.
func (m *Memory) Observe(ctx context.Context, path string) (*Subscription, error) {
	segs := splitPath(path)
	sub := &memorySub{segs: segs, notify: make(chan struct{}, 1)}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = sub
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	fetch := func(ctx context.Context) (Node, string, error) {
		return m.GetVersioned(ctx, path)
	}
	return watch(ctx, joinPath(segs), sub.notify, 0, fetch, release), nil
}

// overlaps reports whether a write at b can change the node at a.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
