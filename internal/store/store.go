// Package store is the adapter over the path-addressed JSON tree that holds
// users, conversation summaries and message logs.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when the node at a path is absent.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidPath is returned for paths a backend cannot address.
	ErrInvalidPath = errors.New("invalid node path")
)

// Node is the JSON content of one path, as read from the store.
type Node struct {
	Path string
	Raw  json.RawMessage
}

// Exists reports whether the node held a value when it was read.
func (n Node) Exists() bool {
	return len(n.Raw) > 0 && string(n.Raw) != "null"
}

// Decode unmarshals the node content into v. It returns ErrNotFound for an
// absent node.
func (n Node) Decode(v any) error {
	if !n.Exists() {
		return ErrNotFound
	}
	return json.Unmarshal(n.Raw, v)
}

// Store is the contract every backend implements. Each Set touches exactly one
// path; there are no multi-path writes.
type Store interface {
	// Get reads the node at path once.
	Get(ctx context.Context, path string) (Node, error)

	// Set replaces the node at path with v. Last writer wins. A nil v removes
	// the node.
	Set(ctx context.Context, path string, v any) error

	// Observe delivers the current node at path followed by the full node
	// after every change at, above or below it, until ctx is cancelled or the
	// subscription is closed.
	Observe(ctx context.Context, path string) (*Subscription, error)
}

// Versioned is implemented by backends that can guard a write with the
// content tag observed by a read (Firebase ETag semantics).
type Versioned interface {
	// GetVersioned reads the node at path together with its tag. Absent nodes
	// are returned without error and carry a tag too.
	GetVersioned(ctx context.Context, path string) (Node, string, error)

	// SetIfVersion replaces the node at path only if its tag still equals tag.
	// It reports false when another writer got there first.
	SetIfVersion(ctx context.Context, path, tag string, v any) (bool, error)
}

// splitPath turns "/a/b/" into ["a", "b"].
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// joinPath is the canonical form of a path, used in Node.Path.
func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}
