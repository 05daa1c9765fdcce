package data

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

// WriteMode selects how list appends and snapshot updates are written.
type WriteMode int

const (
	// Optimistic guards every read-modify-write with the tag of the read and
	// retries on conflict. It requires a store.Versioned backend.
	Optimistic WriteMode = iota

	// LastWriterWins reads, modifies and overwrites with no guard. Two
	// writers that read the same snapshot lose one of their changes.
	LastWriterWins
)

// maxWriteAttempts bounds the optimistic retries of one read-modify-write.
const maxWriteAttempts = 8

// ParseWriteMode parses "optimistic" or "last-writer-wins".
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "optimistic":
		return Optimistic, nil
	case "last-writer-wins", "lww":
		return LastWriterWins, nil
	}
	return 0, errors.Errorf("unknown write mode %q", s)
}

func (m WriteMode) String() string {
	if m == LastWriterWins {
		return "last-writer-wins"
	}
	return "optimistic"
}

// effectiveMode downgrades Optimistic when the backend cannot guard writes.
func effectiveMode(s store.Store, mode WriteMode) WriteMode {
	if mode == Optimistic {
		if _, ok := s.(store.Versioned); !ok {
			glog.Warningf("data: store %T has no versioned writes, using %s", s, LastWriterWins)
			return LastWriterWins
		}
	}
	return mode
}

// mutateFn turns the current node (possibly absent) into its replacement.
// Returning an error aborts without writing.
type mutateFn func(cur store.Node) (any, error)

// readModifyWrite applies fn to the node at path. The store offers no
// multi-path atomicity, so each call covers exactly one path.
func readModifyWrite(ctx context.Context, s store.Store, mode WriteMode, path string, fn mutateFn) error {
	if v, ok := s.(store.Versioned); ok && mode == Optimistic {
		for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
			cur, tag, err := v.GetVersioned(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			next, err := fn(cur)
			if err != nil {
				return err
			}
			written, err := v.SetIfVersion(ctx, path, tag, next)
			if err != nil {
				return writeFailed(path, err)
			}
			if written {
				return nil
			}
			glog.V(1).Infof("data: %s changed since read, retrying (attempt %d)", path, attempt)
		}
		return errors.Wrapf(ErrWriteConflict, "%s", path)
	}

	cur, err := s.Get(ctx, path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return errors.Wrapf(err, "read %s", path)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, path, next); err != nil {
		return writeFailed(path, err)
	}
	return nil
}

var errNotAList = errors.New("node is not a list")

// decodeList reads a stored list. The hosted database returns sparse lists as
// objects keyed by index, so both shapes are accepted; holes are dropped.
func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := list[:0]
		for _, item := range list {
			if string(item) != "null" {
				out = append(out, item)
			}
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errNotAList
	}
	type indexed struct {
		i    int
		item json.RawMessage
	}
	items := make([]indexed, 0, len(obj))
	for k, item := range obj {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, errNotAList
		}
		if string(item) != "null" {
			items = append(items, indexed{i, item})
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].i < items[b].i })
	out := make([]json.RawMessage, len(items))
	for n, it := range items {
		out[n] = it.item
	}
	return out, nil
}

// entryID extracts the "id" field of a list element, or "" if it has none.
func entryID(raw json.RawMessage) string {
	var e struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return ""
	}
	return e.ID
}

// upsertEntry replaces the element whose id matches, or appends item.
func upsertEntry(list []json.RawMessage, id string, item json.RawMessage) []json.RawMessage {
	for i, raw := range list {
		if entryID(raw) == id {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}
