package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// The in-memory and document backends keep whole subtrees as generic JSON
// values (map[string]any, []any, string, float64, bool). The helpers below
// read and replace nested paths inside such a value.

// toTree converts any JSON-marshalable value into its generic form.
func toTree(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode node")
	}
	return parseTree(raw)
}

func parseTree(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t any
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrap(err, "decode node")
	}
	return t, nil
}

// lookup returns the value at segs below root, or nil when any step is absent.
func lookup(root any, segs []string) any {
	cur := root
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// assign replaces the value at segs below root with v and returns the new
// root. Parents emptied by a removal are removed too, the way the hosted
// database prunes empty objects.
func assign(root any, segs []string, v any) any {
	if len(segs) == 0 {
		return prune(v)
	}
	seg, rest := segs[0], segs[1:]

	if list, ok := root.([]any); ok {
		if i, err := strconv.Atoi(seg); err == nil && i >= 0 && i < len(list) {
			child := assign(list[i], rest, v)
			if child == nil && i == len(list)-1 {
				list = list[:i]
			} else {
				list[i] = child
			}
			if len(list) == 0 {
				return nil
			}
			return list
		}
		// a non-index key turns the list into an object
		obj := make(map[string]any, len(list)+1)
		for i, item := range list {
			if item != nil {
				obj[strconv.Itoa(i)] = item
			}
		}
		root = obj
	}

	obj, ok := root.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	child := assign(obj[seg], rest, v)
	if child == nil {
		delete(obj, seg)
	} else {
		obj[seg] = child
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

// prune drops empty objects and lists, which the hosted database never stores.
func prune(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if p := prune(child); p == nil {
				delete(node, k)
			} else {
				node[k] = p
			}
		}
		if len(node) == 0 {
			return nil
		}
	case []any:
		if len(node) == 0 {
			return nil
		}
		for i, child := range node {
			node[i] = prune(child)
		}
	}
	return v
}

// encodeTree renders a subtree; absent values render as JSON null.
func encodeTree(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode node")
	}
	return raw, nil
}

// contentTag is the version tag of a rendered node. encoding/json sorts map
// keys, so equal content always yields an equal tag.
func contentTag(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
