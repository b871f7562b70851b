// Package store is the adapter over the shared hierarchical key/value tree.
//
// Paths are slash-delimited ("jobs/abc/requests/u1"). A write is atomic for
// the single path it targets, including that path's subtree; nothing is
// atomic across two paths. Transact gives a compare-and-write over one path.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrAbort is returned by a TxFunc to leave the node untouched. Transact
// passes it back to the caller unchanged.
var ErrAbort = errors.New("store: transaction aborted")

// Store is the dependency contract every backend implements.
type Store interface {
	// Get decodes the value at path into dst. found is false when nothing is
	// stored there, in which case dst is not modified.
	Get(ctx context.Context, path string, dst any) (found bool, err error)
	// Set replaces the value at path. A nil value deletes it.
	Set(ctx context.Context, path string, value any) error
	// Update shallow-merges partial into the node at path. Keys may be
	// relative child paths; a nil value deletes that child.
	Update(ctx context.Context, path string, partial map[string]any) error
	Delete(ctx context.Context, path string) error
	// Transact runs fn against the current value at path and writes its
	// result only if the node did not change in between. fn may run more
	// than once and must not have side effects beyond its return value.
	Transact(ctx context.Context, path string, fn TxFunc) error
	// Query decodes every child of path whose field child equals value into
	// dst, which must point to a map keyed by child name.
	Query(ctx context.Context, path, child string, value any, dst any) error
	// Subscribe calls cb whenever a write touches path, an ancestor of path
	// or a descendant of path. The returned func cancels the subscription.
	Subscribe(ctx context.Context, path string, cb func(Change)) (func(), error)
}

// TxFunc computes the new value of a node from its current one.
type TxFunc func(node TxNode) (any, error)

// TxNode is the current value handed to a TxFunc.
type TxNode interface {
	Exists() bool
	Unmarshal(dst any) error
}

// Change describes the value at a subscribed path after a write.
// Data is the JSON encoding of that value, or nil if it no longer exists.
type Change struct {
	Path string
	Data json.RawMessage
}

// Decode unmarshals the change payload into dst. It reports false when the
// subscribed path is now empty.
func (c Change) Decode(dst any) (bool, error) {
	if isNull(c.Data) {
		return false, nil
	}
	return true, json.Unmarshal(c.Data, dst)
}

// Join builds a path from segments, dropping empty ones and stray slashes.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Split returns the non-empty segments of path.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Overlaps reports whether a write at one path can change the value at the
// other: one is equal to, or an ancestor of, the other.
func Overlaps(a, b string) bool {
	a, b = Join(a), Join(b)
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

type rawNode struct {
	raw json.RawMessage
}

// NewTxNode wraps raw JSON as a TxNode. Backends that fetch the current
// value as bytes share it.
func NewTxNode(raw []byte) TxNode {
	return rawNode{raw: raw}
}

func (n rawNode) Exists() bool { return !isNull(n.raw) }

func (n rawNode) Unmarshal(dst any) error {
	if !n.Exists() {
		return nil
	}
	return json.Unmarshal(n.raw, dst)
}

func isNull(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
