package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store. It keeps the tree as decoded JSON so
// values round-trip exactly as they would through the Firebase backend:
// empty objects vanish and deleting the last child removes the parent.
type MemoryStore struct {
	mu     sync.RWMutex
	root   map[string]any
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	path string
	cb   func(Change)
}

type pendingCallback struct {
	cb     func(Change)
	change Change
}

// NewMemoryStore creates an empty tree.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[int]*subscription)}
}

func (m *MemoryStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	raw, err := m.encodeAt(path)
	m.mu.RUnlock()
	if err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	m.mu.Lock()
	m.writeLocked(Split(path), v)
	pending := m.collectLocked([]string{path})
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, path string, partial map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := make(map[string]any, len(partial))
	for k, raw := range partial {
		v, err := normalize(raw)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", path, k, err)
		}
		values[k] = v
	}
	m.mu.Lock()
	written := make([]string, 0, len(values))
	for k, v := range values {
		child := Join(path, k)
		m.writeLocked(Split(child), v)
		written = append(written, child)
	}
	pending := m.collectLocked(written)
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	return m.Set(ctx, path, nil)
}

func (m *MemoryStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	raw, err := m.encodeAt(path)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	next, err := fn(NewTxNode(raw))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	v, err := normalize(next)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	m.writeLocked(Split(path), v)
	pending := m.collectLocked([]string{path})
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, path, child string, value any, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode query value: %w", err)
	}
	m.mu.RLock()
	matches := make(map[string]any)
	if node, ok := m.lookup(Split(path)).(map[string]any); ok {
		for key, c := range node {
			fields, ok := c.(map[string]any)
			if !ok {
				continue
			}
			field, ok := fields[child]
			if !ok {
				continue
			}
			got, err := json.Marshal(field)
			if err == nil && bytes.Equal(got, want) {
				matches[key] = c
			}
		}
	}
	raw, err := json.Marshal(matches)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (m *MemoryStore) Subscribe(ctx context.Context, path string, cb func(Change)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = &subscription{path: Join(path), cb: cb}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			cancel()
		}()
	}
	return cancel, nil
}

func (m *MemoryStore) lookup(segs []string) any {
	var node any = m.root
	for _, s := range segs {
		children, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = children[s]
	}
	if children, ok := node.(map[string]any); ok && children == nil {
		return nil
	}
	return node
}

func (m *MemoryStore) encodeAt(path string) ([]byte, error) {
	node := m.lookup(Split(path))
	if node == nil {
		return []byte("null"), nil
	}
	return json.Marshal(node)
}

func (m *MemoryStore) writeLocked(segs []string, v any) {
	if len(segs) == 0 {
		root, _ := v.(map[string]any)
		m.root = root
		return
	}
	m.root = setIn(m.root, segs, v)
}

// collectLocked snapshots the callbacks a write to paths should trigger.
// Callbacks run after the lock is released so they may use the store.
func (m *MemoryStore) collectLocked(paths []string) []pendingCallback {
	var out []pendingCallback
	for _, sub := range m.subs {
		for _, p := range paths {
			if !Overlaps(sub.path, p) {
				continue
			}
			raw, err := m.encodeAt(sub.path)
			if err != nil || isNull(raw) {
				raw = nil
			}
			out = append(out, pendingCallback{cb: sub.cb, change: Change{Path: sub.path, Data: raw}})
			break
		}
	}
	return out
}

func fire(pending []pendingCallback) {
	for _, p := range pending {
		p.cb(p.change)
	}
}

func setIn(node map[string]any, segs []string, v any) map[string]any {
	if node == nil {
		if v == nil {
			return nil
		}
		node = make(map[string]any)
	}
	key := segs[0]
	if len(segs) == 1 {
		if v == nil {
			delete(node, key)
		} else {
			node[key] = v
		}
	} else {
		child, _ := node[key].(map[string]any)
		child = setIn(child, segs[1:], v)
		if child == nil {
			delete(node, key)
		} else {
			node[key] = child
		}
	}
	if len(node) == 0 {
		return nil
	}
	return node
}

// normalize converts v to its decoded-JSON form and strips empty objects.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return prune(out), nil
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, c := range t {
			if p := prune(c); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		for i, c := range t {
			t[i] = prune(c)
		}
		return t
	default:
		return v
	}
}
