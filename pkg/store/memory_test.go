package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "jobs/j1", testJob{Title: "Logo", Status: "open"}))

	var got testJob
	found, err := s.Get(ctx, "jobs/j1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, testJob{Title: "Logo", Status: "open"}, got)

	var status string
	found, err = s.Get(ctx, "jobs/j1/status", &status)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "open", status)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	got := testJob{Title: "untouched"}

	found, err := s.Get(context.Background(), "jobs/none", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "untouched", got.Title, "dst must not be modified")
}

func TestMemoryStore_DeleteLastChildRemovesParent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "notifications/u1/n1", map[string]any{"message": "hi"}))
	require.NoError(t, s.Delete(ctx, "notifications/u1/n1"))

	var all map[string]any
	found, err := s.Get(ctx, "notifications", &all)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_UpdateIsShallowMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "jobs/j1", testJob{Title: "Logo", Status: "open"}))

	require.NoError(t, s.Update(ctx, "jobs/j1", map[string]any{
		"status":             "accepted",
		"requests/f1/status": "accepted",
		"requests/f2/status": "requested",
	}))

	var got map[string]any
	_, err := s.Get(ctx, "jobs/j1", &got)
	require.NoError(t, err)
	assert.Equal(t, "Logo", got["title"])
	assert.Equal(t, "accepted", got["status"])
	requests := got["requests"].(map[string]any)
	assert.Len(t, requests, 2)

	require.NoError(t, s.Update(ctx, "jobs/j1", map[string]any{"requests/f2": nil}))
	var remaining map[string]any
	_, err = s.Get(ctx, "jobs/j1/requests", &remaining)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.Contains(t, remaining, "f1")
}

func TestMemoryStore_TransactAbortLeavesNode(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "jobs/j1", testJob{Title: "Logo", Status: "closed"}))

	err := s.Transact(ctx, "jobs/j1", func(node TxNode) (any, error) {
		var j testJob
		require.NoError(t, node.Unmarshal(&j))
		if j.Status == "closed" {
			return nil, ErrAbort
		}
		j.Status = "closed"
		return j, nil
	})
	assert.ErrorIs(t, err, ErrAbort)

	var got testJob
	_, err = s.Get(ctx, "jobs/j1", &got)
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Status)
}

func TestMemoryStore_TransactMissingNode(t *testing.T) {
	s := NewMemoryStore()
	var sawExists bool
	err := s.Transact(context.Background(), "jobs/none", func(node TxNode) (any, error) {
		sawExists = node.Exists()
		return nil, ErrAbort
	})
	assert.ErrorIs(t, err, ErrAbort)
	assert.False(t, sawExists)
}

func TestMemoryStore_TransactSerializesWriters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "counters/c", 0))

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := s.Transact(ctx, "counters/c", func(node TxNode) (any, error) {
				var n int
				if err := node.Unmarshal(&n); err != nil {
					return nil, err
				}
				return n + 1, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int
	_, err := s.Get(ctx, "counters/c", &n)
	require.NoError(t, err)
	assert.Equal(t, writers, n)
}

func TestMemoryStore_Query(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "jobs/j1", testJob{Title: "A", Status: "open"}))
	require.NoError(t, s.Set(ctx, "jobs/j2", testJob{Title: "B", Status: "closed"}))
	require.NoError(t, s.Set(ctx, "jobs/j3", testJob{Title: "C", Status: "open"}))

	var open map[string]testJob
	require.NoError(t, s.Query(ctx, "jobs", "status", "open", &open))
	assert.Len(t, open, 2)
	assert.Contains(t, open, "j1")
	assert.Contains(t, open, "j3")

	var none map[string]testJob
	require.NoError(t, s.Query(ctx, "jobs", "status", "accepted", &none))
	assert.Empty(t, none)
}

func TestMemoryStore_SubscribeOverlappingWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var changes []Change
	cancel, err := s.Subscribe(ctx, "notifications/u1", func(c Change) {
		changes = append(changes, c)
	})
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "notifications/u1/n1", map[string]any{"message": "hello"}))
	require.NoError(t, s.Set(ctx, "notifications/u2/n1", map[string]any{"message": "other"}))
	require.NoError(t, s.Delete(ctx, "notifications/u1/n1"))

	require.Len(t, changes, 2)
	var got map[string]map[string]string
	found, err := changes[0].Decode(&got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", got["n1"]["message"])

	found, err = changes[1].Decode(&got)
	require.NoError(t, err)
	assert.False(t, found, "last change reports the path as empty")

	cancel()
	require.NoError(t, s.Set(ctx, "notifications/u1/n2", map[string]any{"message": "late"}))
	assert.Len(t, changes, 2)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	err := s.Set(ctx, "jobs/j1", testJob{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "users/u1/blockedUsers/u2", Join("users", "/u1/", "", "blockedUsers/u2"))
	assert.Equal(t, []string{"a", "b"}, Split("/a//b/"))

	assert.True(t, Overlaps("jobs/j1", "jobs/j1/status"))
	assert.True(t, Overlaps("jobs/j1/status", "jobs"))
	assert.True(t, Overlaps("", "anything"))
	assert.False(t, Overlaps("jobs/j1", "jobs/j10"))
	assert.False(t, Overlaps("users/u1", "jobs/u1"))
}
