package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore blocks every write until its context ends.
type slowStore struct {
	*MemoryStore
}

func (s slowStore) Set(ctx context.Context, path string, value any) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeout_SlowWriteIsInfrastructure(t *testing.T) {
	s := WithTimeout(slowStore{NewMemoryStore()}, 20*time.Millisecond)

	start := time.Now()
	err := s.Set(context.Background(), "jobs/j1", map[string]any{"title": "x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, apperrors.Is(err, apperrors.CodeInfrastructure))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_PassesThroughTxErrors(t *testing.T) {
	ctx := context.Background()
	s := WithTimeout(NewMemoryStore(), time.Second)

	err := s.Transact(ctx, "jobs/j1", func(TxNode) (any, error) {
		return nil, ErrAbort
	})
	assert.True(t, errors.Is(err, ErrAbort))

	err = s.Transact(ctx, "jobs/j1", func(TxNode) (any, error) {
		return nil, apperrors.InvalidState("job is not open")
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestWithTimeout_SuccessfulCalls(t *testing.T) {
	ctx := context.Background()
	s := WithTimeout(NewMemoryStore(), time.Second)

	require.NoError(t, s.Set(ctx, "users/u1/name", "Ada"))
	var name string
	found, err := s.Get(ctx, "users/u1/name", &name)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", name)
}
