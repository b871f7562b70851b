package store

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/freelink/backend/pkg/apperrors"
)

// guarded bounds every call with a timeout and reports backend failures as
// infrastructure errors. Errors produced by a TxFunc (ErrAbort or an
// AppError) are passed through untouched.
type guarded struct {
	inner   Store
	timeout time.Duration
}

// WithTimeout decorates s so no call blocks longer than d.
func WithTimeout(s Store, d time.Duration) Store {
	return &guarded{inner: s, timeout: d}
}

func (g *guarded) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *guarded) Get(ctx context.Context, path string, dst any) (bool, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	found, err := g.inner.Get(ctx, path, dst)
	return found, classify(err, "read "+path)
}

func (g *guarded) Set(ctx context.Context, path string, value any) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return classify(g.inner.Set(ctx, path, value), "write "+path)
}

func (g *guarded) Update(ctx context.Context, path string, partial map[string]any) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return classify(g.inner.Update(ctx, path, partial), "update "+path)
}

func (g *guarded) Delete(ctx context.Context, path string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return classify(g.inner.Delete(ctx, path), "delete "+path)
}

func (g *guarded) Transact(ctx context.Context, path string, fn TxFunc) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return classify(g.inner.Transact(ctx, path, fn), "transact "+path)
}

func (g *guarded) Query(ctx context.Context, path, child string, value any, dst any) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return classify(g.inner.Query(ctx, path, child, value, dst), "query "+path)
}

func (g *guarded) Subscribe(ctx context.Context, path string, cb func(Change)) (func(), error) {
	cancel, err := g.inner.Subscribe(ctx, path, cb)
	return cancel, classify(err, "subscribe "+path)
}

func classify(err error, op string) error {
	if err == nil || errors.Is(err, ErrAbort) {
		return err
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Infrastructure(op, err)
}
