// Package services holds the marketplace engine: the job lifecycle, the
// relationship projection, the block gate, the deadline sweeper,
// notification fan-out, messaging and the ledger. Every operation takes the
// caller's identity explicitly.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/pkg/lease"
	"github.com/google/uuid"
)

// newID returns a time-ordered id that is safe as a store key.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func loggerOr(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// requireRole loads the caller and checks the role recorded in the store.
func requireRole(ctx context.Context, users repositories.UserRepository, userID string, role models.Role) (*models.User, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("missing caller identity")
	}
	user, err := users.GetUserByID(ctx, userID)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, apperrors.Unauthorized("caller is not registered")
	}
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, apperrors.Unauthorized(fmt.Sprintf("only a %s may do this", role))
	}
	return user, nil
}

// runEvery calls fn immediately and then on every tick until ctx ends.
// When locker is set, a tick only runs while holding the named lease.
func runEvery(ctx context.Context, log *slog.Logger, name string, interval time.Duration, locker lease.Locker, fn func(context.Context) error) {
	if interval <= 0 {
		log.Warn("scheduled task disabled", "task", name)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runTick(ctx, log, name, interval, locker, fn)
		select {
		case <-ctx.Done():
			log.Info("scheduled task stopped", "task", name)
			return
		case <-ticker.C:
		}
	}
}

func runTick(ctx context.Context, log *slog.Logger, name string, interval time.Duration, locker lease.Locker, fn func(context.Context) error) {
	if locker != nil {
		release, ok, err := locker.Acquire(ctx, "freelink:lease:"+name, interval)
		if err != nil {
			log.Warn("lease unavailable, running anyway", "task", name, "error", err)
		} else if !ok {
			log.Debug("lease held elsewhere, skipping tick", "task", name)
			return
		} else {
			defer release()
		}
	}
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduled task failed", "task", name, "error", err)
	}
}
