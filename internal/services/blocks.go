package services

import (
	"context"
	"log/slog"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
)

// BlockService is the block gate. A block is directed and owned by the
// user who set it; it never deletes history.
type BlockService struct {
	users repositories.UserRepository
	log   *slog.Logger
}

func NewBlockService(users repositories.UserRepository, log *slog.Logger) *BlockService {
	return &BlockService{users: users, log: loggerOr(log)}
}

func (s *BlockService) Block(ctx context.Context, userID, otherID string) error {
	return s.set(ctx, userID, otherID, true)
}

func (s *BlockService) Unblock(ctx context.Context, userID, otherID string) error {
	return s.set(ctx, userID, otherID, false)
}

func (s *BlockService) set(ctx context.Context, userID, otherID string, blocked bool) error {
	if userID == "" {
		return apperrors.Unauthorized("missing caller identity")
	}
	if otherID == "" {
		return apperrors.Validation("user id is required")
	}
	if userID == otherID {
		return apperrors.Validation("users cannot block themselves")
	}
	if err := s.users.SetBlocked(ctx, userID, otherID, blocked); err != nil {
		return err
	}
	s.log.Info("block updated", "user_id", userID, "other_id", otherID, "blocked", blocked)
	return nil
}

// IsBlocked reports whether userID has blocked otherID.
func (s *BlockService) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	return s.users.IsBlocked(ctx, userID, otherID)
}

// IsMessagingAllowed is false when either user has blocked the other.
func (s *BlockService) IsMessagingAllowed(ctx context.Context, a, b string) (bool, error) {
	blocked, err := s.eitherBlocked(ctx, a, b)
	return !blocked && err == nil, err
}

// VisibleRelationships returns the caller's relationship mirror (accepted
// freelancers for an employer, linked employers for a freelancer) without
// counterparts blocked in either direction. The stored mirror is untouched.
func (s *BlockService) VisibleRelationships(ctx context.Context, userID string) (models.Role, map[string]models.RelationshipEntry, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	entries := user.LinkedEmployers
	if user.Role == models.RoleEmployer {
		entries = user.AcceptedFreelancers
	}

	visible := make(map[string]models.RelationshipEntry, len(entries))
	for peer, entry := range entries {
		if user.BlockedUsers[peer].Blocked {
			continue
		}
		blocked, err := s.users.IsBlocked(ctx, peer, userID)
		if err != nil {
			return "", nil, err
		}
		if !blocked {
			visible[peer] = entry
		}
	}
	return user.Role, visible, nil
}

func (s *BlockService) eitherBlocked(ctx context.Context, a, b string) (bool, error) {
	blocked, err := s.users.IsBlocked(ctx, a, b)
	if err != nil || blocked {
		return blocked, err
	}
	return s.users.IsBlocked(ctx, b, a)
}
