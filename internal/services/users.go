package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/validators"
)

// UserService owns the marketplace record behind an authenticated identity.
type UserService struct {
	users repositories.UserRepository
	log   *slog.Logger
	now   func() time.Time
}

func NewUserService(users repositories.UserRepository, log *slog.Logger) *UserService {
	return &UserService{users: users, log: loggerOr(log), now: time.Now}
}

// Register creates the user record for uid. Registering again with the same
// role refreshes name and email; a different role is refused.
func (s *UserService) Register(ctx context.Context, uid string, req models.RegisterUserRequest) (*models.User, error) {
	if uid == "" {
		return nil, apperrors.Unauthorized("missing caller identity")
	}
	if err := validators.Check(req); err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	existing, err := s.users.GetUserByID(ctx, uid)
	switch {
	case err == nil:
		if existing.Role != req.Role {
			return nil, apperrors.InvalidState(fmt.Sprintf("user is already registered as %s", existing.Role))
		}
		createdAt = existing.CreatedAt
	case !apperrors.Is(err, apperrors.CodeNotFound):
		return nil, err
	}

	user := &models.User{
		ID:        uid,
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		CreatedAt: createdAt,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", uid, "role", req.Role)
	return s.users.GetUserByID(ctx, uid)
}

func (s *UserService) Get(ctx context.Context, uid string) (*models.User, error) {
	return s.users.GetUserByID(ctx, uid)
}
