package repositories

import (
	"context"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/anonto42/freelink/backend/pkg/store"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)

	GetAcceptedFreelancers(ctx context.Context, employerID string) (map[string]models.RelationshipEntry, error)
	GetLinkedEmployers(ctx context.Context, freelancerID string) (map[string]models.RelationshipEntry, error)
	// A nil entry removes the mirror.
	SetAcceptedFreelancer(ctx context.Context, employerID, freelancerID string, entry *models.RelationshipEntry) error
	SetLinkedEmployer(ctx context.Context, freelancerID, employerID string, entry *models.RelationshipEntry) error

	SetBlocked(ctx context.Context, userID, otherID string, blocked bool) error
	IsBlocked(ctx context.Context, userID, otherID string) (bool, error)
}

type userRepository struct {
	store store.Store
}

// NewUserRepository creates a UserRepository over the hierarchical store
func NewUserRepository(s store.Store) UserRepository {
	return &userRepository{store: s}
}

// CreateUser writes the profile fields only, leaving mirrors and blocks intact.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	fields := map[string]any{
		"id":        user.ID,
		"name":      user.Name,
		"role":      user.Role,
		"createdAt": user.CreatedAt,
	}
	if user.Email != "" {
		fields["email"] = user.Email
	}
	return r.store.Update(ctx, userPath(user.ID), fields)
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.store.Get(ctx, userPath(id), &user)
	if err != nil {
		return nil, err
	}
	if !found || user.Role == "" {
		return nil, apperrors.NotFound("user not found")
	}
	user.ID = id
	return &user, nil
}

func (r *userRepository) GetUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var byID map[string]models.User
	if err := r.store.Query(ctx, usersRoot, "role", role, &byID); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(byID))
	for id, u := range byID {
		u.ID = id
		users = append(users, u)
	}
	return users, nil
}

func (r *userRepository) GetAcceptedFreelancers(ctx context.Context, employerID string) (map[string]models.RelationshipEntry, error) {
	return r.mirror(ctx, store.Join(userPath(employerID), acceptedFreelancersKey))
}

func (r *userRepository) GetLinkedEmployers(ctx context.Context, freelancerID string) (map[string]models.RelationshipEntry, error) {
	return r.mirror(ctx, store.Join(userPath(freelancerID), linkedEmployersKey))
}

func (r *userRepository) mirror(ctx context.Context, path string) (map[string]models.RelationshipEntry, error) {
	entries := make(map[string]models.RelationshipEntry)
	if _, err := r.store.Get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *userRepository) SetAcceptedFreelancer(ctx context.Context, employerID, freelancerID string, entry *models.RelationshipEntry) error {
	return r.setEntry(ctx, acceptedFreelancerPath(employerID, freelancerID), entry)
}

func (r *userRepository) SetLinkedEmployer(ctx context.Context, freelancerID, employerID string, entry *models.RelationshipEntry) error {
	return r.setEntry(ctx, linkedEmployerPath(freelancerID, employerID), entry)
}

func (r *userRepository) setEntry(ctx context.Context, path string, entry *models.RelationshipEntry) error {
	if entry == nil {
		return r.store.Delete(ctx, path)
	}
	return r.store.Set(ctx, path, entry)
}

func (r *userRepository) SetBlocked(ctx context.Context, userID, otherID string, blocked bool) error {
	return r.store.Set(ctx, blockPath(userID, otherID), models.BlockEntry{Blocked: blocked})
}

func (r *userRepository) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	var entry models.BlockEntry
	if _, err := r.store.Get(ctx, blockPath(userID, otherID), &entry); err != nil {
		return false, err
	}
	return entry.Blocked, nil
}
