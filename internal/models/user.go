package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleEmployer   Role = "employer"
	RoleFreelancer Role = "freelancer"
)

// User is stored at users/{id}. The relationship and block maps live in the
// same node so a single read of a user answers visibility questions.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`

	// Derived from jobs; written only by the projection manager.
	AcceptedFreelancers map[string]RelationshipEntry `json:"acceptedFreelancers,omitempty"`
	LinkedEmployers     map[string]RelationshipEntry `json:"linkedEmployers,omitempty"`

	BlockedUsers map[string]BlockEntry `json:"blockedUsers,omitempty"`
}

// UserCompact is the public view of a user embedded in other responses.
type UserCompact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Role: u.Role}
}

// RegisterUserRequest creates the marketplace record for an authenticated identity.
type RegisterUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=80"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  Role   `json:"role" validate:"required,oneof=employer freelancer"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
