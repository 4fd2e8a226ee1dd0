package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// UserID represents a unique user identifier
type UserID string

// NewUserID creates a new random user ID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// String returns the string representation
func (u UserID) String() string {
	return string(u)
}

// Well-known roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account known to the host. PasswordHash is a bcrypt hash and
// never leaves the process.
type User struct {
	ID           UserID    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	DisplayName  string    `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Roles        []string  `json:"roles" bson:"roles"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// HasRole reports whether the user holds role
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// RegisterRequest is the body of a registration call
type RegisterRequest struct {
	Username    string   `json:"username" form:"username" validate:"required,min=3,max=64"`
	Password    string   `json:"password" form:"password" validate:"required,min=8,max=128"`
	DisplayName string   `json:"display_name" form:"display_name" validate:"max=128"`
	Email       string   `json:"email" form:"email" validate:"omitempty,email"`
	Roles       []string `json:"roles" form:"roles"`
}

// LoginRequest is the body of a password login
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}
