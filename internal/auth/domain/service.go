package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
	ChangePassword(ctx context.Context, id snowflake.ID, newPassword string) error
}

// CreateUserRequest takes either a plain Password or an already hashed one
// carried over from a signup request.
type CreateUserRequest struct {
	Email           string
	Password        string
	PasswordHash    string
	FullName        string
	CompanyName     string
	Phone           string
	Role            string
	Status          string
	AccessExpiresAt *time.Time
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
