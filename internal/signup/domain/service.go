package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
)

// Service covers the account lifecycle a superadmin drives: reviewing signup
// requests and managing access of existing users.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SignupRequest, error)
	List(ctx context.Context, status string) ([]SignupRequest, error)
	Approve(ctx context.Context, reviewerID snowflake.ID, requestID snowflake.ID, months int) (*authdomain.User, error)
	Reject(ctx context.Context, reviewerID snowflake.ID, requestID snowflake.ID) (*SignupRequest, error)

	Suspend(ctx context.Context, actorID snowflake.ID, userID snowflake.ID) (*authdomain.User, error)
	Reactivate(ctx context.Context, actorID snowflake.ID, userID snowflake.ID) (*authdomain.User, error)
	Extend(ctx context.Context, actorID snowflake.ID, userID snowflake.ID, months int) (*authdomain.User, error)
	SetRole(ctx context.Context, actorID snowflake.ID, userID snowflake.ID, role string) (*authdomain.User, error)
}

type SubmitRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
}

// MaxAccessMonths bounds a single approval or extension.
const MaxAccessMonths = 120

var (
	ErrInvalidRequest      = errors.New("invalid_signup_request")
	ErrRequestNotFound     = errors.New("signup_request_not_found")
	ErrRequestPending      = errors.New("signup_request_pending")
	ErrAlreadyReviewed     = errors.New("signup_request_already_reviewed")
	ErrInvalidAccessPeriod = errors.New("invalid_access_period")
	ErrProtectedUser       = errors.New("protected_user")
	ErrSelfManagement      = errors.New("cannot_manage_own_account")
)
