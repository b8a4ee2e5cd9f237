package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service answers whether a user, in a given role, may perform action on object.
type Service interface {
	Authorize(ctx context.Context, userID snowflake.ID, role string, object string, action string) error
	// Allowed is Authorize without the error detail.
	Allowed(ctx context.Context, userID snowflake.ID, role string, object string, action string) bool
}

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
)
