package domain

import "errors"

// Credential and account errors. Login only reveals the account state after
// the password has been checked.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserExists         = errors.New("user_exists")
	ErrAccountPending     = errors.New("account_pending")
	ErrAccountSuspended   = errors.New("account_suspended")
	ErrAccessExpired      = errors.New("access_expired")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrWeakPassword       = errors.New("weak_password")
)

// Session errors all surface to clients as a plain 401.
var (
	ErrInvalidSession  = errors.New("invalid_session")
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionExpired  = errors.New("session_expired")
	ErrSessionRevoked  = errors.New("session_revoked")
)
