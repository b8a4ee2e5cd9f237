// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Roles gate which invoices and admin actions a user may reach.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Account statuses. Only active accounts can log in.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents a system user account. A nil AccessExpiresAt means
// permanent access.
type User struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Email           string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	FullName        string       `gorm:"type:text;not null;default:''" json:"full_name"`
	CompanyName     string       `gorm:"type:text;not null;default:''" json:"company_name"`
	Phone           string       `gorm:"type:text;not null;default:''" json:"phone"`
	PasswordHash    string       `gorm:"type:text;not null" json:"-"`
	Role            string       `gorm:"type:text;not null;default:'user'" json:"role"`
	Status          string       `gorm:"type:text;not null;default:'pending';index" json:"status"`
	AccessExpiresAt *time.Time   `gorm:"column:access_expires_at" json:"access_expires_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// CheckAccess reports why the account may not be used at now, or nil.
func (u User) CheckAccess(now time.Time) error {
	switch u.Status {
	case StatusActive:
	case StatusPending:
		return ErrAccountPending
	case StatusSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountSuspended
	}
	if u.AccessExpiresAt != nil && now.After(*u.AccessExpiresAt) {
		return ErrAccessExpired
	}
	return nil
}

// IsPrivileged reports whether the user may see every user's invoices.
func (u User) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Principal is the authenticated caller behind a session.
type Principal struct {
	Session *Session
	User    *User
}
