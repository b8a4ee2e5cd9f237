package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// SignupRequest holds a prospective account until a superadmin reviews it.
// The password is hashed at submission and moved onto the user on approval.
type SignupRequest struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email        string        `gorm:"type:text;not null;index" json:"email"`
	FullName     string        `gorm:"type:text;not null" json:"full_name"`
	CompanyName  string        `gorm:"type:text;not null;default:''" json:"company_name"`
	Phone        string        `gorm:"type:text;not null;default:''" json:"phone"`
	PasswordHash string        `gorm:"type:text;not null" json:"-"`
	Status       string        `gorm:"type:text;not null;default:'pending';index" json:"status"`
	AccessMonths int           `gorm:"not null;default:0" json:"access_months"`
	ReviewedBy   *snowflake.ID `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty"`
	UserID       *snowflake.ID `json:"user_id,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func (SignupRequest) TableName() string { return "signup_requests" }
