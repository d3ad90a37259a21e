package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record. Accounts are hard-deleted by the unverified
// sweep, so there is no soft-delete column.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"not null;column:username" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	IsVerified   bool      `gorm:"not null;default:false;column:is_verified;index" json:"is_verified"`

	// Verification code storage when no redis is configured.
	OTP       string     `gorm:"column:otp" json:"-"`
	OTPExpiry *time.Time `gorm:"column:otp_expiry" json:"-"`

	ResetTokenID string     `gorm:"column:reset_token_id" json:"-"`
	ResetExpiry  *time.Time `gorm:"column:reset_expiry" json:"-"`

	ReminderSentAt *time.Time `gorm:"column:reminder_sent_at" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
