package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionData is the caller-supplied login metadata. LoginTime is kept as the
// raw string the client sent; it is parsed only when the session ends.
type SessionData struct {
	LoginTime string `gorm:"column:login_time" json:"login_time"`
	UserAgent string `gorm:"column:user_agent" json:"user_agent"`
	IPAddress string `gorm:"column:ip_address" json:"ip_address"`
}

// Session is one login period. Rows move absent -> active -> inactive and are
// never deleted.
type Session struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail    string      `gorm:"not null;index:idx_sessions_user_active,priority:1;column:user_email" json:"user_email"`
	IsActive     bool        `gorm:"not null;default:true;index:idx_sessions_user_active,priority:2;column:is_active" json:"is_active"`
	SessionData  SessionData `gorm:"embedded" json:"session_data"`
	LastAccessed time.Time   `gorm:"not null;column:last_accessed" json:"last_accessed"`
	EndedAt      *time.Time  `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null" json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
