package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress is the per-user usage and achievement ledger. It is created once
// and then only incremented.
type Progress struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	UserEmail           string     `gorm:"uniqueIndex;not null;column:user_email" json:"user_email"`
	TotalTimeSpent      float64    `gorm:"not null;default:0;column:total_time_spent" json:"total_time_spent"`
	LastSessionDuration float64    `gorm:"not null;default:0;column:last_session_duration" json:"last_session_duration"`
	LastLogoutEnd       *time.Time `gorm:"column:last_logout_end" json:"last_logout_end,omitempty"`
	XP                  int        `gorm:"not null;default:0;column:xp" json:"xp"`

	// TopicProgress caches the last ComputeTopicProgress result.
	TopicProgress datatypes.JSON `gorm:"column:topic_progress" json:"topic_progress,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Progress) TableName() string { return "progress" }

func (p *Progress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TopicProgress is one roadmap's completion against its mandatory quizzes.
type TopicProgress struct {
	Topic    string `json:"topic"`
	Passed   int    `json:"passed"`
	Required int    `json:"required"`
	Percent  int    `json:"percent"`
}
