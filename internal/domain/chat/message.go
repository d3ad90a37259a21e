package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	KindChat    = "chat"
	KindSummary = "summary"
)

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail string    `gorm:"not null;index:idx_chat_user_created,priority:1;column:user_email" json:"-"`
	Role      string    `gorm:"not null;column:role" json:"role"`
	Kind      string    `gorm:"not null;default:'chat';column:kind" json:"kind"`
	Content   string    `gorm:"not null;type:text;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_chat_user_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "chat_history" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
