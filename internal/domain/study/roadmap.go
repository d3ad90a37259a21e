package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roadmap is a generated curriculum outline for one topic.
type Roadmap struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail string         `gorm:"not null;uniqueIndex:idx_roadmaps_user_topic,priority:1;column:user_email" json:"-"`
	Topic     string         `gorm:"not null;column:topic" json:"topic"`
	TopicKey  string         `gorm:"not null;uniqueIndex:idx_roadmaps_user_topic,priority:2;column:topic_key" json:"-"`
	Subtopics datatypes.JSON `gorm:"not null;column:subtopics" json:"subtopics"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Roadmap) TableName() string { return "roadmaps" }

func (r *Roadmap) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Subtopic is one ordered entry of a roadmap.
type Subtopic struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
