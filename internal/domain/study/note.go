package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NoteType string

const (
	NoteDetails    NoteType = "details"
	NoteSubDetails NoteType = "sub_details"
	NoteQuiz       NoteType = "quiz"
	NoteSummary    NoteType = "summary"
)

func (t NoteType) Valid() bool {
	switch t {
	case NoteDetails, NoteSubDetails, NoteQuiz, NoteSummary:
		return true
	}
	return false
}

// Note stores generated study material, one row per (user, topic, type).
// Content is JSON: a section array for details, {"html": ...} for sub_details.
type Note struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail string         `gorm:"not null;uniqueIndex:idx_notes_user_topic_type,priority:1;column:user_email" json:"-"`
	Topic     string         `gorm:"not null;column:topic" json:"topic"`
	TopicKey  string         `gorm:"not null;uniqueIndex:idx_notes_user_topic_type,priority:2;column:topic_key" json:"-"`
	NoteType  NoteType       `gorm:"not null;uniqueIndex:idx_notes_user_topic_type,priority:3;column:note_type" json:"note_type"`
	Content   datatypes.JSON `gorm:"not null;column:content" json:"content"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (Note) TableName() string { return "notes" }

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DetailSection is one block of a details note.
type DetailSection struct {
	SectionTitle string       `json:"section_title"`
	SectionItems []DetailItem `json:"section_items"`
}

type DetailItem struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}
