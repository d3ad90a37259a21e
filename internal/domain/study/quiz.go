package study

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizType string

const (
	QuizMCQ         QuizType = "MCQ"
	QuizDescriptive QuizType = "Descriptive"
	QuizBoth        QuizType = "Both"
)

// ParseQuizType accepts the type names case-insensitively; empty means MCQ.
func ParseQuizType(s string) (QuizType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mcq":
		return QuizMCQ, true
	case "descriptive":
		return QuizDescriptive, true
	case "both":
		return QuizBoth, true
	}
	return "", false
}

const (
	ItemMCQ         = "mcq"
	ItemDescriptive = "descriptive"
)

// QuizItem is the normalized question shape. Fields not relevant to Type are
// left empty and omitted on the wire.
type QuizItem struct {
	ID          int      `json:"id"`
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	IdealAnswer string   `json:"ideal_answer,omitempty"`
}

// Quiz is the latest generated quiz per (user, topic, subtopic, type).
type Quiz struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail    string         `gorm:"not null;uniqueIndex:idx_quizzes_user_topic_type,priority:1;column:user_email" json:"-"`
	Topic        string         `gorm:"not null;column:topic" json:"topic"`
	TopicKey     string         `gorm:"not null;uniqueIndex:idx_quizzes_user_topic_type,priority:2;column:topic_key" json:"-"`
	Subtopic     string         `gorm:"not null;default:'';uniqueIndex:idx_quizzes_user_topic_type,priority:3;column:subtopic" json:"subtopic"`
	QuizType     QuizType       `gorm:"not null;uniqueIndex:idx_quizzes_user_topic_type,priority:4;column:quiz_type" json:"quiz_type"`
	NumQuestions int            `gorm:"not null;column:num_questions" json:"num_questions"`
	Questions    datatypes.JSON `gorm:"not null;column:questions" json:"questions"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (Quiz) TableName() string { return "quizzes" }

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
