package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Scores struct {
	MCQScore         int `json:"mcqScore"`
	MCQTotal         int `json:"mcqTotal"`
	DescriptiveScore int `json:"descriptiveScore"`
	DescriptiveTotal int `json:"descriptiveTotal"`
	FinalScore       int `json:"finalScore"`
	FinalTotal       int `json:"finalTotal"`
}

// Passed is true only for a perfect, non-empty score.
func (s Scores) Passed() bool {
	return s.FinalTotal > 0 && s.FinalScore == s.FinalTotal
}

// QuizAttempt is an append-only record of one submitted quiz.
type QuizAttempt struct {
	ID                uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail         string                     `gorm:"not null;index:idx_attempts_user_topic,priority:1;column:user_email" json:"-"`
	Topic             string                     `gorm:"not null;column:topic" json:"topic"`
	TopicKey          string                     `gorm:"not null;index:idx_attempts_user_topic,priority:2;column:topic_key" json:"-"`
	Subtopic          string                     `gorm:"not null;default:'';column:subtopic" json:"subtopic"`
	QuizType          QuizType                   `gorm:"not null;column:quiz_type" json:"quiz_type"`
	Practice          bool                       `gorm:"not null;default:false;column:practice" json:"practice"`
	QuestionsSnapshot datatypes.JSON             `gorm:"column:questions_snapshot" json:"questions_snapshot"`
	UserAnswers       datatypes.JSON             `gorm:"column:user_answers" json:"user_answers"`
	Scores            datatypes.JSONType[Scores] `gorm:"column:scores" json:"scores"`
	Passed            bool                       `gorm:"not null;column:passed" json:"passed"`
	CreatedAt         time.Time                  `gorm:"not null;index" json:"created_at"`
}

func (QuizAttempt) TableName() string { return "quiz_attempts" }

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
