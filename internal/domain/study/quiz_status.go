package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizStatus holds the pass flags for one quiz slot. Subtopic is empty for
// the roadmap-level final quiz. The flags track the latest graded attempt;
// the XP markers only ever go from false to true.
type QuizStatus struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserEmail         string    `gorm:"not null;uniqueIndex:idx_quiz_status_slot,priority:1;column:user_email" json:"-"`
	Topic             string    `gorm:"not null;column:topic" json:"topic"`
	TopicKey          string    `gorm:"not null;uniqueIndex:idx_quiz_status_slot,priority:2;column:topic_key" json:"-"`
	Subtopic          string    `gorm:"not null;default:'';uniqueIndex:idx_quiz_status_slot,priority:3;column:subtopic" json:"subtopic"`
	MCQPassed         bool      `gorm:"not null;default:false;column:mcq_passed" json:"mcqPassed"`
	DescriptivePassed bool      `gorm:"not null;default:false;column:descriptive_passed" json:"descriptivePassed"`
	MCQXPAwarded      bool      `gorm:"not null;default:false;column:mcq_xp_awarded" json:"-"`
	DescXPAwarded     bool      `gorm:"not null;default:false;column:descriptive_xp_awarded" json:"-"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;index" json:"updated_at"`
}

func (QuizStatus) TableName() string { return "quiz_status" }

func (s *QuizStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsFinal reports whether the slot is the roadmap-level final quiz.
func (s QuizStatus) IsFinal() bool { return s.Subtopic == "" }

// PassedCount is the number of raised flags, 0 to 2.
func (s QuizStatus) PassedCount() int {
	n := 0
	if s.MCQPassed {
		n++
	}
	if s.DescriptivePassed {
		n++
	}
	return n
}
