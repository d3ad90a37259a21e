package study

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// QuizSlot identifies one quiz_status row. Subtopic is empty for the final.
type QuizSlot struct {
	UserEmail string
	Topic     string
	TopicKey  string
	Subtopic  string
}

const (
	FlagMCQ         = "mcq_passed"
	FlagDescriptive = "descriptive_passed"
)

type QuizStatusRepo interface {
	Touch(dbc dbctx.Context, slot QuizSlot) error
	SetFlag(dbc dbctx.Context, slot QuizSlot, flag string, passed bool) (bool, error)
	ClaimXP(dbc dbctx.Context, slot QuizSlot, flag string) (bool, error)
	List(dbc dbctx.Context, email, topicKey string) ([]*types.QuizStatus, error)
	DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error)
}

type quizStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizStatusRepo(db *gorm.DB, baseLog *logger.Logger) QuizStatusRepo {
	return &quizStatusRepo{db: db, log: baseLog.With("repo", "QuizStatusRepo")}
}

// Touch creates the slot if missing and bumps updated_at otherwise.
func (r *quizStatusRepo) Touch(dbc dbctx.Context, slot QuizSlot) error {
	now := time.Now().UTC()
	row := &types.QuizStatus{
		UserEmail: slot.UserEmail,
		Topic:     slot.Topic,
		TopicKey:  slot.TopicKey,
		Subtopic:  slot.Subtopic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "topic_key"}, {Name: "subtopic"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
		}).
		Create(row).Error
}

// xpMarker maps a pass flag to the column recording that its XP was paid.
func xpMarker(flag string) (string, error) {
	switch flag {
	case FlagMCQ:
		return "mcq_xp_awarded", nil
	case FlagDescriptive:
		return "descriptive_xp_awarded", nil
	default:
		return "", fmt.Errorf("unknown quiz status flag %q", flag)
	}
}

// SetFlag stores the latest graded result in flag and reports whether the
// stored value changed.
func (r *quizStatusRepo) SetFlag(dbc dbctx.Context, slot QuizSlot, flag string, passed bool) (bool, error) {
	if _, err := xpMarker(flag); err != nil {
		return false, err
	}
	if err := r.Touch(dbc, slot); err != nil {
		return false, err
	}
	res := dbc.Conn(r.db).
		Model(&types.QuizStatus{}).
		Where("user_email = ? AND topic_key = ? AND subtopic = ?", slot.UserEmail, slot.TopicKey, slot.Subtopic).
		Where(flag+" = ?", !passed).
		Updates(map[string]any{
			flag:         passed,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// ClaimXP marks the XP for flag as paid. Only the first call per slot and
// flag returns true, however often the flag itself goes down and up again.
func (r *quizStatusRepo) ClaimXP(dbc dbctx.Context, slot QuizSlot, flag string) (bool, error) {
	marker, err := xpMarker(flag)
	if err != nil {
		return false, err
	}
	res := dbc.Conn(r.db).
		Model(&types.QuizStatus{}).
		Where("user_email = ? AND topic_key = ? AND subtopic = ?", slot.UserEmail, slot.TopicKey, slot.Subtopic).
		Where(marker+" = ?", false).
		Update(marker, true)
	return res.RowsAffected == 1, res.Error
}

// List returns the user's slots, newest first. An empty topicKey lists all.
func (r *quizStatusRepo) List(dbc dbctx.Context, email, topicKey string) ([]*types.QuizStatus, error) {
	q := dbc.Conn(r.db).Where("user_email = ?", email)
	if topicKey != "" {
		q = q.Where("topic_key = ?", topicKey)
	}
	var out []*types.QuizStatus
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizStatusRepo) DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Delete(&types.QuizStatus{})
	return res.RowsAffected, res.Error
}
