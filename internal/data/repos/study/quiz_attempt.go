package study

import (
	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, a *types.QuizAttempt) error
	List(dbc dbctx.Context, email, topicKey string, limit int) ([]*types.QuizAttempt, error)
	DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) Create(dbc dbctx.Context, a *types.QuizAttempt) error {
	return dbc.Conn(r.db).Create(a).Error
}

// List returns the newest attempts first. An empty topicKey lists every topic.
func (r *quizAttemptRepo) List(dbc dbctx.Context, email, topicKey string, limit int) ([]*types.QuizAttempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := dbc.Conn(r.db).Where("user_email = ?", email)
	if topicKey != "" {
		q = q.Where("topic_key = ?", topicKey)
	}
	var out []*types.QuizAttempt
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizAttemptRepo) DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Delete(&types.QuizAttempt{})
	return res.RowsAffected, res.Error
}
