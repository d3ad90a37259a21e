package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type QuizRepo interface {
	Upsert(dbc dbctx.Context, q *types.Quiz) error
	Get(dbc dbctx.Context, email, topicKey, subtopic string, quizType types.QuizType) (*types.Quiz, error)
	ListByUser(dbc dbctx.Context, email string) ([]*types.Quiz, error)
	DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) Upsert(dbc dbctx.Context, q *types.Quiz) error {
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_email"},
				{Name: "topic_key"},
				{Name: "subtopic"},
				{Name: "quiz_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "num_questions", "questions", "metadata", "updated_at"}),
		}).
		Create(q).Error
}

func (r *quizRepo) Get(dbc dbctx.Context, email, topicKey, subtopic string, quizType types.QuizType) (*types.Quiz, error) {
	var row types.Quiz
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ? AND subtopic = ? AND quiz_type = ?", email, topicKey, subtopic, quizType).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *quizRepo) ListByUser(dbc dbctx.Context, email string) ([]*types.Quiz, error) {
	var out []*types.Quiz
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizRepo) DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Delete(&types.Quiz{})
	return res.RowsAffected, res.Error
}
