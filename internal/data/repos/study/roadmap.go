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

type TopicCount struct {
	UserEmail string `json:"user_email"`
	Count     int64  `json:"topic_count"`
}

type RoadmapRepo interface {
	Upsert(dbc dbctx.Context, r *types.Roadmap) error
	Get(dbc dbctx.Context, email, topicKey string) (*types.Roadmap, error)
	ListByUser(dbc dbctx.Context, email string) ([]*types.Roadmap, error)
	DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error)
	CountByUser(dbc dbctx.Context, email string) (int64, error)
	CountAllUsers(dbc dbctx.Context) ([]TopicCount, error)
}

type roadmapRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapRepo {
	return &roadmapRepo{db: db, log: baseLog.With("repo", "RoadmapRepo")}
}

func (r *roadmapRepo) Upsert(dbc dbctx.Context, row *types.Roadmap) error {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "topic_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "subtopics", "updated_at"}),
		}).
		Create(row).Error
}

func (r *roadmapRepo) Get(dbc dbctx.Context, email, topicKey string) (*types.Roadmap, error) {
	var row types.Roadmap
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *roadmapRepo) ListByUser(dbc dbctx.Context, email string) ([]*types.Roadmap, error) {
	var out []*types.Roadmap
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roadmapRepo) DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Delete(&types.Roadmap{})
	return res.RowsAffected, res.Error
}

func (r *roadmapRepo) CountByUser(dbc dbctx.Context, email string) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.Roadmap{}).
		Where("user_email = ?", email).
		Count(&n).Error
	return n, err
}

func (r *roadmapRepo) CountAllUsers(dbc dbctx.Context) ([]TopicCount, error) {
	var out []TopicCount
	if err := dbc.Conn(r.db).
		Model(&types.Roadmap{}).
		Select("user_email, COUNT(*) AS count").
		Group("user_email").
		Order("count DESC, user_email ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
