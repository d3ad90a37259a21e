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

type NoteRepo interface {
	Upsert(dbc dbctx.Context, n *types.Note) error
	Get(dbc dbctx.Context, email, topicKey string, noteType types.NoteType) (*types.Note, error)
	ListByTopic(dbc dbctx.Context, email, topicKey string) ([]*types.Note, error)
	ListByUser(dbc dbctx.Context, email string) ([]*types.Note, error)
	DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error)
}

type noteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
	return &noteRepo{db: db, log: baseLog.With("repo", "NoteRepo")}
}

func (r *noteRepo) Upsert(dbc dbctx.Context, n *types.Note) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "topic_key"}, {Name: "note_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "content", "updated_at"}),
		}).
		Create(n).Error
}

func (r *noteRepo) Get(dbc dbctx.Context, email, topicKey string, noteType types.NoteType) (*types.Note, error) {
	var row types.Note
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ? AND note_type = ?", email, topicKey, noteType).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *noteRepo) ListByTopic(dbc dbctx.Context, email, topicKey string) ([]*types.Note, error) {
	var out []*types.Note
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *noteRepo) ListByUser(dbc dbctx.Context, email string) ([]*types.Note, error) {
	var out []*types.Note
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *noteRepo) DeleteByTopic(dbc dbctx.Context, email, topicKey string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND topic_key = ?", email, topicKey).
		Delete(&types.Note{})
	return res.RowsAffected, res.Error
}
