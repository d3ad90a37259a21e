package chat

import (
	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, msgs ...*types.ChatMessage) error
	ListRecent(dbc dbctx.Context, email string, limit int) ([]*types.ChatMessage, error)
	DeleteByUser(dbc dbctx.Context, email string) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, msgs ...*types.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Create(msgs).Error
}

// ListRecent returns up to limit messages, newest first.
func (r *messageRepo) ListRecent(dbc dbctx.Context, email string, limit int) ([]*types.ChatMessage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	var out []*types.ChatMessage
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) DeleteByUser(dbc dbctx.Context, email string) (int64, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Delete(&types.ChatMessage{})
	return res.RowsAffected, res.Error
}
