package ledger

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type ProgressRepo interface {
	GetByEmail(dbc dbctx.Context, email string) (*types.Progress, error)
	AddSessionDuration(dbc dbctx.Context, email string, minutes float64, endedAt time.Time) error
	AddXP(dbc dbctx.Context, email string, amount int) error
	SetTopicProgress(dbc dbctx.Context, email string, topics []types.TopicProgress) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Progress, error) {
	if email == "" {
		return nil, nil
	}
	var p types.Progress
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.UserEmail == "" {
		return nil, nil
	}
	return &p, nil
}

// AddSessionDuration inserts the progress row on first logout and otherwise
// increments total_time_spent in place.
func (r *progressRepo) AddSessionDuration(dbc dbctx.Context, email string, minutes float64, endedAt time.Time) error {
	if minutes < 0 {
		minutes = 0
	}
	row := &types.Progress{
		UserEmail:           email,
		TotalTimeSpent:      minutes,
		LastSessionDuration: minutes,
		LastLogoutEnd:       &endedAt,
	}
	return r.upsert(dbc, row, map[string]any{
		"total_time_spent":      gorm.Expr("progress.total_time_spent + ?", minutes),
		"last_session_duration": minutes,
		"last_logout_end":       endedAt,
	})
}

func (r *progressRepo) AddXP(dbc dbctx.Context, email string, amount int) error {
	if amount <= 0 {
		return nil
	}
	row := &types.Progress{UserEmail: email, XP: amount}
	return r.upsert(dbc, row, map[string]any{
		"xp": gorm.Expr("progress.xp + ?", amount),
	})
}

func (r *progressRepo) SetTopicProgress(dbc dbctx.Context, email string, topics []types.TopicProgress) error {
	if topics == nil {
		topics = []types.TopicProgress{}
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return err
	}
	row := &types.Progress{UserEmail: email, TopicProgress: datatypes.JSON(raw)}
	return r.upsert(dbc, row, map[string]any{
		"topic_progress": row.TopicProgress,
	})
}

func (r *progressRepo) upsert(dbc dbctx.Context, row *types.Progress, updates map[string]any) error {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	updates["updated_at"] = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(row).Error
}
