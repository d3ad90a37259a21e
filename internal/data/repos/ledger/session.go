package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type SessionRepo interface {
	GetActive(dbc dbctx.Context, email string) (*types.Session, error)
	Create(dbc dbctx.Context, s *types.Session) error
	Supersede(dbc dbctx.Context, id uuid.UUID, data types.SessionData, at time.Time) (bool, error)
	Deactivate(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	ListByUser(dbc dbctx.Context, email string, limit int) ([]*types.Session, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

// GetActive returns nil, nil when the user has no active session.
func (r *sessionRepo) GetActive(dbc dbctx.Context, email string) (*types.Session, error) {
	if email == "" {
		return nil, nil
	}
	var s types.Session
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND is_active = ?", email, true).
		Order("created_at DESC").
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *types.Session) error {
	s.IsActive = true
	return dbc.Conn(r.db).Create(s).Error
}

// Supersede overwrites the login metadata of a session that is still active.
// It reports false when the session was deactivated in the meantime.
func (r *sessionRepo) Supersede(dbc dbctx.Context, id uuid.UUID, data types.SessionData, at time.Time) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.Session{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"login_time":    data.LoginTime,
			"user_agent":    data.UserAgent,
			"ip_address":    data.IPAddress,
			"last_accessed": at,
			"updated_at":    at,
		})
	return res.RowsAffected == 1, res.Error
}

// Deactivate moves an active session to its terminal state. It reports false
// when another caller already ended it.
func (r *sessionRepo) Deactivate(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.Session{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":     false,
			"ended_at":      at,
			"last_accessed": at,
			"updated_at":    at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *sessionRepo) ListByUser(dbc dbctx.Context, email string, limit int) ([]*types.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []*types.Session
	if err := dbc.Conn(r.db).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
