package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) error
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	ListUnverifiedCreatedBefore(dbc dbctx.Context, before time.Time) ([]*types.User, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	ClearCode(dbc dbctx.Context, email, codeColumn, expiryColumn, expect string) (bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) error {
	return dbc.Conn(r.db).Create(u).Error
}

// GetByEmail returns nil, nil when no user matches.
func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	if email == "" {
		return nil, nil
	}
	var u types.User
	if err := dbc.Conn(r.db).
		Where("email = ?", email).
		Limit(1).
		Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var u types.User
	if err := dbc.Conn(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *userRepo) ListUnverifiedCreatedBefore(dbc dbctx.Context, before time.Time) ([]*types.User, error) {
	var out []*types.User
	if err := dbc.Conn(r.db).
		Where("is_verified = ? AND created_at < ?", false, before).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.Conn(r.db).
		Where("id IN ? AND is_verified = ?", ids, false).
		Delete(&types.User{})
	return res.RowsAffected, res.Error
}

// ClearCode blanks codeColumn and expiryColumn only while codeColumn still
// holds expect, so a code can be consumed once.
func (r *userRepo) ClearCode(dbc dbctx.Context, email, codeColumn, expiryColumn, expect string) (bool, error) {
	if email == "" || expect == "" {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.User{}).
		Where("email = ? AND "+codeColumn+" = ?", email, expect).
		Updates(map[string]any{
			codeColumn:   "",
			expiryColumn: nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
