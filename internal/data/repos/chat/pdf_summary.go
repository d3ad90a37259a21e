package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type PDFSummaryRepo interface {
	Upsert(dbc dbctx.Context, s *types.PDFSummary) error
	List(dbc dbctx.Context, email string, withContent bool) ([]*types.PDFSummary, error)
	GetByName(dbc dbctx.Context, email, name string) (*types.PDFSummary, error)
	DeleteByName(dbc dbctx.Context, email, name string) (bool, error)
}

type pdfSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPDFSummaryRepo(db *gorm.DB, baseLog *logger.Logger) PDFSummaryRepo {
	return &pdfSummaryRepo{db: db, log: baseLog.With("repo", "PDFSummaryRepo")}
}

func (r *pdfSummaryRepo) Upsert(dbc dbctx.Context, s *types.PDFSummary) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_email"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "source_files", "updated_at"}),
		}).
		Create(s).Error
}

func (r *pdfSummaryRepo) List(dbc dbctx.Context, email string, withContent bool) ([]*types.PDFSummary, error) {
	q := dbc.Conn(r.db).Where("user_email = ?", email)
	if !withContent {
		q = q.Omit("content")
	}
	var out []*types.PDFSummary
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pdfSummaryRepo) GetByName(dbc dbctx.Context, email, name string) (*types.PDFSummary, error) {
	var row types.PDFSummary
	if err := dbc.Conn(r.db).
		Where("user_email = ? AND name = ?", email, name).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *pdfSummaryRepo) DeleteByName(dbc dbctx.Context, email, name string) (bool, error) {
	res := dbc.Conn(r.db).
		Where("user_email = ? AND name = ?", email, name).
		Delete(&types.PDFSummary{})
	return res.RowsAffected > 0, res.Error
}
