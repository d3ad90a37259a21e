package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PDFSummary is a generated summary of one or more uploaded documents.
type PDFSummary struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail   string         `gorm:"not null;uniqueIndex:idx_pdf_summary_user_name,priority:1;column:user_email" json:"-"`
	Name        string         `gorm:"not null;uniqueIndex:idx_pdf_summary_user_name,priority:2;column:name" json:"name"`
	Content     string         `gorm:"not null;type:text;column:content" json:"content,omitempty"`
	SourceFiles datatypes.JSON `gorm:"column:source_files" json:"source_files,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (PDFSummary) TableName() string { return "pdf_summary" }

func (p *PDFSummary) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
