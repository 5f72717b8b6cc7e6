package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GenerationOutcome string

const (
	OutcomeSuccess GenerationOutcome = "success"
	OutcomeSkipped GenerationOutcome = "skipped"
	OutcomeFailed  GenerationOutcome = "failed"
)

// GenerationLog is one append-only audit entry for a per-template-per-date
// generation attempt. Rows are never edited; a retention job prunes them in
// bulk.
type GenerationLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID         `gorm:"type:uuid;not null;index" json:"templateId"`
	Date       time.Time         `gorm:"type:date;not null" json:"date"`
	Outcome    GenerationOutcome `gorm:"not null;size:10;index" json:"outcome"`
	Message    string            `gorm:"size:1000" json:"message"`
	CreatedAt  time.Time         `gorm:"index" json:"createdAt"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}

func (l *GenerationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
