package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GeneratedSession is the audit record of one materialization. The composite
// unique index on (template_id, session_date) is the hard idempotency
// guarantee: two overlapping triggers for the same template and date cannot
// both insert.
type GeneratedSession struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_generated_sessions_template_date,priority:1" json:"templateId"`
	SessionDate      time.Time      `gorm:"type:date;not null;uniqueIndex:idx_generated_sessions_template_date,priority:2" json:"sessionDate"`
	SessionID        uuid.UUID      `gorm:"type:uuid;not null" json:"sessionId"`
	Title            string         `gorm:"not null;size:255" json:"title"`
	StudentsAssigned int            `gorm:"not null;default:0" json:"studentsAssigned"`
	GroupsAssigned   int            `gorm:"not null;default:0" json:"groupsAssigned"`
	GroupNames       pq.StringArray `gorm:"type:text[]" json:"groupNames"`
	SessionStatus    SessionStatus  `gorm:"not null;size:10" json:"sessionStatus"`
	GeneratedAt      time.Time      `gorm:"autoCreateTime" json:"generatedAt"`
}

func (GeneratedSession) TableName() string {
	return "generated_sessions"
}

func (g *GeneratedSession) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
