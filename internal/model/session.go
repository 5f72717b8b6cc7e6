package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// ClassSession is one concrete, dated session materialized from a template.
type ClassSession struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"templateId"`
	Title           string           `gorm:"not null;size:255" json:"title"`
	TeacherID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"teacherId"`
	Subject         string           `gorm:"size:100" json:"subject"`
	Level           string           `gorm:"size:50" json:"level"`
	StartsAt        time.Time        `gorm:"not null;index" json:"startsAt"`
	DurationMinutes int              `gorm:"not null" json:"durationMinutes"`
	Status          SessionStatus    `gorm:"not null;size:10;default:'pending'" json:"status"`
	Students        []SessionStudent `gorm:"foreignKey:SessionID" json:"students,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (ClassSession) TableName() string {
	return "class_sessions"
}

func (s *ClassSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SessionStudent is the per-student fan-out record on a materialized session.
type SessionStudent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_students_session_student,priority:1" json:"sessionId"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_session_students_session_student,priority:2" json:"studentId"`
	AdvisorID uuid.UUID `gorm:"type:uuid;not null" json:"advisorId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (SessionStudent) TableName() string {
	return "session_students"
}

func (s *SessionStudent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
