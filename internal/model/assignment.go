package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupAssignment links a template to a student group for generation
// purposes. A template with zero active assignments has no audience and can
// never produce a materialized session.
type GroupAssignment struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"templateId"`
	GroupID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"groupId"`
	AdvisorID         uuid.UUID  `gorm:"type:uuid;not null" json:"advisorId"`
	IsActive          bool       `gorm:"not null;default:true" json:"isActive"`
	SessionsGenerated int        `gorm:"not null;default:0" json:"sessionsGenerated"`
	LastSessionDate   *time.Time `gorm:"type:date" json:"lastSessionDate"`
	AssignedDate      time.Time  `gorm:"type:date;not null" json:"assignedDate"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (GroupAssignment) TableName() string {
	return "group_assignments"
}

func (a *GroupAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedDate.IsZero() {
		a.AssignedDate = time.Now()
	}
	return nil
}
