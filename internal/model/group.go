package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentGroup is a named, advisor-owned roster of students.
type StudentGroup struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string        `gorm:"not null;size:255" json:"name"`
	AdvisorID uuid.UUID     `gorm:"type:uuid;not null;index" json:"advisorId"`
	IsActive  bool          `gorm:"not null;default:true" json:"isActive"`
	Members   []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (StudentGroup) TableName() string {
	return "student_groups"
}

func (g *StudentGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type GroupMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_student,priority:1" json:"groupId"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_student,priority:2" json:"studentId"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}
