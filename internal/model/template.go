package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// MinSpacingDays is the minimum number of days that must elapse after
// last_generated before the template is due again. Monthly uses 28 so the
// cadence stays aligned to the template's weekday.
func (r RecurrenceType) MinSpacingDays() int {
	switch r {
	case RecurrenceBiweekly:
		return 14
	case RecurrenceMonthly:
		return 28
	default:
		return 7
	}
}

func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

type TemplateStatus string

const (
	TemplateActive TemplateStatus = "active"
	TemplatePaused TemplateStatus = "paused"
	TemplateEnded  TemplateStatus = "ended"
)

// SessionTemplate is a recurring rule: "Math, every Monday at 10:00, weekly".
// DayOfWeek uses Monday=0 .. Sunday=6. StartTime is a wall-clock "HH:MM".
type SessionTemplate struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"not null;size:255" json:"title"`
	TeacherID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"teacherId"`
	Subject         string         `gorm:"size:100" json:"subject"`
	Level           string         `gorm:"size:50" json:"level"`
	DayOfWeek       int            `gorm:"not null" json:"dayOfWeek"`
	StartTime       string         `gorm:"not null;size:5" json:"startTime"`
	DurationMinutes int            `gorm:"not null" json:"durationMinutes"`
	RecurrenceType  RecurrenceType `gorm:"not null;size:10" json:"recurrenceType"`
	StartDate       time.Time      `gorm:"type:date;not null" json:"startDate"`
	EndDate         *time.Time     `gorm:"type:date" json:"endDate"`
	Status          TemplateStatus `gorm:"not null;size:10;default:'active';index" json:"status"`
	LastGenerated   *time.Time     `gorm:"type:date" json:"lastGenerated"`
	TotalGenerated  int            `gorm:"not null;default:0" json:"totalGenerated"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (SessionTemplate) TableName() string {
	return "session_templates"
}

func (t *SessionTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CanTransitionTo enforces the template lifecycle: active<->paused freely,
// ended is terminal.
func (t *SessionTemplate) CanTransitionTo(next TemplateStatus) bool {
	if t.Status == TemplateEnded {
		return false
	}
	switch next {
	case TemplateActive, TemplatePaused, TemplateEnded:
		return next != t.Status
	}
	return false
}

// StartsAt combines a calendar date with the template's wall-clock start
// time. The date's own clock components are ignored.
func (t *SessionTemplate) StartsAt(date time.Time) time.Time {
	st, err := time.Parse("15:04", t.StartTime)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}
	return time.Date(date.Year(), date.Month(), date.Day(), st.Hour(), st.Minute(), 0, 0, date.Location())
}
