// Package store is the persistence boundary for the generation engine. The
// interfaces are deliberately small so the matching and materialization
// logic stays persistence-agnostic and testable against in-memory fakes.
// Lookups that find nothing return empty sets, not errors.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lessonloop/api/internal/model"
)

type TemplateStore interface {
	// ListActive returns all active templates in stable ID order.
	ListActive(ctx context.Context) ([]model.SessionTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SessionTemplate, error)
	// RecordGeneration sets last_generated and bumps total_generated.
	RecordGeneration(ctx context.Context, id uuid.UUID, date time.Time) error
}

type AssignmentStore interface {
	ActiveForTemplate(ctx context.Context, templateID uuid.UUID) ([]model.GroupAssignment, error)
	// RecordSession bumps sessions_generated and sets last_session_date.
	RecordSession(ctx context.Context, id uuid.UUID, date time.Time) error
}

type GroupStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.StudentGroup, error)
	Members(ctx context.Context, groupID uuid.UUID) ([]model.GroupMember, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *model.ClassSession) error
	AddStudents(ctx context.Context, students []model.SessionStudent) error
	ListBetween(ctx context.Context, from, to time.Time) ([]model.ClassSession, error)
}

type GeneratedStore interface {
	// Create inserts the audit record; a duplicate (template, session_date)
	// pair surfaces as gorm.ErrDuplicatedKey.
	Create(ctx context.Context, g *model.GeneratedSession) error
}

type LogStore interface {
	Append(ctx context.Context, l *model.GenerationLog) error
	ListForTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GenerationLog, error)
	ListForDate(ctx context.Context, date time.Time) ([]model.GenerationLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type JobStore interface {
	// Upsert registers a job by name, updating the spec if it changed.
	Upsert(ctx context.Context, name, spec string) error
	// RecordRun appends a run row and updates the job's last-run state.
	RecordRun(ctx context.Context, run *model.SchedulerJobRun) error
	DeleteRunsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store aggregates the repositories. InTx runs fn against a store bound to
// one transaction; the materializer uses it so a half-written fan-out is
// never visible.
type Store interface {
	Templates() TemplateStore
	Assignments() AssignmentStore
	Groups() GroupStore
	Sessions() SessionStore
	Generated() GeneratedStore
	Logs() LogStore
	Jobs() JobStore
	InTx(ctx context.Context, fn func(Store) error) error
}
