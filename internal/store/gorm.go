package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lessonloop/api/internal/model"
)

// DB is the gorm-backed Store.
type DB struct {
	db *gorm.DB
}

func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Templates() TemplateStore     { return templateStore{d.db} }
func (d *DB) Assignments() AssignmentStore { return assignmentStore{d.db} }
func (d *DB) Groups() GroupStore           { return groupStore{d.db} }
func (d *DB) Sessions() SessionStore       { return sessionStore{d.db} }
func (d *DB) Generated() GeneratedStore    { return generatedStore{d.db} }
func (d *DB) Logs() LogStore               { return logStore{d.db} }
func (d *DB) Jobs() JobStore               { return jobStore{d.db} }

func (d *DB) InTx(ctx context.Context, fn func(Store) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// IsNotFound reports whether err is a gorm record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

type templateStore struct{ db *gorm.DB }

func (s templateStore) ListActive(ctx context.Context) ([]model.SessionTemplate, error) {
	var templates []model.SessionTemplate
	err := s.db.WithContext(ctx).
		Where("status = ?", model.TemplateActive).
		Order("id ASC").
		Find(&templates).Error
	return templates, err
}

func (s templateStore) Get(ctx context.Context, id uuid.UUID) (*model.SessionTemplate, error) {
	var tpl model.SessionTemplate
	if err := s.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s templateStore) RecordGeneration(ctx context.Context, id uuid.UUID, date time.Time) error {
	return s.db.WithContext(ctx).Model(&model.SessionTemplate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_generated":  date,
			"total_generated": gorm.Expr("total_generated + 1"),
		}).Error
}

type assignmentStore struct{ db *gorm.DB }

func (s assignmentStore) ActiveForTemplate(ctx context.Context, templateID uuid.UUID) ([]model.GroupAssignment, error) {
	var assignments []model.GroupAssignment
	err := s.db.WithContext(ctx).
		Where("template_id = ? AND is_active = ?", templateID, true).
		Order("id ASC").
		Find(&assignments).Error
	return assignments, err
}

func (s assignmentStore) RecordSession(ctx context.Context, id uuid.UUID, date time.Time) error {
	return s.db.WithContext(ctx).Model(&model.GroupAssignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sessions_generated": gorm.Expr("sessions_generated + 1"),
			"last_session_date":  date,
		}).Error
}

type groupStore struct{ db *gorm.DB }

func (s groupStore) Get(ctx context.Context, id uuid.UUID) (*model.StudentGroup, error) {
	var group model.StudentGroup
	if err := s.db.WithContext(ctx).Preload("Members").First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (s groupStore) Members(ctx context.Context, groupID uuid.UUID) ([]model.GroupMember, error) {
	var members []model.GroupMember
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

type sessionStore struct{ db *gorm.DB }

func (s sessionStore) Create(ctx context.Context, session *model.ClassSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s sessionStore) AddStudents(ctx context.Context, students []model.SessionStudent) error {
	if len(students) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&students).Error
}

func (s sessionStore) ListBetween(ctx context.Context, from, to time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := s.db.WithContext(ctx).
		Where("starts_at >= ? AND starts_at < ?", from, to).
		Order("starts_at ASC").
		Find(&sessions).Error
	return sessions, err
}

type generatedStore struct{ db *gorm.DB }

func (s generatedStore) Create(ctx context.Context, g *model.GeneratedSession) error {
	return s.db.WithContext(ctx).Create(g).Error
}

type logStore struct{ db *gorm.DB }

func (s logStore) Append(ctx context.Context, l *model.GenerationLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s logStore) ListForTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GenerationLog, error) {
	var logs []model.GenerationLog
	q := s.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

func (s logStore) ListForDate(ctx context.Context, date time.Time) ([]model.GenerationLog, error) {
	var logs []model.GenerationLog
	err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (s logStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.GenerationLog{})
	return result.RowsAffected, result.Error
}

type jobStore struct{ db *gorm.DB }

func (s jobStore) Upsert(ctx context.Context, name, spec string) error {
	job := model.SchedulerJob{Name: name, Spec: spec}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"spec", "updated_at"}),
	}).Create(&job).Error
}

func (s jobStore) RecordRun(ctx context.Context, run *model.SchedulerJobRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return err
	}
	outcome := "success"
	if !run.Succeeded {
		outcome = "failed"
	}
	return s.db.WithContext(ctx).Model(&model.SchedulerJob{}).
		Where("name = ?", run.JobName).
		Updates(map[string]interface{}{
			"last_run_at":  run.StartedAt,
			"last_outcome": outcome,
		}).Error
}

func (s jobStore) DeleteRunsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.SchedulerJobRun{})
	return result.RowsAffected, result.Error
}
