package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SchedulerJob is the persisted registration of one cron-driven job, so the
// durable driver's schedule state survives process restarts.
type SchedulerJob struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"not null;size:100;uniqueIndex" json:"name"`
	Spec        string     `gorm:"not null;size:100" json:"spec"`
	LastRunAt   *time.Time `json:"lastRunAt"`
	LastOutcome string     `gorm:"size:10" json:"lastOutcome"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (SchedulerJob) TableName() string {
	return "scheduler_jobs"
}

func (j *SchedulerJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// SchedulerJobRun records one execution of a scheduled job. Detail carries
// the run's report payload as JSON. Old runs are pruned by the cleanup job.
type SchedulerJobRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobName    string         `gorm:"not null;size:100;index" json:"jobName"`
	StartedAt  time.Time      `gorm:"not null" json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Succeeded  bool           `gorm:"not null" json:"succeeded"`
	Error      string         `gorm:"size:1000" json:"error"`
	Detail     datatypes.JSON `json:"detail"`
}

func (SchedulerJobRun) TableName() string {
	return "scheduler_job_runs"
}

func (r *SchedulerJobRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
