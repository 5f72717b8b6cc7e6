package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"

	"github.com/lessonloop/api/internal/generator"
	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/store"
)

const (
	jobDailyGeneration = "daily-generation"
	jobLogCleanup      = "log-cleanup"

	jobRunTimeout = 10 * time.Minute
)

type CronConfig struct {
	GenerationSpec string
	CleanupSpec    string
	// RetentionDays bounds both generation logs and the runner's own run
	// history. Zero means 30.
	RetentionDays int
	Now           func() time.Time
}

// CronRunner is the durable driver: job registrations and every execution
// are persisted through the store, so schedule state survives process
// restarts. Each job body sits behind its own failure boundary; a bad run
// is recorded and the next scheduled run proceeds normally.
type CronRunner struct {
	cron          *cron.Cron
	generator     *generator.Service
	store         store.Store
	generationSpec string
	cleanupSpec    string
	retentionDays  int
	now            func() time.Time
}

func NewCronRunner(gen *generator.Service, st store.Store, cfg CronConfig) *CronRunner {
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CronRunner{
		cron:           cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		generator:      gen,
		store:          st,
		generationSpec: cfg.GenerationSpec,
		cleanupSpec:    cfg.CleanupSpec,
		retentionDays:  cfg.RetentionDays,
		now:            cfg.Now,
	}
}

// Start persists the job registrations and starts the cron loop.
func (r *CronRunner) Start(ctx context.Context) error {
	if err := r.store.Jobs().Upsert(ctx, jobDailyGeneration, r.generationSpec); err != nil {
		return err
	}
	if err := r.store.Jobs().Upsert(ctx, jobLogCleanup, r.cleanupSpec); err != nil {
		return err
	}

	if _, err := r.cron.AddFunc(r.generationSpec, func() {
		r.runJob(jobDailyGeneration, r.runGeneration)
	}); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(r.cleanupSpec, func() {
		r.runJob(jobLogCleanup, r.runCleanup)
	}); err != nil {
		return err
	}

	r.cron.Start()
	log.Printf("[Cron] Started: %s %q, %s %q", jobDailyGeneration, r.generationSpec, jobLogCleanup, r.cleanupSpec)
	return nil
}

// Stop stops the cron loop; the returned context is done once any running
// job has finished.
func (r *CronRunner) Stop() context.Context {
	return r.cron.Stop()
}

// runJob is the per-run failure boundary: the body's outcome, duration and
// detail payload are recorded in the job run history, and errors never
// escape to the cron loop.
func (r *CronRunner) runJob(name string, body func(ctx context.Context) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobRunTimeout)
	defer cancel()

	started := r.now()
	detail, err := body(ctx)

	run := &model.SchedulerJobRun{
		JobName:    name,
		StartedAt:  started,
		FinishedAt: r.now(),
		Succeeded:  err == nil,
	}
	if err != nil {
		run.Error = err.Error()
		log.Printf("[Cron] Job %s failed: %v", name, err)
	}
	if detail != nil {
		if data, merr := json.Marshal(detail); merr == nil {
			run.Detail = datatypes.JSON(data)
		}
	}

	if rerr := r.store.Jobs().RecordRun(ctx, run); rerr != nil {
		log.Printf("[Cron] Failed to record run of %s: %v", name, rerr)
	}
}

func (r *CronRunner) runGeneration(ctx context.Context) (interface{}, error) {
	report, err := r.generator.GenerateForDate(ctx, r.now())
	if err != nil {
		return nil, err
	}
	log.Printf("[Cron] Generation for %s: generated=%d failed=%d skipped=%d",
		report.Date.Format("2006-01-02"), report.Generated, report.Failed, report.Skipped)
	return report, nil
}

func (r *CronRunner) runCleanup(ctx context.Context) (interface{}, error) {
	deletedLogs, err := r.generator.CleanupLogs(ctx, r.retentionDays)
	if err != nil {
		return nil, err
	}

	// Prune the runner's own execution history with the same retention.
	cutoff := r.now().AddDate(0, 0, -r.retentionDays)
	deletedRuns, err := r.store.Jobs().DeleteRunsOlderThan(ctx, cutoff)
	if err != nil {
		return map[string]int64{"deletedLogs": deletedLogs}, err
	}

	log.Printf("[Cron] Cleanup: removed %d log entries, %d job runs", deletedLogs, deletedRuns)
	return map[string]int64{"deletedLogs": deletedLogs, "deletedRuns": deletedRuns}, nil
}
