// Package generator turns due session templates into concrete, dated
// sessions. It owns the batch orchestration, the per-template failure
// isolation and the generation audit trail.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/middleware"
	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
	"github.com/lessonloop/api/internal/store"
)

const (
	defaultTemplateTimeout = 30 * time.Second

	msgNoAudience       = "no active assignment"
	msgAlreadyGenerated = "already generated"
)

type Config struct {
	// TemplateTimeout bounds one materialization so a stuck template cannot
	// stall the whole batch. Zero means the default of 30s.
	TemplateTimeout time.Duration
	// Now is the clock; tests override it.
	Now func() time.Time
}

type Service struct {
	store   store.Store
	timeout time.Duration
	now     func() time.Time
}

func New(st store.Store, cfg Config) *Service {
	if cfg.TemplateTimeout == 0 {
		cfg.TemplateTimeout = defaultTemplateTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: st, timeout: cfg.TemplateTimeout, now: cfg.Now}
}

// Report aggregates one generation pass for one date.
type Report struct {
	Date      time.Time `json:"date"`
	Generated int       `json:"generated"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
}

// GenerateForDate runs one generation pass over all active templates.
// Per-template failures are logged, counted and isolated; only a batch-level
// failure (template listing) is returned as an error.
func (s *Service) GenerateForDate(ctx context.Context, date time.Time) (Report, error) {
	date = recurrence.DateOnly(date)
	report := Report{Date: date}
	start := s.now()

	templates, err := s.store.Templates().ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("listing active templates: %w", err)
	}

	for i := range templates {
		tpl := &templates[i]
		if !recurrence.Matches(tpl, date) {
			// Not due today; not worth auditing.
			continue
		}

		assignments, err := s.store.Assignments().ActiveForTemplate(ctx, tpl.ID)
		if err != nil {
			report.Failed++
			s.logAttempt(ctx, tpl.ID, date, model.OutcomeFailed, fmt.Sprintf("loading assignments: %v", err))
			continue
		}
		if len(assignments) == 0 {
			report.Skipped++
			s.logAttempt(ctx, tpl.ID, date, model.OutcomeSkipped, msgNoAudience)
			continue
		}

		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		session, err := s.materialize(tctx, tpl, date, assignments)
		cancel()

		switch {
		case err == nil:
			report.Generated++
			s.logAttempt(ctx, tpl.ID, date, model.OutcomeSuccess,
				fmt.Sprintf("session %s with %d students", session.ID, len(session.Students)))
		case isDuplicate(err):
			// A concurrent trigger won the race; the unique index on
			// (template_id, session_date) rolled this one back.
			report.Skipped++
			s.logAttempt(ctx, tpl.ID, date, model.OutcomeSkipped, msgAlreadyGenerated)
		default:
			report.Failed++
			s.logAttempt(ctx, tpl.ID, date, model.OutcomeFailed, err.Error())
		}
	}

	middleware.RecordGenerationPass(s.now().Sub(start))
	return report, nil
}

// GenerateUpcoming runs one pass per day from today through
// today+daysAhead-1 and collects the per-day reports.
func (s *Service) GenerateUpcoming(ctx context.Context, daysAhead int) ([]Report, error) {
	today := recurrence.DateOnly(s.now())
	reports := make([]Report, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		report, err := s.GenerateForDate(ctx, today.AddDate(0, 0, i))
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// CleanupLogs deletes generation log entries strictly older than daysToKeep
// days; an entry aged exactly daysToKeep days is retained.
func (s *Service) CleanupLogs(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	return s.store.Logs().DeleteOlderThan(ctx, cutoff)
}

// logAttempt appends one audit entry. It never fails the caller: a logging
// problem must not mask or replace the generation outcome it describes.
func (s *Service) logAttempt(ctx context.Context, templateID uuid.UUID, date time.Time, outcome model.GenerationOutcome, message string) {
	entry := &model.GenerationLog{
		TemplateID: templateID,
		Date:       date,
		Outcome:    outcome,
		Message:    message,
	}
	if err := s.store.Logs().Append(ctx, entry); err != nil {
		log.Printf("[Generator] Failed to write %s log for template %s: %v", outcome, templateID, err)
	}
	middleware.RecordGenerationOutcome(string(outcome))
}

func isDuplicate(err error) bool {
	// TranslateError is enabled on the gorm connection, so unique-index
	// violations surface uniformly across drivers.
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
