package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
)

// TemplatePreview is the would-be outcome for one due template.
type TemplatePreview struct {
	TemplateID uuid.UUID               `json:"templateId"`
	Title      string                  `json:"title"`
	Outcome    model.GenerationOutcome `json:"outcome"`
	Reason     string                  `json:"reason,omitempty"`
	Groups     int                     `json:"groups"`
	Students   int                     `json:"students"`
}

type Preview struct {
	Date          time.Time         `json:"date"`
	WouldGenerate int               `json:"wouldGenerate"`
	WouldSkip     int               `json:"wouldSkip"`
	Templates     []TemplatePreview `json:"templates"`
}

// PreviewForDate runs the matching and readiness logic for date without
// materializing anything and without writing log entries. Templates that are
// not due are omitted, mirroring the real pass.
func (s *Service) PreviewForDate(ctx context.Context, date time.Time) (Preview, error) {
	date = recurrence.DateOnly(date)
	preview := Preview{Date: date, Templates: []TemplatePreview{}}

	templates, err := s.store.Templates().ListActive(ctx)
	if err != nil {
		return preview, fmt.Errorf("listing active templates: %w", err)
	}

	for i := range templates {
		tpl := &templates[i]
		if !recurrence.Matches(tpl, date) {
			continue
		}

		entry := TemplatePreview{TemplateID: tpl.ID, Title: tpl.Title}

		assignments, err := s.store.Assignments().ActiveForTemplate(ctx, tpl.ID)
		if err != nil {
			return preview, fmt.Errorf("loading assignments for %s: %w", tpl.ID, err)
		}
		if len(assignments) == 0 {
			entry.Outcome = model.OutcomeSkipped
			entry.Reason = msgNoAudience
			preview.WouldSkip++
			preview.Templates = append(preview.Templates, entry)
			continue
		}

		seen := make(map[uuid.UUID]struct{})
		for _, assignment := range assignments {
			members, err := s.store.Groups().Members(ctx, assignment.GroupID)
			if err != nil {
				return preview, fmt.Errorf("loading members of %s: %w", assignment.GroupID, err)
			}
			for _, m := range members {
				seen[m.StudentID] = struct{}{}
			}
		}

		entry.Outcome = model.OutcomeSuccess
		entry.Groups = len(assignments)
		entry.Students = len(seen)
		preview.WouldGenerate++
		preview.Templates = append(preview.Templates, entry)
	}

	return preview, nil
}
