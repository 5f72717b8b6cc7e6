package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/store"
)

// materialize creates one concrete session for tpl on date plus all fan-out
// records, inside a single transaction. If any step fails nothing is
// visible to subsequent reads. The GeneratedSession insert carries the
// (template_id, session_date) unique index, so a concurrent duplicate
// trigger rolls the whole unit back with a duplicated-key error.
func (s *Service) materialize(ctx context.Context, tpl *model.SessionTemplate, date time.Time, assignments []model.GroupAssignment) (*model.ClassSession, error) {
	var created *model.ClassSession

	err := s.store.InTx(ctx, func(tx store.Store) error {
		session := &model.ClassSession{
			TemplateID:      tpl.ID,
			Title:           tpl.Title,
			TeacherID:       tpl.TeacherID,
			Subject:         tpl.Subject,
			Level:           tpl.Level,
			StartsAt:        tpl.StartsAt(date),
			DurationMinutes: tpl.DurationMinutes,
			Status:          model.SessionPending,
		}
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return fmt.Errorf("creating session: %w", err)
		}

		seen := make(map[uuid.UUID]struct{})
		var students []model.SessionStudent
		groupNames := make([]string, 0, len(assignments))

		for _, assignment := range assignments {
			group, err := tx.Groups().Get(ctx, assignment.GroupID)
			if err != nil {
				return fmt.Errorf("loading group %s: %w", assignment.GroupID, err)
			}
			groupNames = append(groupNames, group.Name)

			for _, member := range group.Members {
				// The same student may sit in several assigned groups;
				// fan out once per student.
				if _, dup := seen[member.StudentID]; dup {
					continue
				}
				seen[member.StudentID] = struct{}{}
				students = append(students, model.SessionStudent{
					SessionID: session.ID,
					StudentID: member.StudentID,
					AdvisorID: assignment.AdvisorID,
				})
			}

			if err := tx.Assignments().RecordSession(ctx, assignment.ID, date); err != nil {
				return fmt.Errorf("updating assignment %s: %w", assignment.ID, err)
			}
		}

		if err := tx.Sessions().AddStudents(ctx, students); err != nil {
			return fmt.Errorf("assigning students: %w", err)
		}
		if err := tx.Templates().RecordGeneration(ctx, tpl.ID, date); err != nil {
			return fmt.Errorf("updating template: %w", err)
		}

		generated := &model.GeneratedSession{
			TemplateID:       tpl.ID,
			SessionDate:      date,
			SessionID:        session.ID,
			Title:            tpl.Title,
			StudentsAssigned: len(students),
			GroupsAssigned:   len(assignments),
			GroupNames:       groupNames,
			SessionStatus:    session.Status,
		}
		if err := tx.Generated().Create(ctx, generated); err != nil {
			return err
		}

		session.Students = students
		created = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
