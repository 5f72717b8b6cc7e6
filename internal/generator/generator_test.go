package generator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/api/internal/model"
)

// 2025-01-06 is a Monday; all tests run with the clock pinned to it.
var (
	thisMonday = time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)
	lastMonday = time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return thisMonday }

func newTestService(f *fakeStore) *Service {
	return New(f, Config{Now: fixedClock})
}

// mondayTemplate is WEEKLY on Monday, started 60 days ago.
func mondayTemplate() model.SessionTemplate {
	return model.SessionTemplate{
		ID:              uuid.New(),
		Title:           "Math",
		TeacherID:       uuid.New(),
		Subject:         "Math",
		Level:           "L1",
		DayOfWeek:       0,
		StartTime:       "10:00",
		DurationMinutes: 60,
		RecurrenceType:  model.RecurrenceWeekly,
		StartDate:       thisMonday.AddDate(0, 0, -60),
		Status:          model.TemplateActive,
	}
}

func groupOf(students int) model.StudentGroup {
	group := model.StudentGroup{ID: uuid.New(), Name: "Group A", AdvisorID: uuid.New(), IsActive: true}
	for i := 0; i < students; i++ {
		group.Members = append(group.Members, model.GroupMember{
			ID: uuid.New(), GroupID: group.ID, StudentID: uuid.New(),
		})
	}
	return group
}

func TestGenerateForDate(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	tpl.LastGenerated = &lastMonday
	tpl.TotalGenerated = 4
	f.addTemplate(tpl)
	group := groupOf(3)
	f.addGroup(group)
	assignmentID := f.assign(tpl.ID, group.ID)

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Skipped)

	// One concrete session at the template's wall-clock start time.
	require.Len(t, f.sessions, 1)
	session := f.sessions[0]
	assert.Equal(t, "Math", session.Title)
	assert.Equal(t, model.SessionPending, session.Status)
	assert.Equal(t, 10, session.StartsAt.Hour())
	assert.Equal(t, thisMonday.Day(), session.StartsAt.Day())

	// Fan-out: one record per group member.
	assert.Len(t, f.students, 3)

	// Template counters moved.
	updated := f.templates[tpl.ID]
	require.NotNil(t, updated.LastGenerated)
	assert.True(t, updated.LastGenerated.Equal(time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, updated.TotalGenerated)

	// Assignment counters moved.
	var assignment model.GroupAssignment
	for _, a := range f.assignments {
		if a.ID == assignmentID {
			assignment = a
		}
	}
	assert.Equal(t, 1, assignment.SessionsGenerated)
	require.NotNil(t, assignment.LastSessionDate)

	// Audit trail: one SUCCESS entry, one GeneratedSession with counts.
	require.Len(t, f.logs, 1)
	assert.Equal(t, model.OutcomeSuccess, f.logs[0].Outcome)
	require.Len(t, f.generated, 1)
	for _, g := range f.generated {
		assert.Equal(t, 3, g.StudentsAssigned)
		assert.Equal(t, 1, g.GroupsAssigned)
	}
}

func TestGenerateForDateIdempotent(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	tpl.LastGenerated = &lastMonday
	f.addTemplate(tpl)
	group := groupOf(2)
	f.addGroup(group)
	f.assign(tpl.ID, group.ID)

	svc := newTestService(f)

	first, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, Report{Date: first.Date, Generated: 1}, first)

	// Same date again: the spacing check sees last_generated == date, so
	// the template is simply not due. No new session, no new log entry.
	second, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, Report{Date: second.Date}, second)

	assert.Len(t, f.sessions, 1)
	assert.Len(t, f.logs, 1)
	assert.Equal(t, 1, f.templates[tpl.ID].TotalGenerated)
}

func TestGenerateForDateConcurrentDuplicate(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate() // last_generated nil: looks due
	f.addTemplate(tpl)
	group := groupOf(2)
	f.addGroup(group)
	f.assign(tpl.ID, group.ID)

	// A concurrent trigger already materialized this (template, date).
	f.generated[generatedKey(tpl.ID, thisMonday)] = model.GeneratedSession{TemplateID: tpl.ID}

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)

	// The unique-key collision rolled the whole unit back.
	assert.Empty(t, f.sessions)
	assert.Equal(t, 0, f.templates[tpl.ID].TotalGenerated)
	require.Len(t, f.logs, 1)
	assert.Equal(t, model.OutcomeSkipped, f.logs[0].Outcome)
	assert.Equal(t, "already generated", f.logs[0].Message)
}

func TestGenerateForDateNoAudience(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	f.addTemplate(tpl)
	// No assignment rows at all.

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	assert.Equal(t, 0, f.templates[tpl.ID].TotalGenerated)
	require.Len(t, f.logs, 1)
	assert.Equal(t, model.OutcomeSkipped, f.logs[0].Outcome)
	assert.Equal(t, "no active assignment", f.logs[0].Message)
}

func TestGenerateForDateFailureIsolation(t *testing.T) {
	f := newFakeStore()
	group := groupOf(2)
	f.addGroup(group)

	var templates []model.SessionTemplate
	for i := 0; i < 3; i++ {
		tpl := mondayTemplate()
		f.addTemplate(tpl)
		f.assign(tpl.ID, group.ID)
		templates = append(templates, tpl)
	}
	// Materializing the 2nd template blows up.
	f.failSessionCreate[templates[1].ID] = errStoreDown

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)

	// The 1st and 3rd templates were updated normally.
	assert.Equal(t, 1, f.templates[templates[0].ID].TotalGenerated)
	assert.Equal(t, 0, f.templates[templates[1].ID].TotalGenerated)
	assert.Equal(t, 1, f.templates[templates[2].ID].TotalGenerated)
	assert.Len(t, f.sessions, 2)

	var outcomes []model.GenerationOutcome
	for _, l := range f.logs {
		outcomes = append(outcomes, l.Outcome)
	}
	assert.ElementsMatch(t, []model.GenerationOutcome{
		model.OutcomeSuccess, model.OutcomeFailed, model.OutcomeSuccess,
	}, outcomes)
}

func TestGenerateForDateDistinctStudentsAcrossGroups(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	f.addTemplate(tpl)

	shared := uuid.New()
	groupA := groupOf(1)
	groupA.Members = append(groupA.Members, model.GroupMember{ID: uuid.New(), GroupID: groupA.ID, StudentID: shared})
	groupB := groupOf(1)
	groupB.Members = append(groupB.Members, model.GroupMember{ID: uuid.New(), GroupID: groupB.ID, StudentID: shared})
	f.addGroup(groupA)
	f.addGroup(groupB)
	f.assign(tpl.ID, groupA.ID)
	f.assign(tpl.ID, groupB.ID)

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)

	// 2 unique students + 1 shared = 3 fan-out records, not 4.
	assert.Len(t, f.students, 3)
	for _, g := range f.generated {
		assert.Equal(t, 3, g.StudentsAssigned)
		assert.Equal(t, 2, g.GroupsAssigned)
	}
}

func TestGenerateForDateBatchLevelFailure(t *testing.T) {
	f := newFakeStore()
	f.failListActive = errStoreDown

	svc := newTestService(f)

	_, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestLoggingFailureDoesNotMaskOutcome(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	f.addTemplate(tpl)
	group := groupOf(1)
	f.addGroup(group)
	f.assign(tpl.ID, group.ID)
	f.failLogAppend = errStoreDown

	svc := newTestService(f)

	report, err := svc.GenerateForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Len(t, f.sessions, 1)
}

func TestGenerateUpcoming(t *testing.T) {
	f := newFakeStore()
	tpl := mondayTemplate()
	tpl.LastGenerated = &lastMonday
	f.addTemplate(tpl)
	group := groupOf(2)
	f.addGroup(group)
	f.assign(tpl.ID, group.ID)

	svc := newTestService(f)

	reports, err := svc.GenerateUpcoming(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reports, 7)

	// One report per calendar date from today through today+6.
	for i, report := range reports {
		want := time.Date(2025, time.January, 6+i, 0, 0, 0, 0, time.UTC)
		assert.True(t, report.Date.Equal(want), "report %d date %v", i, report.Date)
	}

	// The weekly Monday template fires exactly once within the window.
	var generated int
	for _, report := range reports {
		generated += report.Generated
	}
	assert.Equal(t, 1, generated)
	assert.Equal(t, 1, f.templates[tpl.ID].TotalGenerated)
}

func TestCleanupLogsRetentionBoundary(t *testing.T) {
	f := newFakeStore()
	tplID := uuid.New()
	add := func(age time.Duration) {
		f.logs = append(f.logs, model.GenerationLog{
			ID:         uuid.New(),
			TemplateID: tplID,
			Outcome:    model.OutcomeSuccess,
			CreatedAt:  thisMonday.Add(-age),
		})
	}
	add(31 * 24 * time.Hour)     // outside the window
	add(30*24*time.Hour + time.Hour) // just outside
	add(30 * 24 * time.Hour)     // exactly 30 days: retained
	add(24 * time.Hour)          // fresh

	svc := newTestService(f)

	deleted, err := svc.CleanupLogs(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, f.logs, 2)
}

func TestPreviewForDate(t *testing.T) {
	f := newFakeStore()

	due := mondayTemplate()
	f.addTemplate(due)
	group := groupOf(4)
	f.addGroup(group)
	f.assign(due.ID, group.ID)

	noAudience := mondayTemplate()
	noAudience.Title = "Physics"
	f.addTemplate(noAudience)

	notDue := mondayTemplate()
	notDue.DayOfWeek = 3
	f.addTemplate(notDue)

	svc := newTestService(f)

	preview, err := svc.PreviewForDate(context.Background(), thisMonday)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.WouldGenerate)
	assert.Equal(t, 1, preview.WouldSkip)
	require.Len(t, preview.Templates, 2)

	byTitle := map[string]TemplatePreview{}
	for _, entry := range preview.Templates {
		byTitle[entry.Title] = entry
	}
	assert.Equal(t, model.OutcomeSuccess, byTitle["Math"].Outcome)
	assert.Equal(t, 4, byTitle["Math"].Students)
	assert.Equal(t, model.OutcomeSkipped, byTitle["Physics"].Outcome)
	assert.Equal(t, "no active assignment", byTitle["Physics"].Reason)

	// Dry run: nothing persisted.
	assert.Empty(t, f.sessions)
	assert.Empty(t, f.logs)
	assert.Equal(t, 0, f.templates[due.ID].TotalGenerated)
}
