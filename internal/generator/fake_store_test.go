package generator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
	"github.com/lessonloop/api/internal/store"
)

// fakeStore is an in-memory store.Store. InTx snapshots the state up front
// and restores it when fn fails, mirroring a transaction rollback.
type fakeStore struct {
	mu sync.Mutex

	templates   map[uuid.UUID]model.SessionTemplate
	order       []uuid.UUID
	assignments []model.GroupAssignment
	groups      map[uuid.UUID]model.StudentGroup
	sessions    []model.ClassSession
	students    []model.SessionStudent
	generated   map[string]model.GeneratedSession
	logs        []model.GenerationLog
	jobs        map[string]model.SchedulerJob
	jobRuns     []model.SchedulerJobRun

	failSessionCreate map[uuid.UUID]error // keyed by template ID
	failListActive    error
	failLogAppend     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates:         make(map[uuid.UUID]model.SessionTemplate),
		groups:            make(map[uuid.UUID]model.StudentGroup),
		generated:         make(map[string]model.GeneratedSession),
		jobs:              make(map[string]model.SchedulerJob),
		failSessionCreate: make(map[uuid.UUID]error),
	}
}

func generatedKey(templateID uuid.UUID, date time.Time) string {
	return templateID.String() + "|" + recurrence.DateOnly(date).Format("2006-01-02")
}

func (f *fakeStore) addTemplate(tpl model.SessionTemplate) {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	f.templates[tpl.ID] = tpl
	f.order = append(f.order, tpl.ID)
}

func (f *fakeStore) addGroup(group model.StudentGroup) {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	f.groups[group.ID] = group
}

func (f *fakeStore) assign(templateID, groupID uuid.UUID) uuid.UUID {
	assignment := model.GroupAssignment{
		ID:         uuid.New(),
		TemplateID: templateID,
		GroupID:    groupID,
		AdvisorID:  uuid.New(),
		IsActive:   true,
	}
	f.assignments = append(f.assignments, assignment)
	return assignment.ID
}

func (f *fakeStore) snapshot() *fakeStore {
	clone := newFakeStore()
	for k, v := range f.templates {
		clone.templates[k] = v
	}
	clone.order = append([]uuid.UUID(nil), f.order...)
	clone.assignments = append([]model.GroupAssignment(nil), f.assignments...)
	for k, v := range f.groups {
		clone.groups[k] = v
	}
	clone.sessions = append([]model.ClassSession(nil), f.sessions...)
	clone.students = append([]model.SessionStudent(nil), f.students...)
	for k, v := range f.generated {
		clone.generated[k] = v
	}
	clone.logs = append([]model.GenerationLog(nil), f.logs...)
	for k, v := range f.jobs {
		clone.jobs[k] = v
	}
	clone.jobRuns = append([]model.SchedulerJobRun(nil), f.jobRuns...)
	return clone
}

func (f *fakeStore) restore(snap *fakeStore) {
	f.templates = snap.templates
	f.order = snap.order
	f.assignments = snap.assignments
	f.groups = snap.groups
	f.sessions = snap.sessions
	f.students = snap.students
	f.generated = snap.generated
	f.logs = snap.logs
	f.jobs = snap.jobs
	f.jobRuns = snap.jobRuns
}

func (f *fakeStore) Templates() store.TemplateStore     { return f }
func (f *fakeStore) Assignments() store.AssignmentStore { return f }
func (f *fakeStore) Groups() store.GroupStore           { return fakeGroups{f} }
func (f *fakeStore) Sessions() store.SessionStore       { return f }
func (f *fakeStore) Generated() store.GeneratedStore    { return fakeGenerated{f} }
func (f *fakeStore) Logs() store.LogStore               { return f }
func (f *fakeStore) Jobs() store.JobStore               { return f }

// Wrapper types keep the colliding Get/Create method sets apart.
type fakeGroups struct{ f *fakeStore }

func (g fakeGroups) Get(ctx context.Context, id uuid.UUID) (*model.StudentGroup, error) {
	return g.f.getGroup(id)
}

func (g fakeGroups) Members(ctx context.Context, groupID uuid.UUID) ([]model.GroupMember, error) {
	group, err := g.f.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}

type fakeGenerated struct{ f *fakeStore }

func (g fakeGenerated) Create(ctx context.Context, gen *model.GeneratedSession) error {
	return g.f.createGenerated(gen)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	f.mu.Lock()
	snap := f.snapshot()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.restore(snap)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) ListActive(ctx context.Context) ([]model.SessionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failListActive != nil {
		return nil, f.failListActive
	}
	var active []model.SessionTemplate
	for _, id := range f.order {
		if tpl := f.templates[id]; tpl.Status == model.TemplateActive {
			active = append(active, tpl)
		}
	}
	return active, nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*model.SessionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tpl, nil
}

func (f *fakeStore) RecordGeneration(ctx context.Context, id uuid.UUID, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d := recurrence.DateOnly(date)
	tpl.LastGenerated = &d
	tpl.TotalGenerated++
	f.templates[id] = tpl
	return nil
}

func (f *fakeStore) ActiveForTemplate(ctx context.Context, templateID uuid.UUID) ([]model.GroupAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []model.GroupAssignment
	for _, a := range f.assignments {
		if a.TemplateID == templateID && a.IsActive {
			active = append(active, a)
		}
	}
	return active, nil
}

func (f *fakeStore) RecordSession(ctx context.Context, id uuid.UUID, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.assignments {
		if a.ID == id {
			d := recurrence.DateOnly(date)
			f.assignments[i].SessionsGenerated++
			f.assignments[i].LastSessionDate = &d
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeStore) getGroup(id uuid.UUID) (*model.StudentGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &group, nil
}

func (f *fakeStore) Create(ctx context.Context, session *model.ClassSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSessionCreate[session.TemplateID]; err != nil {
		return err
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeStore) AddStudents(ctx context.Context, students []model.SessionStudent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students = append(f.students, students...)
	return nil
}

func (f *fakeStore) ListBetween(ctx context.Context, from, to time.Time) ([]model.ClassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ClassSession
	for _, s := range f.sessions {
		if !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) createGenerated(g *model.GeneratedSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := generatedKey(g.TemplateID, g.SessionDate)
	if _, exists := f.generated[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	f.generated[key] = *g
	return nil
}

func (f *fakeStore) Append(ctx context.Context, l *model.GenerationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLogAppend != nil {
		return f.failLogAppend
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeStore) ListForTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GenerationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.GenerationLog
	for _, l := range f.logs {
		if l.TemplateID == templateID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForDate(ctx context.Context, date time.Time) ([]model.GenerationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := recurrence.DateOnly(date)
	var out []model.GenerationLog
	for _, l := range f.logs {
		if recurrence.DateOnly(l.Date).Equal(d) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.GenerationLog
	var deleted int64
	for _, l := range f.logs {
		if l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	f.logs = kept
	return deleted, nil
}

func (f *fakeStore) Upsert(ctx context.Context, name, spec string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[name]
	job.Name = name
	job.Spec = spec
	f.jobs[name] = job
	return nil
}

func (f *fakeStore) RecordRun(ctx context.Context, run *model.SchedulerJobRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	f.jobRuns = append(f.jobRuns, *run)
	job := f.jobs[run.JobName]
	job.Name = run.JobName
	job.LastRunAt = &run.StartedAt
	if run.Succeeded {
		job.LastOutcome = "success"
	} else {
		job.LastOutcome = "failed"
	}
	f.jobs[run.JobName] = job
	return nil
}

func (f *fakeStore) DeleteRunsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.SchedulerJobRun
	var deleted int64
	for _, r := range f.jobRuns {
		if r.StartedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.jobRuns = kept
	return deleted, nil
}

var errStoreDown = errors.New("store unavailable")
