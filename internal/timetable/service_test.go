package timetable

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// memStore mirrors the Postgres repository's transactional semantics in
// memory, including the conditional pair garbage collection.
type memStore struct {
	entries  map[string]model.TimetableEntry
	pairs    map[string]bool
	subjects map[string]model.Subject
	faculty  map[string]model.FacultyProfile
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		entries:  map[string]model.TimetableEntry{},
		pairs:    map[string]bool{},
		subjects: map[string]model.Subject{},
		faculty:  map[string]model.FacultyProfile{},
	}
}

func pairKey(facultyID, subjectID string) string { return facultyID + "|" + subjectID }

func (m *memStore) Entry(_ context.Context, id string) (*model.TimetableEntry, error) {
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memStore) SlotTaken(_ context.Context, e model.TimetableEntry, excludeID string) (bool, error) {
	for _, cur := range m.entries {
		if cur.ID == excludeID {
			continue
		}
		if cur.DayOfWeek == e.DayOfWeek && cur.Period == e.Period &&
			cur.DepartmentID == e.DepartmentID && cur.SemesterID == e.SemesterID &&
			cur.AcademicYearID == e.AcademicYearID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Subject(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memStore) Faculty(_ context.Context, id string) (*model.FacultyProfile, error) {
	if f, ok := m.faculty[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *memStore) ListByScope(_ context.Context, departmentID, semesterID string) ([]model.TimetableEntry, error) {
	var out []model.TimetableEntry
	for _, e := range m.entries {
		if e.DepartmentID == departmentID && e.SemesterID == semesterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) CreateEntry(_ context.Context, e model.TimetableEntry) (model.TimetableEntry, error) {
	if e.ID == "" {
		m.nextID++
		e.ID = fmt.Sprintf("tt-%d", m.nextID)
	}
	m.entries[e.ID] = e
	m.pairs[pairKey(e.FacultyID, e.SubjectID)] = true
	return e, nil
}

func (m *memStore) UpdateEntry(_ context.Context, e model.TimetableEntry, gcPair *model.FacultySubject) error {
	m.entries[e.ID] = e
	m.pairs[pairKey(e.FacultyID, e.SubjectID)] = true
	if gcPair != nil {
		m.gc(*gcPair)
	}
	return nil
}

func (m *memStore) DeleteEntry(_ context.Context, id string, gcPair model.FacultySubject) error {
	delete(m.entries, id)
	m.gc(gcPair)
	return nil
}

func (m *memStore) gc(pair model.FacultySubject) {
	for _, e := range m.entries {
		if e.FacultyID == pair.FacultyID && e.SubjectID == pair.SubjectID {
			return
		}
	}
	delete(m.pairs, pairKey(pair.FacultyID, pair.SubjectID))
}

func seededStore() *memStore {
	m := newMemStore()
	m.subjects["subj-x"] = model.Subject{ID: "subj-x", Code: "CS301", Name: "Algorithms", DepartmentID: "dept-a", SemesterID: "sem-3"}
	m.subjects["subj-z"] = model.Subject{ID: "subj-z", Code: "CS302", Name: "Networks", DepartmentID: "dept-a", SemesterID: "sem-3"}
	m.subjects["subj-other"] = model.Subject{ID: "subj-other", Code: "ME101", Name: "Statics", DepartmentID: "dept-b", SemesterID: "sem-1"}
	m.faculty["fac-y"] = model.FacultyProfile{ID: "fac-y", UserID: "user-y", DepartmentID: "dept-a"}
	m.faculty["fac-w"] = model.FacultyProfile{ID: "fac-w", UserID: "user-w", DepartmentID: "dept-a"}
	m.faculty["fac-b"] = model.FacultyProfile{ID: "fac-b", UserID: "user-b", DepartmentID: "dept-b"}
	return m
}

func entry(day, period int, subjectID, facultyID string) model.TimetableEntry {
	return model.TimetableEntry{
		DayOfWeek:      day,
		Period:         period,
		SubjectID:      subjectID,
		FacultyID:      facultyID,
		Room:           "A-101",
		DepartmentID:   "dept-a",
		SemesterID:     "sem-3",
		AcademicYearID: "ay-2024",
	}
}

func TestCreateDerivesGrant(t *testing.T) {
	m := seededStore()
	svc := NewService(m, nil)

	created, err := svc.Create(context.Background(), entry(1, 2, "subj-x", "fac-y"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, m.pairs[pairKey("fac-y", "subj-x")])
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		entry    model.TimetableEntry
		wantCode apperr.Code
	}{
		{name: "day out of range", entry: entry(7, 1, "subj-x", "fac-y"), wantCode: apperr.CodeValidation},
		{name: "period out of range", entry: entry(1, 6, "subj-x", "fac-y"), wantCode: apperr.CodeValidation},
		{name: "unknown subject", entry: entry(1, 1, "subj-miss", "fac-y"), wantCode: apperr.CodeNotFound},
		{name: "subject from other scope", entry: entry(1, 1, "subj-other", "fac-y"), wantCode: apperr.CodeNotFound},
		{name: "unknown faculty", entry: entry(1, 1, "subj-x", "fac-miss"), wantCode: apperr.CodeNotFound},
		{name: "faculty from other department", entry: entry(1, 1, "subj-x", "fac-b"), wantCode: apperr.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seededStore()
			svc := NewService(m, nil)
			_, err := svc.Create(context.Background(), tt.entry)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
			assert.Empty(t, m.entries)
		})
	}
}

func TestCreateSlotConflict(t *testing.T) {
	m := seededStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, entry(2, 3, "subj-x", "fac-y"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, entry(2, 3, "subj-z", "fac-w"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Len(t, m.entries, 1)
}

func TestGrantGarbageCollection(t *testing.T) {
	m := seededStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, entry(1, 1, "subj-x", "fac-y"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, entry(2, 1, "subj-x", "fac-y"))
	require.NoError(t, err)
	require.True(t, m.pairs[pairKey("fac-y", "subj-x")])

	// Another entry still references the pair: the grant survives.
	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, m.pairs[pairKey("fac-y", "subj-x")])

	// Last reference gone: the grant goes with it.
	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.False(t, m.pairs[pairKey("fac-y", "subj-x")])
}

func TestUpdateMovesGrant(t *testing.T) {
	m := seededStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, entry(1, 1, "subj-x", "fac-y"))
	require.NoError(t, err)

	newFac := "fac-w"
	updated, err := svc.Update(ctx, created.ID, Patch{FacultyID: &newFac})
	require.NoError(t, err)
	assert.Equal(t, "fac-w", updated.FacultyID)
	assert.True(t, m.pairs[pairKey("fac-w", "subj-x")])
	assert.False(t, m.pairs[pairKey("fac-y", "subj-x")], "old grant should be collected once unreferenced")
}

func TestUpdateKeepsGrantWhileReferenced(t *testing.T) {
	m := seededStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, entry(1, 1, "subj-x", "fac-y"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, entry(2, 2, "subj-x", "fac-y"))
	require.NoError(t, err)

	newFac := "fac-w"
	_, err = svc.Update(ctx, other.ID, Patch{FacultyID: &newFac})
	require.NoError(t, err)

	assert.True(t, m.pairs[pairKey("fac-y", "subj-x")], "first entry still references the pair")
	assert.True(t, m.pairs[pairKey("fac-w", "subj-x")])
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	svc := NewService(seededStore(), nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, "nope", Patch{})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	err = svc.Delete(ctx, "nope")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

type staticColors struct{}

func (staticColors) Color(_ context.Context, subjectID string) string { return "#" + subjectID }

func TestGridAnnotatesColors(t *testing.T) {
	m := seededStore()
	svc := NewService(m, staticColors{})
	ctx := context.Background()

	_, err := svc.Create(ctx, entry(1, 1, "subj-x", "fac-y"))
	require.NoError(t, err)

	grid, err := svc.Grid(ctx, "dept-a", "sem-3")
	require.NoError(t, err)
	require.Len(t, grid, 1)
	assert.Equal(t, "Algorithms", grid[0].SubjectName)
	assert.Equal(t, "#subj-x", grid[0].Color)
}
