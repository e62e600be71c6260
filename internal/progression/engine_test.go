package progression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

type memStore struct {
	semesters []model.Semester
	students  map[string]StudentWithUser
	history   []string // "studentID|semesterID|reason"
	failExec  bool
}

func (m *memStore) Semesters(_ context.Context) ([]model.Semester, error) {
	return m.semesters, nil
}

func (m *memStore) StudentsBySemesters(_ context.Context, semesterIDs []string, departmentID string) ([]StudentWithUser, error) {
	inSet := map[string]bool{}
	for _, id := range semesterIDs {
		inSet[id] = true
	}
	var out []StudentWithUser
	for _, stu := range m.students {
		if !inSet[stu.SemesterID] {
			continue
		}
		if departmentID != "" && stu.DepartmentID != departmentID {
			continue
		}
		out = append(out, stu)
	}
	return out, nil
}

func (m *memStore) ExecutePlan(_ context.Context, plan []Transition, changedBy string) error {
	if m.failExec {
		return errors.New("tx aborted")
	}
	for _, tr := range plan {
		stu := m.students[tr.Student.ID]
		if tr.ToSemester == nil {
			m.history = append(m.history, stu.ID+"|"+stu.SemesterID+"|Graduation")
			continue
		}
		stu.SemesterID = tr.ToSemester.ID
		stu.CurrentYear = YearForSemester(tr.ToSemester.Number)
		m.students[stu.ID] = stu
		m.history = append(m.history, stu.ID+"|"+tr.ToSemester.ID+"|Progressed")
	}
	return nil
}

func (m *memStore) Stats(_ context.Context) (Stats, error) {
	now := time.Now()
	return Stats{TotalStudents: len(m.students), LastExecutedAt: &now}, nil
}

func semester(number int) model.Semester {
	return model.Semester{
		ID:     semID(number),
		Number: number,
		Name:   "Semester",
	}
}

func semID(number int) string {
	return "sem-" + string(rune('0'+number))
}

func student(id string, semNumber int, active bool) StudentWithUser {
	return StudentWithUser{
		StudentProfile: model.StudentProfile{
			ID:           id,
			UserID:       "u-" + id,
			DepartmentID: "dept-a",
			SemesterID:   semID(semNumber),
			EnrollmentNo: "EN-" + id,
			CurrentYear:  YearForSemester(semNumber),
		},
		UserName:   "Student " + id,
		UserActive: active,
	}
}

func seededStore() *memStore {
	m := &memStore{students: map[string]StudentWithUser{}}
	for n := 1; n <= 8; n++ {
		m.semesters = append(m.semesters, semester(n))
	}
	m.students["s1"] = student("s1", 3, true)
	m.students["s2"] = student("s2", 3, true)
	m.students["s3"] = student("s3", 3, false) // inactive
	m.students["s8"] = student("s8", 8, true)  // graduating
	return m
}

func TestDryRunIsPureAndRepeatable(t *testing.T) {
	m := seededStore()
	eng := NewEngine(m)
	ctx := context.Background()
	criteria := Criteria{CurrentSemesterIDs: []string{semID(3), semID(8)}}

	first, err := eng.DryRun(ctx, criteria)
	require.NoError(t, err)
	second, err := eng.DryRun(ctx, criteria)
	require.NoError(t, err)

	assert.Equal(t, first, second, "unchanged data must yield an identical preview")
	assert.Equal(t, 3, first.Affected)
	assert.Equal(t, 0, first.Progressed, "dry-run never reports progressed")
	assert.Equal(t, 1, first.Graduating)
	assert.Contains(t, first.Warnings, "1 inactive students skipped")
	assert.Empty(t, m.history, "dry-run must not write history")
	assert.Equal(t, semID(3), m.students["s1"].SemesterID, "dry-run must not move students")
}

func TestExecuteProgressesAndGraduates(t *testing.T) {
	m := seededStore()
	eng := NewEngine(m)

	res, err := eng.Execute(context.Background(), "admin-1", Criteria{
		CurrentSemesterIDs: []string{semID(3), semID(8)},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Affected)
	assert.Equal(t, 2, res.Progressed)
	assert.Equal(t, 1, res.Graduating)

	assert.Equal(t, semID(4), m.students["s1"].SemesterID)
	assert.Equal(t, 2, m.students["s1"].CurrentYear, "semester 4 is year 2")
	assert.Equal(t, semID(8), m.students["s8"].SemesterID, "graduates keep their semester-8 record")
	assert.Contains(t, m.history, "s8|"+semID(8)+"|Graduation")
	assert.Equal(t, semID(3), m.students["s3"].SemesterID, "inactive students are never progressed")
}

func TestExecuteFailureIsAtomic(t *testing.T) {
	m := seededStore()
	m.failExec = true
	eng := NewEngine(m)

	_, err := eng.Execute(context.Background(), "admin-1", Criteria{
		CurrentSemesterIDs: []string{semID(3)},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeProgressionFailed, apperr.CodeOf(err))
	assert.Empty(t, m.history)
	assert.Equal(t, semID(3), m.students["s1"].SemesterID)
}

func TestSemesterCatalogGapExcludesStudent(t *testing.T) {
	m := seededStore()
	// Remove semester 4 from the catalog.
	var kept []model.Semester
	for _, sem := range m.semesters {
		if sem.Number != 4 {
			kept = append(kept, sem)
		}
	}
	m.semesters = kept
	eng := NewEngine(m)

	res, err := eng.DryRun(context.Background(), Criteria{CurrentSemesterIDs: []string{semID(3)}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "Semester 4 not found")
}

func TestExcludeList(t *testing.T) {
	m := seededStore()
	eng := NewEngine(m)

	res, err := eng.DryRun(context.Background(), Criteria{
		CurrentSemesterIDs: []string{semID(3)},
		ExcludeStudentIDs:  []string{"s2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, "s1", res.Preview[0].StudentID)
}

func TestEmptyCriteriaRejected(t *testing.T) {
	eng := NewEngine(seededStore())
	_, err := eng.DryRun(context.Background(), Criteria{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestYearForSemester(t *testing.T) {
	tests := []struct{ number, want int }{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {6, 3}, {7, 4}, {8, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, YearForSemester(tt.number))
	}
}
