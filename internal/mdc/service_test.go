package mdc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

type memStore struct {
	facultyByUser map[string]model.FacultyProfile
	courses       map[string]model.MDCCourse
	students      map[string]model.StudentProfile
	records       map[string]model.MDCAttendanceRecord
	regularDays   map[string][]DayRecord
	mdcDays       map[string][]DayRecord
	failRegular   bool
	nextID        int
}

func newMemStore() *memStore {
	return &memStore{
		facultyByUser: map[string]model.FacultyProfile{},
		courses:       map[string]model.MDCCourse{},
		students:      map[string]model.StudentProfile{},
		records:       map[string]model.MDCAttendanceRecord{},
		regularDays:   map[string][]DayRecord{},
		mdcDays:       map[string][]DayRecord{},
	}
}

func (m *memStore) FacultyByUser(_ context.Context, userID string) (*model.FacultyProfile, error) {
	if f, ok := m.facultyByUser[userID]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m *memStore) CourseByID(_ context.Context, id string) (*model.MDCCourse, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) CourseByKey(_ context.Context, home, host string, year, semester int) (*model.MDCCourse, error) {
	for _, c := range m.courses {
		if c.HomeDepartmentID == home && c.MDCDepartmentID == host && c.Year == year && c.Semester == semester {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) CourseByHost(_ context.Context, hostDeptID string, semester int) (*model.MDCCourse, error) {
	for _, c := range m.courses {
		if c.MDCDepartmentID == hostDeptID && c.Semester == semester {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) CoursesByHome(_ context.Context, homeDeptID string) ([]model.MDCCourse, error) {
	var out []model.MDCCourse
	for _, c := range m.courses {
		if c.HomeDepartmentID == homeDeptID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateCourse(_ context.Context, c model.MDCCourse) (model.MDCCourse, error) {
	m.nextID++
	c.ID = fmt.Sprintf("mdc-%d", m.nextID)
	m.courses[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateCourse(_ context.Context, c model.MDCCourse) error {
	m.courses[c.ID] = c
	return nil
}

func (m *memStore) SetCourseFaculty(_ context.Context, courseID, facultyID string) error {
	c := m.courses[courseID]
	c.FacultyID = facultyID
	m.courses[courseID] = c
	return nil
}

func (m *memStore) StudentsByIDs(_ context.Context, ids []string) ([]model.StudentProfile, error) {
	var out []model.StudentProfile
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) UpsertRecords(_ context.Context, recs []model.MDCAttendanceRecord) error {
	for _, rec := range recs {
		key := fmt.Sprintf("%s|%s|%s|%d", rec.MDCCourseID, rec.StudentID, rec.Date.Format("2006-01-02"), rec.Period)
		m.records[key] = rec
	}
	return nil
}

func dayKey(studentID string, date time.Time) string {
	return studentID + "|" + date.Format("2006-01-02")
}

func (m *memStore) RegularDay(_ context.Context, studentID string, date time.Time) ([]DayRecord, error) {
	if m.failRegular {
		return nil, errors.New("storage down")
	}
	return m.regularDays[dayKey(studentID, date)], nil
}

func (m *memStore) MDCDay(_ context.Context, studentID string, date time.Time) ([]DayRecord, error) {
	return m.mdcDays[dayKey(studentID, date)], nil
}

func courseInput() CourseInput {
	return CourseInput{
		HomeDepartmentID: "dept-a",
		MDCDepartmentID:  "dept-b",
		Year:             2,
		Semester:         1,
		CourseName:       "Design Thinking",
		StudentIDs:       []string{"s1", "s2"},
		FacultyID:        "fac-1",
	}
}

func TestUpsertCourseCreateThenUpdate(t *testing.T) {
	m := newMemStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	created, err := svc.UpsertCourse(ctx, courseInput())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	in := courseInput()
	in.CourseName = "Design Thinking II"
	in.StudentIDs = []string{"s1", "s2", "s3"}
	updated, err := svc.UpsertCourse(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID, "same 4-tuple must hit the same course")
	assert.Len(t, m.courses, 1)
	assert.Equal(t, "Design Thinking II", m.courses[created.ID].CourseName)
	assert.Len(t, m.courses[created.ID].StudentIDs, 3)
}

func TestUpsertCourseValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CourseInput)
	}{
		{"empty name", func(in *CourseInput) { in.CourseName = "  " }},
		{"year too high", func(in *CourseInput) { in.Year = 5 }},
		{"semester out of range", func(in *CourseInput) { in.Semester = 3 }},
		{"empty roster", func(in *CourseInput) { in.StudentIDs = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemStore(), nil)
			in := courseInput()
			tt.mutate(&in)
			_, err := svc.UpsertCourse(context.Background(), in)
			assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}
}

func TestLookupDirectionsAreAsymmetric(t *testing.T) {
	m := newMemStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	_, err := svc.UpsertCourse(ctx, courseInput())
	require.NoError(t, err)

	// Hosting department resolves the course; home department does not.
	byHost, err := svc.CourseByHost(ctx, "dept-b", 1)
	require.NoError(t, err)
	require.NotNil(t, byHost)
	assert.Equal(t, "fac-1", byHost.FacultyID)

	byWrongHost, err := svc.CourseByHost(ctx, "dept-a", 1)
	require.NoError(t, err)
	assert.Nil(t, byWrongHost)

	// The home direction is a separate read returning the cohort's courses.
	homeCourses, err := svc.CoursesByHome(ctx, "dept-a")
	require.NoError(t, err)
	assert.Len(t, homeCourses, 1)
}

func TestAssignFacultyByHost(t *testing.T) {
	m := newMemStore()
	svc := NewService(m, nil)
	ctx := context.Background()

	created, err := svc.UpsertCourse(ctx, courseInput())
	require.NoError(t, err)

	require.NoError(t, svc.AssignFacultyByHost(ctx, "dept-b", 1, "fac-2"))
	assert.Equal(t, "fac-2", m.courses[created.ID].FacultyID)

	err = svc.AssignFacultyByHost(ctx, "dept-a", 1, "fac-2")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "home department must not resolve the hosted course")
}

func TestSubmitAttendance(t *testing.T) {
	m := newMemStore()
	m.facultyByUser["user-1"] = model.FacultyProfile{ID: "fac-1", UserID: "user-1"}
	m.facultyByUser["user-2"] = model.FacultyProfile{ID: "fac-2", UserID: "user-2"}
	m.students["s1"] = model.StudentProfile{ID: "s1", UserID: "su-1"}
	svc := NewService(m, nil)
	ctx := context.Background()

	course, err := svc.UpsertCourse(ctx, courseInput())
	require.NoError(t, err)

	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	// Assigned faculty succeeds.
	err = svc.SubmitAttendance(ctx, "user-1", model.RoleFaculty, SubmitInput{
		MDCCourseID: course.ID,
		Date:        date,
		Records:     []RecordInput{{StudentID: "s1", Period: 3, Status: model.StatusPresent}},
	})
	require.NoError(t, err)
	assert.Len(t, m.records, 1)

	// Another faculty is rejected with FORBIDDEN.
	err = svc.SubmitAttendance(ctx, "user-2", model.RoleFaculty, SubmitInput{
		MDCCourseID: course.ID,
		Date:        date,
		Records:     []RecordInput{{StudentID: "s1", Period: 3, Status: model.StatusPresent}},
	})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	// Off-roster student is rejected.
	err = svc.SubmitAttendance(ctx, "user-1", model.RoleFaculty, SubmitInput{
		MDCCourseID: course.ID,
		Date:        date,
		Records:     []RecordInput{{StudentID: "outsider", Period: 3, Status: model.StatusPresent}},
	})
	assert.Equal(t, apperr.CodeInvalidStudents, apperr.CodeOf(err))
}

func TestDailyStatusMerge(t *testing.T) {
	m := newMemStore()
	svc := NewService(m, nil)
	date := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	m.regularDays[dayKey("s1", date)] = []DayRecord{
		{Period: 1, Status: model.StatusPresent, Label: "Algorithms", FacultyName: "Dr. Rao"},
		{Period: 3, Status: model.StatusAbsent, Label: "Networks", FacultyName: "Dr. Rao"},
	}
	m.mdcDays[dayKey("s1", date)] = []DayRecord{
		{Period: 3, Status: model.StatusPresent, Label: "Design Thinking", FacultyName: "Prof. Nair"},
	}

	blocks := svc.DailyStatus(context.Background(), "s1", date)
	require.Len(t, blocks, 5)

	assert.Equal(t, model.StatusPresent, blocks[0].Status)
	assert.Equal(t, "REGULAR", blocks[0].Source)

	assert.Equal(t, model.StatusNotMarked, blocks[1].Status)
	assert.Nil(t, blocks[1].FacultyName)

	// MDC overlays the regular record in the same period.
	assert.Equal(t, model.StatusPresent, blocks[2].Status)
	assert.Equal(t, "MDC", blocks[2].Source)
	assert.Equal(t, "Design Thinking", blocks[2].Subject)

	assert.Equal(t, model.StatusNotMarked, blocks[3].Status)
	assert.Equal(t, model.StatusNotMarked, blocks[4].Status)
}

func TestDailyStatusFailSoft(t *testing.T) {
	m := newMemStore()
	m.failRegular = true
	svc := NewService(m, nil)

	blocks := svc.DailyStatus(context.Background(), "s1", time.Now())
	require.Len(t, blocks, 5)
	for _, b := range blocks {
		assert.Equal(t, model.StatusNotMarked, b.Status)
		assert.Nil(t, b.FacultyName)
	}
}
