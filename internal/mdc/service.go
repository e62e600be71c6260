// Package mdc manages multi-disciplinary courses: electives hosted by one
// department and taken by another department's students, with their own
// curated roster and attendance track. The home and hosting lookup
// directions are deliberately separate operations; faculty assignment hangs
// off the hosting department.
package mdc

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/notify"
)

// DayRecord is one period's marking on either attendance track, enriched for
// display.
type DayRecord struct {
	Period      int
	Status      model.AttendanceStatus
	Label       string
	FacultyName string
}

// Store is the persistence surface for courses and the MDC attendance track,
// plus the two per-day reads the merge needs.
type Store interface {
	FacultyByUser(ctx context.Context, userID string) (*model.FacultyProfile, error)
	CourseByID(ctx context.Context, id string) (*model.MDCCourse, error)
	CourseByKey(ctx context.Context, homeDeptID, mdcDeptID string, year, semester int) (*model.MDCCourse, error)
	CourseByHost(ctx context.Context, hostDeptID string, semester int) (*model.MDCCourse, error)
	CoursesByHome(ctx context.Context, homeDeptID string) ([]model.MDCCourse, error)
	CreateCourse(ctx context.Context, c model.MDCCourse) (model.MDCCourse, error)
	UpdateCourse(ctx context.Context, c model.MDCCourse) error
	SetCourseFaculty(ctx context.Context, courseID, facultyID string) error
	StudentsByIDs(ctx context.Context, ids []string) ([]model.StudentProfile, error)
	UpsertRecords(ctx context.Context, recs []model.MDCAttendanceRecord) error
	RegularDay(ctx context.Context, studentID string, date time.Time) ([]DayRecord, error)
	MDCDay(ctx context.Context, studentID string, date time.Time) ([]DayRecord, error)
}

// Service implements the MDC overlay.
type Service struct {
	store    Store
	notifier notify.Notifier
}

// NewService creates the overlay service.
func NewService(store Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, notifier: notifier}
}

// CourseInput is the upsert payload, keyed by the business 4-tuple.
type CourseInput struct {
	HomeDepartmentID string
	MDCDepartmentID  string
	Year             int
	Semester         int
	CourseName       string
	StudentIDs       []string
	FacultyID        string
}

// UpsertCourse finds the course by its (home, host, year, semester) key and
// creates or updates it. The storage layer's unique index backs the same
// key, so a racing create cannot produce a duplicate.
func (s *Service) UpsertCourse(ctx context.Context, in CourseInput) (model.MDCCourse, error) {
	if strings.TrimSpace(in.CourseName) == "" {
		return model.MDCCourse{}, apperr.New(apperr.CodeValidation, "course name is required")
	}
	if in.Year < 1 || in.Year > 4 {
		return model.MDCCourse{}, apperr.New(apperr.CodeValidation, "year must be 1 to 4")
	}
	if in.Semester < 1 || in.Semester > 2 {
		return model.MDCCourse{}, apperr.New(apperr.CodeValidation, "semester must be 1 or 2")
	}
	if len(in.StudentIDs) == 0 {
		return model.MDCCourse{}, apperr.New(apperr.CodeValidation, "at least one student is required")
	}

	course := model.MDCCourse{
		HomeDepartmentID: in.HomeDepartmentID,
		MDCDepartmentID:  in.MDCDepartmentID,
		Year:             in.Year,
		Semester:         in.Semester,
		CourseName:       in.CourseName,
		StudentIDs:       in.StudentIDs,
		FacultyID:        in.FacultyID,
	}

	existing, err := s.store.CourseByKey(ctx, in.HomeDepartmentID, in.MDCDepartmentID, in.Year, in.Semester)
	if err != nil {
		return model.MDCCourse{}, err
	}
	if existing != nil {
		course.ID = existing.ID
		if err := s.store.UpdateCourse(ctx, course); err != nil {
			return model.MDCCourse{}, err
		}
		return course, nil
	}
	return s.store.CreateCourse(ctx, course)
}

// AssignFacultyByHost reassigns the teaching faculty for the course hosted
// by the given department in the given semester. The lookup runs against
// the hosting department, not the home department.
func (s *Service) AssignFacultyByHost(ctx context.Context, hostDeptID string, semester int, facultyID string) error {
	course, err := s.store.CourseByHost(ctx, hostDeptID, semester)
	if err != nil {
		return err
	}
	if course == nil {
		return apperr.New(apperr.CodeNotFound, "no MDC course hosted by this department for that semester")
	}
	return s.store.SetCourseFaculty(ctx, course.ID, facultyID)
}

// CourseByHost is the timetable-facing lookup direction: who teaches the
// course this department hosts.
func (s *Service) CourseByHost(ctx context.Context, hostDeptID string, semester int) (*model.MDCCourse, error) {
	return s.store.CourseByHost(ctx, hostDeptID, semester)
}

// CoursesByHome is the student-facing lookup direction: which MDC courses
// this department's students take.
func (s *Service) CoursesByHome(ctx context.Context, homeDeptID string) ([]model.MDCCourse, error) {
	return s.store.CoursesByHome(ctx, homeDeptID)
}

// RecordInput is one student/period marking in a submission.
type RecordInput struct {
	StudentID string
	Period    int
	Status    model.AttendanceStatus
}

// SubmitInput is one MDC attendance submission.
type SubmitInput struct {
	MDCCourseID string
	Date        time.Time
	Records     []RecordInput
}

// SubmitAttendance validates against the course's faculty and roster and
// upserts by (course, student, date, period) in one transaction.
func (s *Service) SubmitAttendance(ctx context.Context, callerUserID string, callerRole model.Role, in SubmitInput) error {
	if callerRole != model.RoleFaculty {
		return apperr.New(apperr.CodeUnauthorized, "only faculty can submit MDC attendance")
	}
	faculty, err := s.store.FacultyByUser(ctx, callerUserID)
	if err != nil {
		return err
	}
	if faculty == nil {
		return apperr.New(apperr.CodeUnauthorized, "no faculty profile for caller")
	}

	course, err := s.store.CourseByID(ctx, in.MDCCourseID)
	if err != nil {
		return err
	}
	if course == nil {
		return apperr.New(apperr.CodeNotFound, "MDC course not found")
	}
	if course.FacultyID != faculty.ID {
		return apperr.New(apperr.CodeForbidden, "this MDC course is assigned to another faculty")
	}

	if len(in.Records) == 0 {
		return apperr.New(apperr.CodeValidation, "no records submitted")
	}
	roster := map[string]bool{}
	for _, id := range course.StudentIDs {
		roster[id] = true
	}
	for _, rec := range in.Records {
		if rec.Period < model.MinPeriod || rec.Period > model.MaxPeriod {
			return apperr.New(apperr.CodeValidation, fmt.Sprintf("period must be %d to %d", model.MinPeriod, model.MaxPeriod))
		}
		if !rec.Status.Valid() {
			return apperr.New(apperr.CodeValidation, "status must be PRESENT or ABSENT")
		}
		if !roster[rec.StudentID] {
			return apperr.New(apperr.CodeInvalidStudents, "one or more students are not on this course's roster")
		}
	}

	date := truncateDate(in.Date)
	recs := make([]model.MDCAttendanceRecord, 0, len(in.Records))
	for _, rec := range in.Records {
		recs = append(recs, model.MDCAttendanceRecord{
			MDCCourseID: in.MDCCourseID,
			StudentID:   rec.StudentID,
			Date:        date,
			Period:      rec.Period,
			Status:      rec.Status,
			MarkedBy:    faculty.ID,
		})
	}
	if err := s.store.UpsertRecords(ctx, recs); err != nil {
		return apperr.New(apperr.CodeMarkFailed, "MDC attendance could not be saved")
	}

	ids := make([]string, 0, len(in.Records))
	seen := map[string]bool{}
	for _, rec := range in.Records {
		if !seen[rec.StudentID] {
			seen[rec.StudentID] = true
			ids = append(ids, rec.StudentID)
		}
	}
	if students, err := s.store.StudentsByIDs(ctx, ids); err == nil {
		for _, stu := range students {
			s.notifier.Notify(ctx, notify.Payload{
				UserID:  stu.UserID,
				Type:    "ATTENDANCE",
				Title:   "MDC attendance marked",
				Message: fmt.Sprintf("Attendance for %s on %s has been recorded", course.CourseName, date.Format("02 Jan 2006")),
				Link:    "/student/attendance",
			})
		}
	}
	return nil
}

// Block is one of the five period slots in a student's merged day.
type Block struct {
	Period      int                    `json:"period"`
	Status      model.AttendanceStatus `json:"status"`
	Subject     string                 `json:"subject,omitempty"`
	FacultyName *string                `json:"faculty_name"`
	Source      string                 `json:"source,omitempty"` // REGULAR or MDC
}

// DailyStatus merges the regular and MDC tracks into exactly five period
// blocks. Regular records land first, MDC records overwrite the same period
// (overlay order, not timestamps). The read path is fail-soft: storage
// errors degrade to an all-NOT_MARKED day instead of propagating.
func (s *Service) DailyStatus(ctx context.Context, studentID string, date time.Time) []Block {
	blocks := make([]Block, model.MaxPeriod)
	for i := range blocks {
		blocks[i] = Block{Period: i + 1, Status: model.StatusNotMarked, FacultyName: nil}
	}

	date = truncateDate(date)
	regular, err := s.store.RegularDay(ctx, studentID, date)
	if err != nil {
		log.Printf("mdc: regular day read failed for student %s: %v", studentID, err)
		return blocks
	}
	mdcRecs, err := s.store.MDCDay(ctx, studentID, date)
	if err != nil {
		log.Printf("mdc: mdc day read failed for student %s: %v", studentID, err)
		return blocks
	}

	apply := func(rec DayRecord, source string) {
		if rec.Period < model.MinPeriod || rec.Period > model.MaxPeriod {
			return
		}
		name := rec.FacultyName
		blocks[rec.Period-1] = Block{
			Period:      rec.Period,
			Status:      rec.Status,
			Subject:     rec.Label,
			FacultyName: &name,
			Source:      source,
		}
	}
	for _, rec := range regular {
		apply(rec, "REGULAR")
	}
	for _, rec := range mdcRecs {
		apply(rec, "MDC")
	}
	return blocks
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
