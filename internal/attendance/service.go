// Package attendance records per-student, per-period attendance for
// timetabled subjects. Marking is gated on the derived faculty-subject
// grant, scoped to days the subject is actually scheduled, and upserts by
// the (student, subject, date, period) natural key so a re-mark edits in
// place instead of duplicating.
package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
	"campustrack/internal/notify"
)

// Store is the persistence surface the recorder needs. UpsertRecords is
// all-or-nothing: one transaction for the whole call.
type Store interface {
	FacultyByUser(ctx context.Context, userID string) (*model.FacultyProfile, error)
	GrantExists(ctx context.Context, facultyID, subjectID string) (bool, error)
	Subject(ctx context.Context, id string) (*model.Subject, error)
	ScheduledOn(ctx context.Context, subjectID string, dayOfWeek int, semesterID string) (bool, error)
	StudentsByIDs(ctx context.Context, ids []string) ([]model.StudentProfile, error)
	UpsertRecords(ctx context.Context, recs []model.AttendanceRecord) error
	SubjectDay(ctx context.Context, subjectID string, date time.Time) ([]model.AttendanceRecord, error)
	StudentCounts(ctx context.Context, studentID string) ([]SubjectCounts, error)
}

// Service implements the attendance recorder.
type Service struct {
	store    Store
	notifier notify.Notifier
}

// NewService creates a recorder backed by a store and a notifier.
func NewService(store Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, notifier: notifier}
}

// RecordInput is one student/period marking in a call.
type RecordInput struct {
	StudentID string
	Period    int
	Status    model.AttendanceStatus
}

// MarkInput is one marking call: all periods for a subject+date together.
type MarkInput struct {
	SubjectID string
	Date      time.Time
	Records   []RecordInput
}

// MarkResult reports what a successful call persisted.
type MarkResult struct {
	Count int       `json:"count"`
	Date  time.Time `json:"date"`
}

// SubjectCounts aggregates one student's presence for one subject.
type SubjectCounts struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	SubjectCode string `json:"subject_code"`
	Present     int    `json:"present"`
	Total       int    `json:"total"`
}

// SummaryRow is SubjectCounts with the derived percentage.
type SummaryRow struct {
	SubjectCounts
	Percent int `json:"percent"`
}

// Mark validates and persists a marking call. The validation sequence fails
// fast with a distinct code per rule; the upserts commit atomically; the
// per-student notifications go out only after the commit and never fail the
// call.
func (s *Service) Mark(ctx context.Context, callerUserID string, callerRole model.Role, in MarkInput) (MarkResult, error) {
	if callerRole != model.RoleFaculty {
		return MarkResult{}, apperr.New(apperr.CodeUnauthorized, "only faculty can mark attendance")
	}
	faculty, err := s.store.FacultyByUser(ctx, callerUserID)
	if err != nil {
		return MarkResult{}, err
	}
	if faculty == nil {
		return MarkResult{}, apperr.New(apperr.CodeUnauthorized, "no faculty profile for caller")
	}

	granted, err := s.store.GrantExists(ctx, faculty.ID, in.SubjectID)
	if err != nil {
		return MarkResult{}, err
	}
	if !granted {
		return MarkResult{}, apperr.New(apperr.CodeUnauthorized, "you are not assigned to this subject")
	}

	subject, err := s.store.Subject(ctx, in.SubjectID)
	if err != nil {
		return MarkResult{}, err
	}
	if subject == nil {
		return MarkResult{}, apperr.New(apperr.CodeNotFound, "subject not found")
	}

	weekday := model.Weekday(in.Date)
	if weekday == 0 {
		return MarkResult{}, apperr.New(apperr.CodeInvalidDay, "attendance cannot be marked on Sunday")
	}

	scheduled, err := s.store.ScheduledOn(ctx, in.SubjectID, weekday, subject.SemesterID)
	if err != nil {
		return MarkResult{}, err
	}
	if !scheduled {
		return MarkResult{}, apperr.New(apperr.CodeNotInTimetable, "subject is not scheduled on this day")
	}

	if len(in.Records) == 0 {
		return MarkResult{}, apperr.New(apperr.CodeValidation, "no records submitted")
	}
	for _, rec := range in.Records {
		if rec.Period < model.MinPeriod || rec.Period > model.MaxPeriod {
			return MarkResult{}, apperr.New(apperr.CodeValidation, fmt.Sprintf("period must be %d to %d", model.MinPeriod, model.MaxPeriod))
		}
		if !rec.Status.Valid() {
			return MarkResult{}, apperr.New(apperr.CodeValidation, "status must be PRESENT or ABSENT")
		}
	}

	students, err := s.resolveStudents(ctx, in.Records, subject.SemesterID)
	if err != nil {
		return MarkResult{}, err
	}

	date := truncateDate(in.Date)
	recs := make([]model.AttendanceRecord, 0, len(in.Records))
	for _, rec := range in.Records {
		recs = append(recs, model.AttendanceRecord{
			StudentID:  rec.StudentID,
			SubjectID:  in.SubjectID,
			Date:       date,
			Period:     rec.Period,
			Status:     rec.Status,
			MarkedBy:   faculty.ID,
			SemesterID: subject.SemesterID,
		})
	}
	if err := s.store.UpsertRecords(ctx, recs); err != nil {
		return MarkResult{}, apperr.New(apperr.CodeMarkFailed, "attendance could not be saved")
	}

	for _, stu := range students {
		s.notifier.Notify(ctx, notify.Payload{
			UserID:  stu.UserID,
			Type:    "ATTENDANCE",
			Title:   "Attendance marked",
			Message: fmt.Sprintf("Attendance for %s on %s has been recorded", subject.Name, date.Format("02 Jan 2006")),
			Link:    "/student/attendance",
		})
	}

	return MarkResult{Count: len(recs), Date: date}, nil
}

// SubjectDay returns the records for a subject on one date. The caller must
// hold the subject grant, same as for marking.
func (s *Service) SubjectDay(ctx context.Context, callerUserID string, callerRole model.Role, subjectID string, date time.Time) ([]model.AttendanceRecord, error) {
	if callerRole != model.RoleFaculty {
		return nil, apperr.New(apperr.CodeUnauthorized, "only faculty can view subject attendance")
	}
	faculty, err := s.store.FacultyByUser(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	if faculty == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "no faculty profile for caller")
	}
	granted, err := s.store.GrantExists(ctx, faculty.ID, subjectID)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, apperr.New(apperr.CodeUnauthorized, "you are not assigned to this subject")
	}
	return s.store.SubjectDay(ctx, subjectID, truncateDate(date))
}

// StudentSummary returns per-subject presence percentages for a student.
func (s *Service) StudentSummary(ctx context.Context, studentID string) ([]SummaryRow, error) {
	counts, err := s.store.StudentCounts(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows := make([]SummaryRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, SummaryRow{SubjectCounts: c, Percent: Percent(c.Present, c.Total)})
	}
	return rows, nil
}

// Percent computes round(present/total*100) with 0.5 rounding up. Zero
// records yield 0, never NaN.
func Percent(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

func (s *Service) resolveStudents(ctx context.Context, records []RecordInput, semesterID string) ([]model.StudentProfile, error) {
	idSet := map[string]bool{}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if !idSet[rec.StudentID] {
			idSet[rec.StudentID] = true
			ids = append(ids, rec.StudentID)
		}
	}
	students, err := s.store.StudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Partial matches are rejected wholesale: every submitted student must
	// resolve and sit in the subject's semester.
	bySID := map[string]model.StudentProfile{}
	for _, stu := range students {
		bySID[stu.ID] = stu
	}
	for _, id := range ids {
		stu, ok := bySID[id]
		if !ok || stu.SemesterID != semesterID {
			return nil, apperr.New(apperr.CodeInvalidStudents, "one or more students do not belong to this subject's semester")
		}
	}
	return students, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
