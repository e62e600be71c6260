package model

import "time"

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleFaculty Role = "FACULTY"
	RoleStudent Role = "STUDENT"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	default:
		return false
	}
}

// AttendanceStatus is the per-period marking for a student.
type AttendanceStatus string

const (
	StatusPresent   AttendanceStatus = "PRESENT"
	StatusAbsent    AttendanceStatus = "ABSENT"
	StatusNotMarked AttendanceStatus = "NOT_MARKED"
)

// Valid returns true for statuses a faculty may submit. NOT_MARKED is a
// read-side placeholder and is never written.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// SubjectType distinguishes theory and practical subjects.
type SubjectType string

const (
	SubjectTheory    SubjectType = "THEORY"
	SubjectPractical SubjectType = "PRACTICAL"
)

// User is the minimal account record the consistency core depends on.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Department groups subjects, faculty and students.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// AcademicYear anchors semesters and timetable scopes.
type AcademicYear struct {
	ID   string `json:"id"`
	Year int    `json:"year"`
}

// Semester is one of the eight ordered terms; number 8 graduates.
type Semester struct {
	ID             string `json:"id"`
	Number         int    `json:"number"`
	Name           string `json:"name"`
	AcademicYearID string `json:"academic_year_id"`
}

// GraduatingSemester is the terminal semester number.
const GraduatingSemester = 8

// Subject belongs to a department+semester. MDC subjects additionally carry
// an MDCCourse configuration for the cross-department cohort.
type Subject struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Credits      int         `json:"credits"`
	Type         SubjectType `json:"type"`
	DepartmentID string      `json:"department_id"`
	SemesterID   string      `json:"semester_id"`
	IsMDC        bool        `json:"is_mdc"`
}

// FacultyProfile is one-to-one with a FACULTY user.
type FacultyProfile struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	DepartmentID string `json:"department_id"`
	Designation  string `json:"designation"`
}

// StudentProfile is one-to-one with a STUDENT user. SemesterID is the single
// source of truth for what the student attends; only the progression engine
// moves it.
type StudentProfile struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	DepartmentID  string `json:"department_id"`
	SemesterID    string `json:"semester_id"`
	EnrollmentNo  string `json:"enrollment_no"`
	AdmissionYear int    `json:"admission_year"`
	CurrentYear   int    `json:"current_year"`
}

// FacultySubject is the derived authorization index: a row exists iff at
// least one timetable entry references the (faculty, subject) pair. It is
// written only by timetable mutations, never directly.
type FacultySubject struct {
	FacultyID string `json:"faculty_id"`
	SubjectID string `json:"subject_id"`
}

// TimetableEntry is one slot in the weekly grid. At most one entry may exist
// per (day, period, department, semester, academic year).
type TimetableEntry struct {
	ID             string `json:"id"`
	DayOfWeek      int    `json:"day_of_week"` // 1=Mon .. 6=Sat
	Period         int    `json:"period"`      // 1..5
	SubjectID      string `json:"subject_id"`
	FacultyID      string `json:"faculty_id"`
	Room           string `json:"room"`
	DepartmentID   string `json:"department_id"`
	SemesterID     string `json:"semester_id"`
	AcademicYearID string `json:"academic_year_id"`
}

// AttendanceRecord is keyed by (student, subject, date, period); re-marking
// the same key updates status, marker and timestamp in place.
type AttendanceRecord struct {
	ID         string           `json:"id"`
	StudentID  string           `json:"student_id"`
	SubjectID  string           `json:"subject_id"`
	Date       time.Time        `json:"date"`
	Period     int              `json:"period"`
	Status     AttendanceStatus `json:"status"`
	MarkedBy   string           `json:"marked_by"`
	SemesterID string           `json:"semester_id"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// MDCCourse is a cross-department elective: students of HomeDepartmentID
// take a course hosted (taught) by MDCDepartmentID. The roster is curated
// by hand, not derived from semester membership.
type MDCCourse struct {
	ID               string   `json:"id"`
	HomeDepartmentID string   `json:"home_department_id"`
	MDCDepartmentID  string   `json:"mdc_department_id"`
	Year             int      `json:"year"`     // 1..4
	Semester         int      `json:"semester"` // 1..2 within the year
	CourseName       string   `json:"course_name"`
	StudentIDs       []string `json:"student_ids"`
	FacultyID        string   `json:"faculty_id"`
}

// MDCAttendanceRecord parallels AttendanceRecord on the MDC track, keyed by
// (course, student, date, period).
type MDCAttendanceRecord struct {
	ID          string           `json:"id"`
	MDCCourseID string           `json:"mdc_course_id"`
	StudentID   string           `json:"student_id"`
	Date        time.Time        `json:"date"`
	Period      int              `json:"period"`
	Status      AttendanceStatus `json:"status"`
	MarkedBy    string           `json:"marked_by"`
}

// SemesterHistory is the append-only audit trail written by the progression
// engine.
type SemesterHistory struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	SemesterID string    `json:"semester_id"`
	ChangedBy  string    `json:"changed_by"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is the persisted fan-out target consumed by dashboards.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Periods per day across the whole grid.
const (
	MinPeriod = 1
	MaxPeriod = 5
)

// Weekday maps Go's time.Weekday (0=Sun..6=Sat) onto the timetable's
// 1=Mon..6=Sat convention. Sunday returns 0, which no entry can hold.
func Weekday(t time.Time) int {
	return int(t.Weekday())
}
