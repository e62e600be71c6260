// Package progression moves student cohorts to their next semester, or
// records graduation for semester-8 students. Every run is either a pure
// dry-run preview or an atomic execute; execute recomputes its own plan
// rather than trusting a client-supplied preview.
package progression

import (
	"context"
	"fmt"
	"time"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// StudentWithUser joins the profile with the account fields the engine
// filters on.
type StudentWithUser struct {
	model.StudentProfile
	UserName   string `json:"user_name"`
	UserActive bool   `json:"user_active"`
}

// Transition is one student's planned move. ToSemester nil means the
// student graduates and keeps their semester-8 record.
type Transition struct {
	Student    StudentWithUser
	ToSemester *model.Semester
}

// Stats summarizes cohort sizes for the progression dashboard.
type Stats struct {
	TotalStudents  int             `json:"total_students"`
	BySemester     []SemesterCount `json:"by_semester"`
	LastExecutedAt *time.Time      `json:"last_executed_at"`
}

// SemesterCount is one semester's cohort size.
type SemesterCount struct {
	SemesterID   string `json:"semester_id"`
	SemesterName string `json:"semester_name"`
	Number       int    `json:"number"`
	Students     int    `json:"students"`
}

// Store is the persistence surface for the engine. ExecutePlan applies a
// whole plan in one transaction or not at all.
type Store interface {
	Semesters(ctx context.Context) ([]model.Semester, error)
	StudentsBySemesters(ctx context.Context, semesterIDs []string, departmentID string) ([]StudentWithUser, error)
	ExecutePlan(ctx context.Context, plan []Transition, changedBy string) error
	Stats(ctx context.Context) (Stats, error)
}

// Engine implements the progression workflow.
type Engine struct {
	store Store
}

// NewEngine creates an engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Criteria selects the cohort to progress.
type Criteria struct {
	CurrentSemesterIDs []string
	DepartmentID       string
	ExcludeStudentIDs  []string
}

// PreviewEntry is one student's planned outcome.
type PreviewEntry struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	EnrollmentNo string `json:"enrollment_no"`
	FromSemester int    `json:"from_semester"`
	ToSemester   int    `json:"to_semester,omitempty"`
	Graduating   bool   `json:"graduating"`
}

// Summary is the shared shape of both result kinds. Progressed is always 0
// for a dry-run; it reports post-execution reality only.
type Summary struct {
	Affected   int            `json:"affected"`
	Progressed int            `json:"progressed"`
	Graduating int            `json:"graduating"`
	Preview    []PreviewEntry `json:"preview"`
	Warnings   []string       `json:"warnings"`
}

// DryRunResult is a preview; nothing was written.
type DryRunResult struct {
	Summary
}

// ExecutedResult reports a committed run.
type ExecutedResult struct {
	Summary
}

// DryRun computes the plan without touching storage. Calling it any number
// of times with unchanged data yields the same preview.
func (e *Engine) DryRun(ctx context.Context, criteria Criteria) (DryRunResult, error) {
	_, summary, err := e.compute(ctx, criteria)
	if err != nil {
		return DryRunResult{}, err
	}
	return DryRunResult{Summary: summary}, nil
}

// Execute re-derives the plan fresh and applies it in one transaction.
// Any failure rolls the whole batch back and reports PROGRESSION_FAILED
// with the guarantee that no changes were made.
func (e *Engine) Execute(ctx context.Context, changedBy string, criteria Criteria) (ExecutedResult, error) {
	plan, summary, err := e.compute(ctx, criteria)
	if err != nil {
		return ExecutedResult{}, err
	}
	if err := e.store.ExecutePlan(ctx, plan, changedBy); err != nil {
		return ExecutedResult{}, apperr.New(apperr.CodeProgressionFailed, "progression failed, no changes were made")
	}
	progressed := 0
	for _, tr := range plan {
		if tr.ToSemester != nil {
			progressed++
		}
	}
	summary.Progressed = progressed
	return ExecutedResult{Summary: summary}, nil
}

// Stats reports cohort sizes and the time of the last executed run.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.store.Stats(ctx)
}

func (e *Engine) compute(ctx context.Context, criteria Criteria) ([]Transition, Summary, error) {
	if len(criteria.CurrentSemesterIDs) == 0 {
		return nil, Summary{}, apperr.New(apperr.CodeValidation, "at least one semester must be selected")
	}

	semesters, err := e.store.Semesters(ctx)
	if err != nil {
		return nil, Summary{}, err
	}
	byNumber := make(map[int]model.Semester, len(semesters))
	byID := make(map[string]model.Semester, len(semesters))
	for _, sem := range semesters {
		byNumber[sem.Number] = sem
		byID[sem.ID] = sem
	}

	students, err := e.store.StudentsBySemesters(ctx, criteria.CurrentSemesterIDs, criteria.DepartmentID)
	if err != nil {
		return nil, Summary{}, err
	}

	excluded := map[string]bool{}
	for _, id := range criteria.ExcludeStudentIDs {
		excluded[id] = true
	}

	var warnings []string
	inactive := 0
	var plan []Transition
	var preview []PreviewEntry
	graduating := 0

	for _, stu := range students {
		if excluded[stu.ID] {
			continue
		}
		if !stu.UserActive {
			inactive++
			continue
		}
		cur, ok := byID[stu.SemesterID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cannot progress %s: semester record missing", stu.EnrollmentNo))
			continue
		}

		if cur.Number == model.GraduatingSemester {
			graduating++
			plan = append(plan, Transition{Student: stu})
			preview = append(preview, PreviewEntry{
				StudentID:    stu.ID,
				StudentName:  stu.UserName,
				EnrollmentNo: stu.EnrollmentNo,
				FromSemester: cur.Number,
				Graduating:   true,
			})
			continue
		}

		next, ok := byNumber[cur.Number+1]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cannot progress %s: Semester %d not found", stu.EnrollmentNo, cur.Number+1))
			continue
		}
		plan = append(plan, Transition{Student: stu, ToSemester: &next})
		preview = append(preview, PreviewEntry{
			StudentID:    stu.ID,
			StudentName:  stu.UserName,
			EnrollmentNo: stu.EnrollmentNo,
			FromSemester: cur.Number,
			ToSemester:   next.Number,
		})
	}

	if inactive > 0 {
		warnings = append(warnings, fmt.Sprintf("%d inactive students skipped", inactive))
	}

	summary := Summary{
		Affected:   len(preview),
		Progressed: 0,
		Graduating: graduating,
		Preview:    preview,
		Warnings:   warnings,
	}
	return plan, summary, nil
}

// YearForSemester derives the academic year (1..4) a semester number falls
// in; progression writes it to the student's current_year.
func YearForSemester(number int) int {
	return (number + 1) / 2
}
