package progression

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"campustrack/internal/model"
)

// Repository persists progression data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Semesters returns the whole semester catalog.
func (r *Repository) Semesters(ctx context.Context) ([]model.Semester, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, name, academic_year_id FROM semesters ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Semester
	for rows.Next() {
		var s model.Semester
		if err := rows.Scan(&s.ID, &s.Number, &s.Name, &s.AcademicYearID); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// StudentsBySemesters returns profiles in the given semesters joined with
// account name and active flag, optionally filtered by department.
func (r *Repository) StudentsBySemesters(ctx context.Context, semesterIDs []string, departmentID string) ([]StudentWithUser, error) {
	query := `
		SELECT sp.id, sp.user_id, sp.department_id, sp.semester_id, sp.enrollment_no,
			sp.admission_year, sp.current_year, u.name, u.is_active
		FROM student_profiles sp
		JOIN users u ON u.id = sp.user_id
		WHERE sp.semester_id = ANY($1)`
	args := []any{semesterIDs}
	if departmentID != "" {
		query += ` AND sp.department_id = $2`
		args = append(args, departmentID)
	}
	query += ` ORDER BY sp.enrollment_no`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentWithUser
	for rows.Next() {
		var s StudentWithUser
		if err := rows.Scan(&s.ID, &s.UserID, &s.DepartmentID, &s.SemesterID, &s.EnrollmentNo,
			&s.AdmissionYear, &s.CurrentYear, &s.UserName, &s.UserActive); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ExecutePlan applies a whole plan in one transaction: graduates get a
// history row and keep their semester-8 record; progressors get the new
// semester, the derived year, and a history row.
func (r *Repository) ExecutePlan(ctx context.Context, plan []Transition, changedBy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tr := range plan {
		stu := tr.Student
		if tr.ToSemester == nil {
			if err := insertHistory(ctx, tx, stu.ID, stu.SemesterID, changedBy, "Graduation"); err != nil {
				return err
			}
			continue
		}
		next := *tr.ToSemester
		if _, err := tx.ExecContext(ctx, `
			UPDATE student_profiles
			SET semester_id = $2, current_year = $3
			WHERE id = $1
		`, stu.ID, next.ID, YearForSemester(next.Number)); err != nil {
			return err
		}
		reason := fmt.Sprintf("Progressed to Semester %d", next.Number)
		if err := insertHistory(ctx, tx, stu.ID, next.ID, changedBy, reason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertHistory(ctx context.Context, tx *sql.Tx, studentID, semesterID, changedBy, reason string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO student_semester_history (id, student_id, semester_id, changed_by, reason)
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.NewString(), studentID, semesterID, changedBy, reason)
	return err
}

// Stats aggregates cohort sizes and the last executed run.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.number, COUNT(sp.id)
		FROM semesters s
		LEFT JOIN student_profiles sp ON sp.semester_id = s.id
		GROUP BY s.id, s.name, s.number
		ORDER BY s.number
	`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var c SemesterCount
		if err := rows.Scan(&c.SemesterID, &c.SemesterName, &c.Number, &c.Students); err != nil {
			return Stats{}, err
		}
		stats.BySemester = append(stats.BySemester, c)
		stats.TotalStudents += c.Students
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	// MAX over an empty table yields NULL, which means "never ran".
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM student_semester_history
	`).Scan(&last); err != nil {
		return Stats{}, err
	}
	if last.Valid {
		stats.LastExecutedAt = &last.Time
	}
	return stats, nil
}
