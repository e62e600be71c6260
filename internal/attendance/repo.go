package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/model"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FacultyByUser resolves the faculty profile for a user id, or nil.
func (r *Repository) FacultyByUser(ctx context.Context, userID string) (*model.FacultyProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, department_id, designation
		FROM faculty_profiles WHERE user_id = $1
	`, userID)
	var f model.FacultyProfile
	if err := row.Scan(&f.ID, &f.UserID, &f.DepartmentID, &f.Designation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// GrantExists reports whether the faculty holds the subject grant.
func (r *Repository) GrantExists(ctx context.Context, facultyID, subjectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM faculty_subjects WHERE faculty_id = $1 AND subject_id = $2)
	`, facultyID, subjectID).Scan(&exists)
	return exists, err
}

// Subject returns a subject by id, or nil when absent.
func (r *Repository) Subject(ctx context.Context, id string) (*model.Subject, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, credits, type, department_id, semester_id, is_mdc
		FROM subjects WHERE id = $1
	`, id)
	var s model.Subject
	if err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Credits, &s.Type, &s.DepartmentID, &s.SemesterID, &s.IsMDC); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ScheduledOn reports whether the subject has a timetable slot on the given
// weekday within its semester.
func (r *Repository) ScheduledOn(ctx context.Context, subjectID string, dayOfWeek int, semesterID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM timetable_entries
			WHERE subject_id = $1 AND day_of_week = $2 AND semester_id = $3
		)
	`, subjectID, dayOfWeek, semesterID).Scan(&exists)
	return exists, err
}

// StudentsByIDs returns the profiles that exist for the given ids.
func (r *Repository) StudentsByIDs(ctx context.Context, ids []string) ([]model.StudentProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, department_id, semester_id, enrollment_no, admission_year, current_year
		FROM student_profiles WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.StudentProfile
	for rows.Next() {
		var s model.StudentProfile
		if err := rows.Scan(&s.ID, &s.UserID, &s.DepartmentID, &s.SemesterID, &s.EnrollmentNo, &s.AdmissionYear, &s.CurrentYear); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpsertRecords writes all records of one marking call in a single
// transaction, keyed by (student, subject, date, period).
func (r *Repository) UpsertRecords(ctx context.Context, recs []model.AttendanceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, student_id, subject_id, date, period, status, marked_by, semester_id, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
			ON CONFLICT (student_id, subject_id, date, period) DO UPDATE SET
				status = EXCLUDED.status,
				marked_by = EXCLUDED.marked_by,
				updated_at = NOW()
		`, rec.ID, rec.StudentID, rec.SubjectID, rec.Date, rec.Period, rec.Status, rec.MarkedBy, rec.SemesterID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SubjectDay returns records for a subject on one date ordered by period.
func (r *Repository) SubjectDay(ctx context.Context, subjectID string, date time.Time) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, subject_id, date, period, status, marked_by, semester_id, updated_at
		FROM attendance_records
		WHERE subject_id = $1 AND date = $2
		ORDER BY period ASC, student_id ASC
	`, subjectID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.SubjectID, &rec.Date, &rec.Period, &rec.Status, &rec.MarkedBy, &rec.SemesterID, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// StudentCounts aggregates present/total per subject for a student.
func (r *Repository) StudentCounts(ctx context.Context, studentID string) ([]SubjectCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.code,
			COUNT(*) FILTER (WHERE a.status = 'PRESENT') AS present,
			COUNT(*) AS total
		FROM attendance_records a
		JOIN subjects s ON s.id = a.subject_id
		WHERE a.student_id = $1
		GROUP BY s.id, s.name, s.code
		ORDER BY s.code
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SubjectCounts
	for rows.Next() {
		var c SubjectCounts
		if err := rows.Scan(&c.SubjectID, &c.SubjectName, &c.SubjectCode, &c.Present, &c.Total); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
