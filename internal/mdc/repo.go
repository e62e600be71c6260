package mdc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/model"
)

// Repository persists MDC data in Postgres.
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

const courseCols = `id, home_department_id, mdc_department_id, year, semester, course_name, faculty_id`

func (r *Repository) scanCourse(ctx context.Context, row *sql.Row) (*model.MDCCourse, error) {
	var c model.MDCCourse
	if err := row.Scan(&c.ID, &c.HomeDepartmentID, &c.MDCDepartmentID, &c.Year, &c.Semester, &c.CourseName, &c.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	roster, err := r.roster(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.StudentIDs = roster
	return &c, nil
}

func (r *Repository) roster(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM mdc_course_students WHERE mdc_course_id = $1 ORDER BY student_id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CourseByID returns a course with its roster, or nil.
func (r *Repository) CourseByID(ctx context.Context, id string) (*model.MDCCourse, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM mdc_courses WHERE id = $1`, id)
	return r.scanCourse(ctx, row)
}

// CourseByKey returns the course for the business 4-tuple, or nil.
func (r *Repository) CourseByKey(ctx context.Context, homeDeptID, mdcDeptID string, year, semester int) (*model.MDCCourse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+courseCols+` FROM mdc_courses
		WHERE home_department_id = $1 AND mdc_department_id = $2 AND year = $3 AND semester = $4
	`, homeDeptID, mdcDeptID, year, semester)
	return r.scanCourse(ctx, row)
}

// CourseByHost returns the course hosted by a department for a semester, or
// nil.
func (r *Repository) CourseByHost(ctx context.Context, hostDeptID string, semester int) (*model.MDCCourse, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+courseCols+` FROM mdc_courses
		WHERE mdc_department_id = $1 AND semester = $2
	`, hostDeptID, semester)
	return r.scanCourse(ctx, row)
}

// CoursesByHome returns all courses whose students come from the given
// department.
func (r *Repository) CoursesByHome(ctx context.Context, homeDeptID string) ([]model.MDCCourse, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+courseCols+` FROM mdc_courses
		WHERE home_department_id = $1
		ORDER BY year, semester
	`, homeDeptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.MDCCourse
	for rows.Next() {
		var c model.MDCCourse
		if err := rows.Scan(&c.ID, &c.HomeDepartmentID, &c.MDCDepartmentID, &c.Year, &c.Semester, &c.CourseName, &c.FacultyID); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		roster, err := r.roster(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].StudentIDs = roster
	}
	return res, nil
}

// CreateCourse inserts the course and its roster in one transaction.
func (r *Repository) CreateCourse(ctx context.Context, c model.MDCCourse) (model.MDCCourse, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MDCCourse{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mdc_courses (`+courseCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.HomeDepartmentID, c.MDCDepartmentID, c.Year, c.Semester, c.CourseName, c.FacultyID); err != nil {
		return model.MDCCourse{}, err
	}
	if err := replaceRoster(ctx, tx, c.ID, c.StudentIDs); err != nil {
		return model.MDCCourse{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.MDCCourse{}, err
	}
	return c, nil
}

// UpdateCourse rewrites the course and replaces its roster in one
// transaction.
func (r *Repository) UpdateCourse(ctx context.Context, c model.MDCCourse) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE mdc_courses
		SET course_name = $2, faculty_id = $3
		WHERE id = $1
	`, c.ID, c.CourseName, c.FacultyID); err != nil {
		return err
	}
	if err := replaceRoster(ctx, tx, c.ID, c.StudentIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceRoster(ctx context.Context, tx *sql.Tx, courseID string, studentIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM mdc_course_students WHERE mdc_course_id = $1`, courseID); err != nil {
		return err
	}
	for _, sid := range studentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mdc_course_students (mdc_course_id, student_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, courseID, sid); err != nil {
			return err
		}
	}
	return nil
}

// SetCourseFaculty reassigns the teaching faculty.
func (r *Repository) SetCourseFaculty(ctx context.Context, courseID, facultyID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE mdc_courses SET faculty_id = $2 WHERE id = $1`, courseID, facultyID)
	return err
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

// UpsertRecords writes one submission's records in a single transaction,
// keyed by (course, student, date, period).
func (r *Repository) UpsertRecords(ctx context.Context, recs []model.MDCAttendanceRecord) error {
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
			INSERT INTO mdc_attendance_records (id, mdc_course_id, student_id, date, period, status, marked_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (mdc_course_id, student_id, date, period) DO UPDATE SET
				status = EXCLUDED.status,
				marked_by = EXCLUDED.marked_by
		`, rec.ID, rec.MDCCourseID, rec.StudentID, rec.Date, rec.Period, rec.Status, rec.MarkedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RegularDay returns the student's regular-track records for one date with
// subject and marker names joined in.
func (r *Repository) RegularDay(ctx context.Context, studentID string, date time.Time) ([]DayRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.period, a.status, s.name, u.name
		FROM attendance_records a
		JOIN subjects s ON s.id = a.subject_id
		JOIN faculty_profiles f ON f.id = a.marked_by
		JOIN users u ON u.id = f.user_id
		WHERE a.student_id = $1 AND a.date = $2
		ORDER BY a.period
	`, studentID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDayRecords(rows)
}

// MDCDay returns the student's MDC-track records for one date.
func (r *Repository) MDCDay(ctx context.Context, studentID string, date time.Time) ([]DayRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.period, a.status, c.course_name, u.name
		FROM mdc_attendance_records a
		JOIN mdc_courses c ON c.id = a.mdc_course_id
		JOIN faculty_profiles f ON f.id = a.marked_by
		JOIN users u ON u.id = f.user_id
		WHERE a.student_id = $1 AND a.date = $2
		ORDER BY a.period
	`, studentID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDayRecords(rows)
}

func scanDayRecords(rows *sql.Rows) ([]DayRecord, error) {
	var res []DayRecord
	for rows.Next() {
		var d DayRecord
		if err := rows.Scan(&d.Period, &d.Status, &d.Label, &d.FacultyName); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
