package timetable

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// Repository persists timetable data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryCols = `id, day_of_week, period, subject_id, faculty_id, room, department_id, semester_id, academic_year_id`

func scanEntry(row interface{ Scan(...any) error }) (model.TimetableEntry, error) {
	var e model.TimetableEntry
	err := row.Scan(&e.ID, &e.DayOfWeek, &e.Period, &e.SubjectID, &e.FacultyID, &e.Room, &e.DepartmentID, &e.SemesterID, &e.AcademicYearID)
	return e, err
}

// Entry returns the entry with the given id, or nil when absent.
func (r *Repository) Entry(ctx context.Context, id string) (*model.TimetableEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM timetable_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// SlotTaken reports whether another entry already occupies the slot.
func (r *Repository) SlotTaken(ctx context.Context, e model.TimetableEntry, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM timetable_entries
			WHERE day_of_week = $1 AND period = $2
			  AND department_id = $3 AND semester_id = $4 AND academic_year_id = $5
			  AND id <> $6
		)
	`, e.DayOfWeek, e.Period, e.DepartmentID, e.SemesterID, e.AcademicYearID, excludeID).Scan(&exists)
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

// Faculty returns a faculty profile by id, or nil when absent.
func (r *Repository) Faculty(ctx context.Context, id string) (*model.FacultyProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, department_id, designation
		FROM faculty_profiles WHERE id = $1
	`, id)
	var f model.FacultyProfile
	if err := row.Scan(&f.ID, &f.UserID, &f.DepartmentID, &f.Designation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// ListByScope returns entries for a department+semester ordered by day then
// period.
func (r *Repository) ListByScope(ctx context.Context, departmentID, semesterID string) ([]model.TimetableEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryCols+` FROM timetable_entries
		WHERE department_id = $1 AND semester_id = $2
		ORDER BY day_of_week ASC, period ASC
	`, departmentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.TimetableEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CreateEntry inserts the entry and its pair grant in one transaction. A
// unique-index violation on the slot maps to CONFLICT.
func (r *Repository) CreateEntry(ctx context.Context, e model.TimetableEntry) (model.TimetableEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TimetableEntry{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timetable_entries (`+entryCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.DayOfWeek, e.Period, e.SubjectID, e.FacultyID, e.Room, e.DepartmentID, e.SemesterID, e.AcademicYearID); err != nil {
		if isUniqueViolation(err) {
			return model.TimetableEntry{}, apperr.New(apperr.CodeConflict, "slot already occupied")
		}
		return model.TimetableEntry{}, err
	}
	if err := upsertPair(ctx, tx, e.FacultyID, e.SubjectID); err != nil {
		return model.TimetableEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.TimetableEntry{}, err
	}
	return e, nil
}

// UpdateEntry rewrites the entry, upserts its current pair and conditionally
// garbage-collects gcPair, all in one transaction.
func (r *Repository) UpdateEntry(ctx context.Context, e model.TimetableEntry, gcPair *model.FacultySubject) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE timetable_entries
		SET day_of_week = $2, period = $3, subject_id = $4, faculty_id = $5, room = $6
		WHERE id = $1
	`, e.ID, e.DayOfWeek, e.Period, e.SubjectID, e.FacultyID, e.Room); err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.CodeConflict, "slot already occupied")
		}
		return err
	}
	if err := upsertPair(ctx, tx, e.FacultyID, e.SubjectID); err != nil {
		return err
	}
	if gcPair != nil {
		if err := gcPairIfUnreferenced(ctx, tx, *gcPair); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteEntry removes the entry and garbage-collects its pair in one
// transaction.
func (r *Repository) DeleteEntry(ctx context.Context, id string, gcPair model.FacultySubject) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return err
	}
	if err := gcPairIfUnreferenced(ctx, tx, gcPair); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertPair(ctx context.Context, tx *sql.Tx, facultyID, subjectID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO faculty_subjects (faculty_id, subject_id)
		VALUES ($1, $2)
		ON CONFLICT (faculty_id, subject_id) DO NOTHING
	`, facultyID, subjectID)
	return err
}

// gcPairIfUnreferenced deletes the grant only while no entry references it.
// Running inside the caller's transaction closes the race between the
// reference check and the delete.
func gcPairIfUnreferenced(ctx context.Context, tx *sql.Tx, pair model.FacultySubject) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM faculty_subjects fs
		WHERE fs.faculty_id = $1 AND fs.subject_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM timetable_entries t
			WHERE t.faculty_id = fs.faculty_id AND t.subject_id = fs.subject_id
		  )
	`, pair.FacultyID, pair.SubjectID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
