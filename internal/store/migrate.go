package store

import "context"

// Migrate applies the schema. Statements are idempotent so the call is safe
// on every boot; the unique indexes back the natural keys the services rely
// on for upserts and conflict detection.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS departments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS academic_years (
			id TEXT PRIMARY KEY,
			year INT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS semesters (
			id TEXT PRIMARY KEY,
			number INT NOT NULL CHECK (number BETWEEN 1 AND 8),
			name TEXT NOT NULL,
			academic_year_id TEXT NOT NULL REFERENCES academic_years(id)
		)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			credits INT NOT NULL DEFAULT 0,
			type TEXT NOT NULL DEFAULT 'THEORY',
			department_id TEXT NOT NULL REFERENCES departments(id),
			semester_id TEXT NOT NULL REFERENCES semesters(id),
			is_mdc BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			department_id TEXT NOT NULL REFERENCES departments(id),
			designation TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS student_profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			department_id TEXT NOT NULL REFERENCES departments(id),
			semester_id TEXT NOT NULL REFERENCES semesters(id),
			enrollment_no TEXT NOT NULL UNIQUE,
			admission_year INT NOT NULL DEFAULT 0,
			current_year INT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_subjects (
			faculty_id TEXT NOT NULL REFERENCES faculty_profiles(id),
			subject_id TEXT NOT NULL REFERENCES subjects(id),
			PRIMARY KEY (faculty_id, subject_id)
		)`,
		`CREATE TABLE IF NOT EXISTS timetable_entries (
			id TEXT PRIMARY KEY,
			day_of_week INT NOT NULL CHECK (day_of_week BETWEEN 1 AND 6),
			period INT NOT NULL CHECK (period BETWEEN 1 AND 5),
			subject_id TEXT NOT NULL REFERENCES subjects(id),
			faculty_id TEXT NOT NULL REFERENCES faculty_profiles(id),
			room TEXT NOT NULL DEFAULT '',
			department_id TEXT NOT NULL REFERENCES departments(id),
			semester_id TEXT NOT NULL REFERENCES semesters(id),
			academic_year_id TEXT NOT NULL REFERENCES academic_years(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS timetable_slot_uniq
			ON timetable_entries (day_of_week, period, department_id, semester_id, academic_year_id)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES student_profiles(id),
			subject_id TEXT NOT NULL REFERENCES subjects(id),
			date DATE NOT NULL,
			period INT NOT NULL CHECK (period BETWEEN 1 AND 5),
			status TEXT NOT NULL,
			marked_by TEXT NOT NULL REFERENCES faculty_profiles(id),
			semester_id TEXT NOT NULL REFERENCES semesters(id),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (student_id, subject_id, date, period)
		)`,
		`CREATE TABLE IF NOT EXISTS mdc_courses (
			id TEXT PRIMARY KEY,
			home_department_id TEXT NOT NULL REFERENCES departments(id),
			mdc_department_id TEXT NOT NULL REFERENCES departments(id),
			year INT NOT NULL CHECK (year BETWEEN 1 AND 4),
			semester INT NOT NULL CHECK (semester BETWEEN 1 AND 2),
			course_name TEXT NOT NULL,
			faculty_id TEXT NOT NULL REFERENCES faculty_profiles(id),
			UNIQUE (home_department_id, mdc_department_id, year, semester)
		)`,
		`CREATE TABLE IF NOT EXISTS mdc_course_students (
			mdc_course_id TEXT NOT NULL REFERENCES mdc_courses(id),
			student_id TEXT NOT NULL REFERENCES student_profiles(id),
			PRIMARY KEY (mdc_course_id, student_id)
		)`,
		`CREATE TABLE IF NOT EXISTS mdc_attendance_records (
			id TEXT PRIMARY KEY,
			mdc_course_id TEXT NOT NULL REFERENCES mdc_courses(id),
			student_id TEXT NOT NULL REFERENCES student_profiles(id),
			date DATE NOT NULL,
			period INT NOT NULL CHECK (period BETWEEN 1 AND 5),
			status TEXT NOT NULL,
			marked_by TEXT NOT NULL REFERENCES faculty_profiles(id),
			UNIQUE (mdc_course_id, student_id, date, period)
		)`,
		`CREATE TABLE IF NOT EXISTS student_semester_history (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES student_profiles(id),
			semester_id TEXT NOT NULL REFERENCES semesters(id),
			changed_by TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			link TEXT NOT NULL DEFAULT '',
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
