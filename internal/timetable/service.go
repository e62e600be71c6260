// Package timetable owns the weekly grid and the derived faculty-subject
// authorization index. A faculty_subjects row exists iff at least one grid
// entry references the pair; every mutation here maintains that invariant
// inside the same transaction as the triggering write.
package timetable

import (
	"context"
	"fmt"

	"campustrack/internal/apperr"
	"campustrack/internal/model"
)

// Store is the persistence surface the registry needs. Mutating methods are
// transactional: the entry write and the index maintenance either both land
// or neither does.
type Store interface {
	Entry(ctx context.Context, id string) (*model.TimetableEntry, error)
	SlotTaken(ctx context.Context, e model.TimetableEntry, excludeID string) (bool, error)
	Subject(ctx context.Context, id string) (*model.Subject, error)
	Faculty(ctx context.Context, id string) (*model.FacultyProfile, error)
	ListByScope(ctx context.Context, departmentID, semesterID string) ([]model.TimetableEntry, error)

	// CreateEntry inserts the entry and upserts its (faculty, subject) pair.
	CreateEntry(ctx context.Context, e model.TimetableEntry) (model.TimetableEntry, error)
	// UpdateEntry rewrites the entry, upserts its current pair and, when
	// gcPair is non-nil, deletes that pair unless another entry still
	// references it.
	UpdateEntry(ctx context.Context, e model.TimetableEntry, gcPair *model.FacultySubject) error
	// DeleteEntry removes the entry and garbage-collects its pair the same
	// way.
	DeleteEntry(ctx context.Context, id string, gcPair model.FacultySubject) error
}

// ColorSource resolves a subject's persistent display color.
type ColorSource interface {
	Color(ctx context.Context, subjectID string) string
}

// Service implements the timetable registry operations.
type Service struct {
	store  Store
	colors ColorSource
}

// NewService creates a registry service.
func NewService(store Store, colors ColorSource) *Service {
	return &Service{store: store, colors: colors}
}

// Patch carries the optional fields of an update.
type Patch struct {
	DayOfWeek *int
	Period    *int
	SubjectID *string
	FacultyID *string
	Room      *string
}

// GridEntry is a timetable entry annotated for display.
type GridEntry struct {
	model.TimetableEntry
	SubjectName string `json:"subject_name"`
	SubjectCode string `json:"subject_code"`
	Color       string `json:"color"`
}

// Create validates and inserts a grid entry, deriving the faculty-subject
// grant as a side effect.
func (s *Service) Create(ctx context.Context, e model.TimetableEntry) (model.TimetableEntry, error) {
	if err := s.validateRefs(ctx, e); err != nil {
		return model.TimetableEntry{}, err
	}
	taken, err := s.store.SlotTaken(ctx, e, "")
	if err != nil {
		return model.TimetableEntry{}, err
	}
	if taken {
		return model.TimetableEntry{}, apperr.New(apperr.CodeConflict, "slot already occupied")
	}
	return s.store.CreateEntry(ctx, e)
}

// Update applies a partial edit. When the (faculty, subject) pair changes,
// the old pair is garbage-collected unless another entry still holds it.
func (s *Service) Update(ctx context.Context, id string, p Patch) (model.TimetableEntry, error) {
	prev, err := s.store.Entry(ctx, id)
	if err != nil {
		return model.TimetableEntry{}, err
	}
	if prev == nil {
		return model.TimetableEntry{}, apperr.New(apperr.CodeNotFound, "timetable entry not found")
	}

	updated := *prev
	if p.DayOfWeek != nil {
		updated.DayOfWeek = *p.DayOfWeek
	}
	if p.Period != nil {
		updated.Period = *p.Period
	}
	if p.SubjectID != nil {
		updated.SubjectID = *p.SubjectID
	}
	if p.FacultyID != nil {
		updated.FacultyID = *p.FacultyID
	}
	if p.Room != nil {
		updated.Room = *p.Room
	}

	if err := s.validateRefs(ctx, updated); err != nil {
		return model.TimetableEntry{}, err
	}
	if updated.DayOfWeek != prev.DayOfWeek || updated.Period != prev.Period {
		taken, err := s.store.SlotTaken(ctx, updated, id)
		if err != nil {
			return model.TimetableEntry{}, err
		}
		if taken {
			return model.TimetableEntry{}, apperr.New(apperr.CodeConflict, "slot already occupied")
		}
	}

	var gcPair *model.FacultySubject
	if updated.FacultyID != prev.FacultyID || updated.SubjectID != prev.SubjectID {
		gcPair = &model.FacultySubject{FacultyID: prev.FacultyID, SubjectID: prev.SubjectID}
	}
	if err := s.store.UpdateEntry(ctx, updated, gcPair); err != nil {
		return model.TimetableEntry{}, err
	}
	return updated, nil
}

// Delete removes an entry and revokes the pair grant when this was its last
// reference.
func (s *Service) Delete(ctx context.Context, id string) error {
	prev, err := s.store.Entry(ctx, id)
	if err != nil {
		return err
	}
	if prev == nil {
		return apperr.New(apperr.CodeNotFound, "timetable entry not found")
	}
	return s.store.DeleteEntry(ctx, id, model.FacultySubject{FacultyID: prev.FacultyID, SubjectID: prev.SubjectID})
}

// Grid returns the weekly grid for a department+semester, ordered by day
// then period, annotated with display colors.
func (s *Service) Grid(ctx context.Context, departmentID, semesterID string) ([]GridEntry, error) {
	entries, err := s.store.ListByScope(ctx, departmentID, semesterID)
	if err != nil {
		return nil, err
	}
	out := make([]GridEntry, 0, len(entries))
	for _, e := range entries {
		ge := GridEntry{TimetableEntry: e}
		if subj, err := s.store.Subject(ctx, e.SubjectID); err == nil && subj != nil {
			ge.SubjectName = subj.Name
			ge.SubjectCode = subj.Code
		}
		if s.colors != nil {
			ge.Color = s.colors.Color(ctx, e.SubjectID)
		}
		out = append(out, ge)
	}
	return out, nil
}

func (s *Service) validateRefs(ctx context.Context, e model.TimetableEntry) error {
	if e.DayOfWeek < 1 || e.DayOfWeek > 6 {
		return apperr.New(apperr.CodeValidation, "day of week must be 1 (Mon) to 6 (Sat)")
	}
	if e.Period < model.MinPeriod || e.Period > model.MaxPeriod {
		return apperr.New(apperr.CodeValidation, fmt.Sprintf("period must be %d to %d", model.MinPeriod, model.MaxPeriod))
	}
	subj, err := s.store.Subject(ctx, e.SubjectID)
	if err != nil {
		return err
	}
	if subj == nil {
		return apperr.New(apperr.CodeNotFound, "subject not found")
	}
	if subj.DepartmentID != e.DepartmentID || subj.SemesterID != e.SemesterID {
		return apperr.New(apperr.CodeNotFound, "subject does not belong to this department and semester")
	}
	fac, err := s.store.Faculty(ctx, e.FacultyID)
	if err != nil {
		return err
	}
	if fac == nil {
		return apperr.New(apperr.CodeNotFound, "faculty not found")
	}
	if fac.DepartmentID != e.DepartmentID {
		return apperr.New(apperr.CodeNotFound, "faculty does not belong to this department")
	}
	return nil
}
