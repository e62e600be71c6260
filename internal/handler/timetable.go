package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/model"
	"campustrack/internal/timetable"
)

type createEntryRequest struct {
	DayOfWeek      int    `json:"day_of_week" binding:"required,min=1,max=6"`
	Period         int    `json:"period" binding:"required,min=1,max=5"`
	SubjectID      string `json:"subject_id" binding:"required"`
	FacultyID      string `json:"faculty_id" binding:"required"`
	Room           string `json:"room"`
	DepartmentID   string `json:"department_id" binding:"required"`
	SemesterID     string `json:"semester_id" binding:"required"`
	AcademicYearID string `json:"academic_year_id" binding:"required"`
}

func (h *Handler) createTimetableEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	entry, err := h.timetable.Create(c.Request.Context(), model.TimetableEntry{
		DayOfWeek:      req.DayOfWeek,
		Period:         req.Period,
		SubjectID:      req.SubjectID,
		FacultyID:      req.FacultyID,
		Room:           req.Room,
		DepartmentID:   req.DepartmentID,
		SemesterID:     req.SemesterID,
		AcademicYearID: req.AcademicYearID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

type updateEntryRequest struct {
	DayOfWeek *int    `json:"day_of_week" binding:"omitempty,min=1,max=6"`
	Period    *int    `json:"period" binding:"omitempty,min=1,max=5"`
	SubjectID *string `json:"subject_id"`
	FacultyID *string `json:"faculty_id"`
	Room      *string `json:"room"`
}

func (h *Handler) updateTimetableEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	entry, err := h.timetable.Update(c.Request.Context(), c.Param("id"), timetable.Patch{
		DayOfWeek: req.DayOfWeek,
		Period:    req.Period,
		SubjectID: req.SubjectID,
		FacultyID: req.FacultyID,
		Room:      req.Room,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, entry)
}

func (h *Handler) deleteTimetableEntry(c *gin.Context) {
	id := c.Param("id")
	if err := h.timetable.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) departmentTimetable(c *gin.Context) {
	deptID := c.Query("dept")
	semID := c.Query("semester")
	if deptID == "" || semID == "" {
		failValidation(c, errMissingQuery("dept", "semester"))
		return
	}
	grid, err := h.timetable.Grid(c.Request.Context(), deptID, semID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"entries": grid})
}
