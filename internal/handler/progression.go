package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/progression"
)

type progressRequest struct {
	CurrentSemesterIDs []string `json:"current_semester_ids" binding:"required,min=1"`
	DepartmentID       string   `json:"department_id"`
	ExcludeStudentIDs  []string `json:"exclude_student_ids"`
	DryRun             bool     `json:"dry_run"`
}

func (h *Handler) progressStudents(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	criteria := progression.Criteria{
		CurrentSemesterIDs: req.CurrentSemesterIDs,
		DepartmentID:       req.DepartmentID,
		ExcludeStudentIDs:  req.ExcludeStudentIDs,
	}

	if req.DryRun {
		res, err := h.progression.DryRun(c.Request.Context(), criteria)
		progressionRuns.WithLabelValues("dry_run", outcomeLabel(err)).Inc()
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"dry_run": true, "summary": res.Summary})
		return
	}

	claims, _ := auth.SessionFrom(c)
	res, err := h.progression.Execute(c.Request.Context(), claims.UserID, criteria)
	progressionRuns.WithLabelValues("execute", outcomeLabel(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"dry_run": false, "summary": res.Summary})
}

func (h *Handler) progressionStats(c *gin.Context) {
	stats, err := h.progression.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}
