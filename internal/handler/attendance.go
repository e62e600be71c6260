package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/model"
)

type markRecord struct {
	StudentID string                 `json:"student_id" binding:"required"`
	Period    int                    `json:"period" binding:"required,min=1,max=5"`
	Status    model.AttendanceStatus `json:"status" binding:"required,oneof=PRESENT ABSENT"`
}

type markRequest struct {
	SubjectID string       `json:"subject_id" binding:"required"`
	Date      string       `json:"date" binding:"required,notfuture"`
	Records   []markRecord `json:"records" binding:"required,min=1,dive"`
}

func (h *Handler) markAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		fail(c, err)
		return
	}

	claims, _ := auth.SessionFrom(c)
	in := attendance.MarkInput{SubjectID: req.SubjectID, Date: date}
	for _, rec := range req.Records {
		in.Records = append(in.Records, attendance.RecordInput{
			StudentID: rec.StudentID,
			Period:    rec.Period,
			Status:    rec.Status,
		})
	}

	res, err := h.attendance.Mark(c.Request.Context(), claims.UserID, claims.Role, in)
	attendanceMarks.WithLabelValues("regular", outcomeLabel(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": res.Count, "date": res.Date.Format(dateLayout)})
}

func (h *Handler) subjectAttendance(c *gin.Context) {
	subjectID := c.Query("subject")
	rawDate := c.Query("date")
	if subjectID == "" || rawDate == "" {
		failValidation(c, errMissingQuery("subject", "date"))
		return
	}
	date, err := parseDate(rawDate)
	if err != nil {
		fail(c, err)
		return
	}
	claims, _ := auth.SessionFrom(c)
	records, err := h.attendance.SubjectDay(c.Request.Context(), claims.UserID, claims.Role, subjectID, date)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"records": records})
}

func (h *Handler) studentSummary(c *gin.Context) {
	rows, err := h.attendance.StudentSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"subjects": rows})
}
