package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/mdc"
	"campustrack/internal/model"
)

type upsertCourseRequest struct {
	HomeDepartmentID string   `json:"home_department_id" binding:"required"`
	MDCDepartmentID  string   `json:"mdc_department_id" binding:"required"`
	Year             int      `json:"year" binding:"required,min=1,max=4"`
	Semester         int      `json:"semester" binding:"required,min=1,max=2"`
	CourseName       string   `json:"course_name" binding:"required"`
	StudentIDs       []string `json:"student_ids" binding:"required,min=1"`
	FacultyID        string   `json:"faculty_id"`
}

func (h *Handler) upsertMDCCourse(c *gin.Context) {
	var req upsertCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	course, err := h.mdc.UpsertCourse(c.Request.Context(), mdc.CourseInput{
		HomeDepartmentID: req.HomeDepartmentID,
		MDCDepartmentID:  req.MDCDepartmentID,
		Year:             req.Year,
		Semester:         req.Semester,
		CourseName:       req.CourseName,
		StudentIDs:       req.StudentIDs,
		FacultyID:        req.FacultyID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, course)
}

type assignFacultyRequest struct {
	HostDepartmentID string `json:"host_department_id" binding:"required"`
	Semester         int    `json:"semester" binding:"required,min=1,max=2"`
	FacultyID        string `json:"faculty_id" binding:"required"`
}

func (h *Handler) assignMDCFaculty(c *gin.Context) {
	var req assignFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	if err := h.mdc.AssignFacultyByHost(c.Request.Context(), req.HostDepartmentID, req.Semester, req.FacultyID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"faculty_id": req.FacultyID})
}

func (h *Handler) mdcCoursesByHome(c *gin.Context) {
	homeDeptID := c.Query("home_department")
	if homeDeptID == "" {
		failValidation(c, errMissingQuery("home_department"))
		return
	}
	courses, err := h.mdc.CoursesByHome(c.Request.Context(), homeDeptID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"courses": courses})
}

type mdcSubmitRecord struct {
	StudentID string                 `json:"student_id" binding:"required"`
	Period    int                    `json:"period" binding:"required,min=1,max=5"`
	Status    model.AttendanceStatus `json:"status" binding:"required,oneof=PRESENT ABSENT"`
}

type mdcSubmitRequest struct {
	MDCCourseID string            `json:"mdc_course_id" binding:"required"`
	Date        string            `json:"date" binding:"required,notfuture"`
	Records     []mdcSubmitRecord `json:"records" binding:"required,min=1,dive"`
}

func (h *Handler) submitMDCAttendance(c *gin.Context) {
	var req mdcSubmitRequest
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
	in := mdc.SubmitInput{MDCCourseID: req.MDCCourseID, Date: date}
	for _, rec := range req.Records {
		in.Records = append(in.Records, mdc.RecordInput{
			StudentID: rec.StudentID,
			Period:    rec.Period,
			Status:    rec.Status,
		})
	}

	err = h.mdc.SubmitAttendance(c.Request.Context(), claims.UserID, claims.Role, in)
	attendanceMarks.WithLabelValues("mdc", outcomeLabel(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": len(req.Records), "date": req.Date})
}

func (h *Handler) studentDaily(c *gin.Context) {
	rawDate := c.Query("date")
	if rawDate == "" {
		failValidation(c, errMissingQuery("date"))
		return
	}
	date, err := parseDate(rawDate)
	if err != nil {
		fail(c, err)
		return
	}
	blocks := h.mdc.DailyStatus(c.Request.Context(), c.Param("id"), date)
	ok(c, http.StatusOK, gin.H{"date": rawDate, "blocks": blocks})
}
