// Package handler wires the HTTP surface. Handlers bind and validate
// requests, call the services, and answer with the discriminated envelope:
// {"success": true, "data": ...} or {"success": false, "error": ..., "code": ...}.
package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"campustrack/internal/apperr"
	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/mdc"
	"campustrack/internal/model"
	"campustrack/internal/notify"
	"campustrack/internal/progression"
	"campustrack/internal/timetable"
)

const dateLayout = "2006-01-02"

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	cfg           config.App
	timetable     *timetable.Service
	attendance    *attendance.Service
	mdc           *mdc.Service
	progression   *progression.Engine
	notifications *notify.Repository
}

// New assembles a handler.
func New(cfg config.App, tt *timetable.Service, att *attendance.Service, mdcSvc *mdc.Service, prog *progression.Engine, notes *notify.Repository) *Handler {
	return &Handler{
		cfg:           cfg,
		timetable:     tt,
		attendance:    att,
		mdc:           mdcSvc,
		progression:   prog,
		notifications: notes,
	}
}

// RegisterValidations installs the custom rules on gin's validator engine.
// "notfuture" accepts a YYYY-MM-DD date no later than today.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return !t.After(time.Now())
	})
}

// Register mounts all routes.
func (h *Handler) Register(r *gin.Engine) {
	if h.cfg.DevTokens {
		r.POST("/v1/auth/token", h.issueDevToken)
	}

	authorized := r.Group("/v1", auth.Require(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	admin := authorized.Group("", auth.RequireRole(model.RoleAdmin))
	admin.POST("/timetable", h.createTimetableEntry)
	admin.PATCH("/timetable/:id", h.updateTimetableEntry)
	admin.DELETE("/timetable/:id", h.deleteTimetableEntry)
	admin.POST("/mdc/courses", h.upsertMDCCourse)
	admin.PUT("/mdc/courses/faculty", h.assignMDCFaculty)
	admin.POST("/progression", h.progressStudents)
	admin.GET("/progression/stats", h.progressionStats)

	faculty := authorized.Group("", auth.RequireRole(model.RoleFaculty))
	faculty.POST("/attendance", h.markAttendance)
	faculty.GET("/attendance", h.subjectAttendance)
	faculty.POST("/mdc/attendance", h.submitMDCAttendance)

	authorized.GET("/timetable", h.departmentTimetable)
	authorized.GET("/mdc/courses", h.mdcCoursesByHome)
	authorized.GET("/students/:id/summary", h.studentSummary)
	authorized.GET("/students/:id/daily", h.studentDaily)
	authorized.GET("/notifications", h.myNotifications)
}

func (h *Handler) issueDevToken(c *gin.Context) {
	var req struct {
		UserID string     `json:"user_id" binding:"required"`
		Role   model.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	if !req.Role.Valid() {
		fail(c, apperr.New(apperr.CodeValidation, "role must be ADMIN, FACULTY or STUDENT"))
		return
	}
	tokens, err := auth.Issue(req.UserID, req.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (h *Handler) myNotifications(c *gin.Context) {
	claims, _ := auth.SessionFrom(c)
	notes, err := h.notifications.ListByUser(c.Request.Context(), claims.UserID, 50)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"notifications": notes})
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(apperr.Status(ae.Code), gin.H{"success": false, "error": ae.Message, "code": ae.Code})
		return
	}
	log.Printf("handler: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "something went wrong", "code": apperr.CodeInternal})
}

func failValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": apperr.CodeValidation})
}

func errMissingQuery(params ...string) error {
	return fmt.Errorf("required query parameters: %s", strings.Join(params, ", "))
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.New(apperr.CodeValidation, "date must be YYYY-MM-DD")
	}
	return t, nil
}
