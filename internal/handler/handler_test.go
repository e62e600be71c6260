package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/model"
)

// happyAttStore resolves every lookup so requests reach the persistence
// step; what gets upserted is recorded for assertions.
type happyAttStore struct {
	upserted []model.AttendanceRecord
}

func (s *happyAttStore) FacultyByUser(_ context.Context, userID string) (*model.FacultyProfile, error) {
	return &model.FacultyProfile{ID: "fac-1", UserID: userID, DepartmentID: "dept-cs"}, nil
}

func (s *happyAttStore) GrantExists(context.Context, string, string) (bool, error) {
	return true, nil
}

func (s *happyAttStore) Subject(_ context.Context, id string) (*model.Subject, error) {
	return &model.Subject{ID: id, Code: "CS301", Name: "Operating Systems", SemesterID: "sem-3"}, nil
}

func (s *happyAttStore) ScheduledOn(context.Context, string, int, string) (bool, error) {
	return true, nil
}

func (s *happyAttStore) StudentsByIDs(_ context.Context, ids []string) ([]model.StudentProfile, error) {
	out := make([]model.StudentProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.StudentProfile{ID: id, UserID: "u-" + id, SemesterID: "sem-3"})
	}
	return out, nil
}

func (s *happyAttStore) UpsertRecords(_ context.Context, recs []model.AttendanceRecord) error {
	s.upserted = append(s.upserted, recs...)
	return nil
}

func (s *happyAttStore) SubjectDay(context.Context, string, time.Time) ([]model.AttendanceRecord, error) {
	return nil, nil
}

func (s *happyAttStore) StudentCounts(context.Context, string) ([]attendance.SubjectCounts, error) {
	return nil, nil
}

func testConfig() config.App {
	return config.App{
		Env:           "test",
		JWTIssuer:     "campustrack-test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		DevTokens:     true,
	}
}

func newTestRouter(t *testing.T, attStore attendance.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidations()

	cfg := testConfig()
	attSvc := attendance.NewService(attStore, nil)
	h := New(cfg, nil, attSvc, nil, nil, nil)

	r := gin.New()
	h.Register(r)
	return r
}

func bearerToken(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	cfg := testConfig()
	tokens, err := auth.Issue(userID, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	require.NoError(t, err)
	return "Bearer " + tokens.AccessToken
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func doJSON(r *gin.Engine, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, &happyAttStore{})

	w, env := doJSON(r, http.MethodGet, "/v1/timetable?dept=d&semester=s", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestRoleSeparation(t *testing.T) {
	r := newTestRouter(t, &happyAttStore{})
	facultyToken := bearerToken(t, "user-f1", model.RoleFaculty)

	w, env := doJSON(r, http.MethodPost, "/v1/progression", facultyToken, `{"current_semester_ids":["sem-1"]}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestDevTokenIssue(t *testing.T) {
	r := newTestRouter(t, &happyAttStore{})

	w, env := doJSON(r, http.MethodPost, "/v1/auth/token", "", `{"user_id":"user-1","role":"FACULTY"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.AccessToken)
}

func TestMarkAttendanceEndToEnd(t *testing.T) {
	store := &happyAttStore{}
	r := newTestRouter(t, store)
	token := bearerToken(t, "user-f1", model.RoleFaculty)

	body := `{
		"subject_id": "sub-os",
		"date": "2024-09-02",
		"records": [
			{"student_id": "stu-1", "period": 1, "status": "PRESENT"},
			{"student_id": "stu-2", "period": 1, "status": "ABSENT"}
		]
	}`
	w, env := doJSON(r, http.MethodPost, "/v1/attendance", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Len(t, store.upserted, 2)

	var data struct {
		Count int    `json:"count"`
		Date  string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Count)
	assert.Equal(t, "2024-09-02", data.Date)
}

func TestMarkAttendanceRejectsFutureDate(t *testing.T) {
	store := &happyAttStore{}
	r := newTestRouter(t, store)
	token := bearerToken(t, "user-f1", model.RoleFaculty)

	body := `{
		"subject_id": "sub-os",
		"date": "2100-01-01",
		"records": [{"student_id": "stu-1", "period": 1, "status": "PRESENT"}]
	}`
	w, env := doJSON(r, http.MethodPost, "/v1/attendance", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Empty(t, store.upserted)
}

func TestMarkAttendanceStudentsCannotMark(t *testing.T) {
	r := newTestRouter(t, &happyAttStore{})
	token := bearerToken(t, "user-s1", model.RoleStudent)

	w, env := doJSON(r, http.MethodPost, "/v1/attendance", token, `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)
}
