package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := t[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type fakeNotificationSrv struct{}

func (fakeNotificationSrv) Notify(context.Context, models.Actor, models.NotifyRequest) (*models.NotifyResult, error) {
	return &models.NotifyResult{Recipients: []int64{1}}, nil
}

func (fakeNotificationSrv) ListMine(context.Context, models.Actor) ([]models.Notification, error) {
	return []models.Notification{}, nil
}

type fakeCourseSrv struct{}

func (fakeCourseSrv) ListCourses(context.Context, models.Actor) ([]models.Course, error) {
	return []models.Course{}, nil
}

type fakeAuthSrv struct{}

func (fakeAuthSrv) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.ErrInvalidCredentials
}

func (fakeAuthSrv) Me(_ context.Context, actor models.Actor) (*models.UserInfo, error) {
	return &models.UserInfo{ID: actor.UserID, Role: actor.Role}, nil
}

type fakeScheduleSrv struct{}

func (fakeScheduleSrv) UploadScheduleFile(context.Context, models.Actor, string) (*models.BatchResult, error) {
	return models.NewBatchResult(), nil
}

func (fakeScheduleSrv) UpdateResitInfo(_ context.Context, _ models.Actor, req models.ResitInfoUpdateRequest) (*models.ResitExam, error) {
	return &models.ResitExam{CourseID: req.CourseID}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens := tokenTable{"student": studentClaims, "instructor": instructorClaims, "secretary": secretaryClaims}
	SetupRoutes(router, "/api/v1", tokens, Handlers{
		Auth:          NewAuthHandler(fakeAuthSrv{}),
		Courses:       NewCourseHandler(fakeCourseSrv{}),
		Grades:        NewGradeHandler(&fakeGradeSrv{}, nil, UploadPolicy{}),
		Resits:        NewResitHandler(&fakeResitSrv{}, &fakeExporter{}),
		Schedule:      NewScheduleHandler(fakeScheduleSrv{}, nil, UploadPolicy{}),
		Notifications: NewNotificationHandler(fakeNotificationSrv{}),
		Dashboard:     NewDashboardHandler(&fakeDashboardSrv{}),
		Metrics:       NewMetricsHandler(nil, nil),
	}, false)
	return router
}

func TestRoutesEnforceRoles(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method, path, token, body string
		status                    int
	}{
		{http.MethodGet, "/health", "", "", http.StatusOK},
		{http.MethodGet, "/ready", "", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@uni.test","password":"x"}`, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/auth/me", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/auth/me", "forged", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/auth/me", "student", "", http.StatusOK},
		{http.MethodGet, "/api/v1/student/resit-exams", "student", "", http.StatusOK},
		{http.MethodGet, "/api/v1/student/resit-exams", "instructor", "", http.StatusForbidden},
		{http.MethodPost, "/api/v1/student/resit-registrations", "student", `{"course_id":100}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/instructor/resit-details", "secretary", `{"course_id":100}`, http.StatusForbidden},
		{http.MethodPatch, "/api/v1/faculty/resit-info", "secretary", `{"course_id":100,"location":"A1"}`, http.StatusOK},
		{http.MethodPatch, "/api/v1/faculty/resit-info", "instructor", `{"course_id":100}`, http.StatusForbidden},
		{http.MethodGet, "/api/v1/faculty/resit-exams", "student", "", http.StatusForbidden},
		{http.MethodPost, "/api/v1/notifications", "student", `{"message":"hi","target_user_id":2}`, http.StatusForbidden},
		{http.MethodPost, "/api/v1/notifications", "instructor", `{"message":"hi","target_user_id":2}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/notifications", "student", "", http.StatusOK},
		{http.MethodGet, "/api/v1/courses/100/resit-participants", "student", "", http.StatusForbidden},
		{http.MethodGet, "/api/v1/dashboard", "secretary", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%s %s as %q", tc.method, tc.path, tc.token)
	}
}
