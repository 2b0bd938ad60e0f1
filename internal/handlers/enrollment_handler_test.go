package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockEnrollmentService is a mock implementation of EnrollmentService
type mockEnrollmentService struct {
	enrollment *models.Enrollment
	dashboard  *models.Dashboard
	progress   *models.CourseProgress
	err        error

	gotLearner  models.Learner
	gotCourseID string
}

func (m *mockEnrollmentService) Enroll(ctx context.Context, learner models.Learner, courseID string) (*models.Enrollment, error) {
	m.gotLearner, m.gotCourseID = learner, courseID
	return m.enrollment, m.err
}

func (m *mockEnrollmentService) GetDashboard(ctx context.Context, learner models.Learner) (*models.Dashboard, error) {
	m.gotLearner = learner
	return m.dashboard, m.err
}

func (m *mockEnrollmentService) GetProgress(ctx context.Context, learner models.Learner, courseID string) (*models.CourseProgress, error) {
	m.gotLearner, m.gotCourseID = learner, courseID
	return m.progress, m.err
}

func enrollmentRouter(svc EnrollmentService, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	NewEnrollmentHandler(svc, zap.NewNop()).RegisterRoutes(r, authMiddleware)
	return r
}

func TestEnrollmentHandler_Enroll(t *testing.T) {
	tests := []struct {
		name           string
		svc            *mockEnrollmentService
		expectedStatus int
	}{
		{
			name:           "success",
			svc:            &mockEnrollmentService{enrollment: &models.Enrollment{ID: 1, UserID: testLearner.UserID(), CourseID: testCourseID}},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "already enrolled",
			svc:            &mockEnrollmentService{err: models.ErrAlreadyEnrolled},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "course not published",
			svc:            &mockEnrollmentService{err: models.ErrCourseNotFound},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, enrollmentRouter(tt.svc, withLearner), http.MethodPost, "/courses/"+testCourseID+"/enroll", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, testLearner, tt.svc.gotLearner)
			assert.Equal(t, testCourseID, tt.svc.gotCourseID)
		})
	}
}

func TestEnrollmentHandler_RequiresLearner(t *testing.T) {
	svc := &mockEnrollmentService{}
	r := enrollmentRouter(svc, passThrough)

	for _, path := range []string{"/courses/" + testCourseID + "/progress", "/enrollments"} {
		w := serve(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	assert.Equal(t, models.Learner{}, svc.gotLearner)
}

func TestEnrollmentHandler_GetDashboard(t *testing.T) {
	svc := &mockEnrollmentService{dashboard: &models.Dashboard{
		Stats: models.DashboardStats{EnrolledCourses: 2, CompletedCourses: 1, AverageProgress: 75},
		Enrollments: []models.EnrollmentListItem{
			{CourseID: testCourseID, Progress: 100},
			{CourseID: "c2", Progress: 50},
		},
	}}

	w := serve(t, enrollmentRouter(svc, withLearner), http.MethodGet, "/enrollments", "")

	require.Equal(t, http.StatusOK, w.Code)
	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, 75, dashboard.Stats.AverageProgress)
	assert.Len(t, dashboard.Enrollments, 2)
}

func TestEnrollmentHandler_GetProgress(t *testing.T) {
	tests := []struct {
		name           string
		svc            *mockEnrollmentService
		expectedStatus int
	}{
		{
			name: "success",
			svc: &mockEnrollmentService{progress: &models.CourseProgress{
				CourseID:         testCourseID,
				Progress:         50,
				CompletedLessons: []string{"l1"},
				TotalLessons:     2,
			}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not enrolled",
			svc:            &mockEnrollmentService{err: models.ErrNotEnrolled},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, enrollmentRouter(tt.svc, withLearner), http.MethodGet, "/courses/"+testCourseID+"/progress", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var progress models.CourseProgress
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
				assert.Equal(t, 50, progress.Progress)
				assert.Equal(t, []string{"l1"}, progress.CompletedLessons)
			}
		})
	}
}
