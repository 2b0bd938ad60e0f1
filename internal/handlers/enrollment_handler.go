package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
)

// EnrollmentService is the interface that wraps methods for enrollment operations
type EnrollmentService interface {
	// Enroll enrolls the learner in a published course
	//
	// Returns models.ErrCourseNotFound for unknown or unpublished courses
	// and models.ErrAlreadyEnrolled for a second enrollment.
	Enroll(ctx context.Context, learner models.Learner, courseID string) (*models.Enrollment, error)
	// GetDashboard retrieves the learner's enrollments and aggregate figures
	GetDashboard(ctx context.Context, learner models.Learner) (*models.Dashboard, error)
	// GetProgress retrieves the learner's progress in a course
	//
	// Returns models.ErrNotEnrolled when the learner is not enrolled.
	GetProgress(ctx context.Context, learner models.Learner, courseID string) (*models.CourseProgress, error)
}

// EnrollmentHandler handles HTTP requests for enrollments and course progress
type EnrollmentHandler struct {
	BaseHandler
	service EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(svc EnrollmentService, logger *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all enrollment routes behind the auth middleware
func (h *EnrollmentHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/courses/{id}/enroll", h.Enroll)
		r.Get("/courses/{id}/progress", h.GetProgress)
		r.Get("/enrollments", h.GetDashboard)
	})
}

// Enroll handles POST /courses/{id}/enroll
// @Summary Enroll in a course
// @Description Enroll the authenticated learner in a published course
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Success 201 {object} models.Enrollment "Created enrollment"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Course not found"
// @Failure 409 {object} map[string]string "Already enrolled"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	enrollment, err := h.service.Enroll(r.Context(), learner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err, "failed to enroll")
		return
	}

	h.respondJSON(w, http.StatusCreated, enrollment)
}

// GetDashboard handles GET /enrollments
// @Summary Get learner dashboard
// @Description Get the authenticated learner's enrollments with enrolled, completed and average progress figures
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.Dashboard "Dashboard"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /enrollments [get]
func (h *EnrollmentHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	dashboard, err := h.service.GetDashboard(r.Context(), learner)
	if err != nil {
		h.respondServiceError(w, err, "failed to get dashboard")
		return
	}

	h.respondJSON(w, http.StatusOK, dashboard)
}

// GetProgress handles GET /courses/{id}/progress
// @Summary Get course progress
// @Description Get the authenticated learner's progress and completed lessons in a course
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseProgress "Course progress"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not enrolled"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /courses/{id}/progress [get]
func (h *EnrollmentHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	progress, err := h.service.GetProgress(r.Context(), learner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err, "failed to get course progress")
		return
	}

	h.respondJSON(w, http.StatusOK, progress)
}
