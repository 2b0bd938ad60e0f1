package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
)

// CatalogService is the interface that wraps methods for course catalog operations
type CatalogService interface {
	// ListCourses retrieves a page of published courses, newest first
	//
	// "level" is an optional level filter (Beginner, Intermediate, Advanced).
	// "search" is an optional search in course titles and descriptions.
	// "page" and "count" select the page; non-positive values fall back to defaults.
	//
	// Returns a list of courses and an error if any.
	ListCourses(ctx context.Context, level, search string, page, count int) ([]models.CourseListItem, error)
	// GetCourseOutline retrieves a published course with its ordered modules and lessons
	//
	// "courseID" is the ID of the course.
	//
	// Returns the course outline and an error if any.
	GetCourseOutline(ctx context.Context, courseID string) (*models.CourseOutline, error)
}

// CatalogHandler handles HTTP requests for the course catalog
type CatalogHandler struct {
	BaseHandler
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/courses", h.ListCourses)
	r.Get("/courses/{id}", h.GetCourse)
}

// ListCourses handles GET /courses
// @Summary List published courses
// @Description Get a paginated list of published courses, newest first, with optional level and search filters
// @Tags catalog
// @Produce json
// @Param level query string false "Course level (Beginner, Intermediate, Advanced)"
// @Param search query string false "Search in title and description"
// @Param page query int false "Page number (default: 1)"
// @Param count query int false "Items per page (default: 10)"
// @Success 200 {array} models.CourseListItem "List of courses"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Parse pagination; invalid values fall back to defaults
	page, _ := strconv.Atoi(query.Get("page"))
	count, _ := strconv.Atoi(query.Get("count"))

	courses, err := h.service.ListCourses(r.Context(), query.Get("level"), query.Get("search"), page, count)
	if err != nil {
		h.respondServiceError(w, err, "failed to list courses")
		return
	}

	h.respondJSON(w, http.StatusOK, courses)
}

// GetCourse handles GET /courses/{id}
// @Summary Get course outline
// @Description Get a published course with its ordered modules and lessons
// @Tags catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseOutline "Course outline"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Course not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	outline, err := h.service.GetCourseOutline(r.Context(), courseID)
	if err != nil {
		h.respondServiceError(w, err, "failed to get course outline")
		return
	}

	h.respondJSON(w, http.StatusOK, outline)
}
