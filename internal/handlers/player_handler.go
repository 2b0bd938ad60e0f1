package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/japanesestudent/learnplayer/internal/services"
	"go.uber.org/zap"
)

// PlayerService is the interface that wraps methods for lesson player sessions
type PlayerService interface {
	// Start opens a player session over a course the learner is enrolled in
	//
	// "courseID" is the ID of the course.
	// "lessonID" is the lesson to open first; empty starts at the first lesson.
	//
	// Returns the session view and an error if any.
	Start(ctx context.Context, learner models.Learner, courseID, lessonID string) (*services.SessionView, error)
	// Get retrieves the current view of a session
	Get(learner models.Learner, sessionID string) (*services.SessionView, error)
	// End closes a session
	End(learner models.Learner, sessionID string) error
	// LoadLesson opens a lesson of the session's course
	LoadLesson(learner models.Learner, sessionID, lessonID string) (*services.SessionView, error)
	// HandleEvent applies an event reported by the player surface
	HandleEvent(ctx context.Context, learner models.Learner, sessionID string, event services.PlayerEvent) (*services.SessionView, error)
	// Complete marks the current lesson as completed
	Complete(ctx context.Context, learner models.Learner, sessionID string) (*services.SessionView, error)
	// Advance moves to the next or previous lesson
	Advance(ctx context.Context, learner models.Learner, sessionID string, dir playback.Direction) (*services.SessionView, error)
	// Retry resolves the current lesson's video again after a rejected embed
	Retry(learner models.Learner, sessionID string) (*services.SessionView, error)
	// OpenExternal returns the raw video reference of a lesson the player could not embed
	OpenExternal(learner models.Learner, sessionID string) (string, error)
}

// PlayerHandler handles HTTP requests for lesson player sessions
type PlayerHandler struct {
	BaseHandler
	service PlayerService
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(svc PlayerService, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// StartSessionRequest represents the request body for opening a player session
type StartSessionRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	LessonID string `json:"lessonId,omitempty"`
}

// PlayerEventRequest represents an event reported by the embedded player
type PlayerEventRequest struct {
	Type     string `json:"type" validate:"required,oneof=ready progress error"`
	LessonID string `json:"lessonId" validate:"required"`
	Seq      uint64 `json:"seq"`
	Percent  int    `json:"percent"`
	Reason   string `json:"reason,omitempty" validate:"max=500"`
}

// AdvanceRequest represents the request body for moving between lessons
type AdvanceRequest struct {
	Direction string `json:"direction" validate:"required,oneof=next previous"`
}

// ExternalResponse carries the video reference to open outside the player
type ExternalResponse struct {
	URL string `json:"url"`
}

// RegisterRoutes registers all player routes behind the auth middleware
func (h *PlayerHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/player/sessions", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.StartSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.EndSession)
			r.Post("/lessons/{lessonId}", h.LoadLesson)
			r.Post("/events", h.HandleEvent)
			r.Post("/complete", h.Complete)
			r.Post("/advance", h.Advance)
			r.Post("/retry", h.Retry)
			r.Post("/external", h.OpenExternal)
		})
	})
}

// StartSession handles POST /player/sessions
// @Summary Open a player session
// @Description Open a lesson player over an enrolled course, starting at the given lesson or the first one
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body StartSessionRequest true "Session request"
// @Success 201 {object} services.SessionView "Session"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not enrolled"
// @Failure 404 {object} map[string]string "Course or lesson not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /player/sessions [post]
func (h *PlayerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Start(r.Context(), learner, req.CourseID, req.LessonID)
	if err != nil {
		h.respondServiceError(w, err, "failed to start player session")
		return
	}

	h.respondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /player/sessions/{sid}
// @Summary Get a player session
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} services.SessionView "Session"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /player/sessions/{sid} [get]
func (h *PlayerHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(learner, chi.URLParam(r, "sid"))
	if err != nil {
		h.respondServiceError(w, err, "failed to get player session")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// EndSession handles DELETE /player/sessions/{sid}
// @Summary Close a player session
// @Tags player
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 204 "Session closed"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /player/sessions/{sid} [delete]
func (h *PlayerHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	if err := h.service.End(learner, chi.URLParam(r, "sid")); err != nil {
		h.respondServiceError(w, err, "failed to end player session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LoadLesson handles POST /player/sessions/{sid}/lessons/{lessonId}
// @Summary Open a lesson
// @Description Load a lesson of the session's course; progress starts over for the new load
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} services.SessionView "Session"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session or lesson not found"
// @Router /player/sessions/{sid}/lessons/{lessonId} [post]
func (h *PlayerHandler) LoadLesson(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	view, err := h.service.LoadLesson(learner, chi.URLParam(r, "sid"), chi.URLParam(r, "lessonId"))
	if err != nil {
		h.respondServiceError(w, err, "failed to load lesson")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// HandleEvent handles POST /player/sessions/{sid}/events
// @Summary Report a player event
// @Description Report a ready, progress or error event from the embedded player. Events for an earlier load are rejected.
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param request body PlayerEventRequest true "Player event"
// @Success 200 {object} services.SessionView "Session"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Stale event or invalid phase"
// @Router /player/sessions/{sid}/events [post]
func (h *PlayerHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	var req PlayerEventRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.HandleEvent(r.Context(), learner, chi.URLParam(r, "sid"), services.PlayerEvent{
		Type:     req.Type,
		LessonID: req.LessonID,
		Seq:      req.Seq,
		Percent:  req.Percent,
		Reason:   req.Reason,
	})
	if err != nil {
		h.respondServiceError(w, err, "failed to handle player event")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// Complete handles POST /player/sessions/{sid}/complete
// @Summary Mark the current lesson completed
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} services.SessionView "Session"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Lesson is not playable"
// @Router /player/sessions/{sid}/complete [post]
func (h *PlayerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	view, err := h.service.Complete(r.Context(), learner, chi.URLParam(r, "sid"))
	if err != nil {
		h.respondServiceError(w, err, "failed to complete lesson")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// Advance handles POST /player/sessions/{sid}/advance
// @Summary Move to the next or previous lesson
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param request body AdvanceRequest true "Direction"
// @Success 200 {object} services.SessionView "Session"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "No lesson in that direction"
// @Router /player/sessions/{sid}/advance [post]
func (h *PlayerHandler) Advance(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	var req AdvanceRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Advance(r.Context(), learner, chi.URLParam(r, "sid"), playback.Direction(req.Direction))
	if err != nil {
		h.respondServiceError(w, err, "failed to advance")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// Retry handles POST /player/sessions/{sid}/retry
// @Summary Retry a rejected video
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} services.SessionView "Session"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Lesson is not unplayable"
// @Router /player/sessions/{sid}/retry [post]
func (h *PlayerHandler) Retry(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	view, err := h.service.Retry(learner, chi.URLParam(r, "sid"))
	if err != nil {
		h.respondServiceError(w, err, "failed to retry lesson")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// OpenExternal handles POST /player/sessions/{sid}/external
// @Summary Watch the video outside the player
// @Description Get the original video reference of a lesson whose embed was rejected
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} ExternalResponse "Video reference"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "No external target"
// @Router /player/sessions/{sid}/external [post]
func (h *PlayerHandler) OpenExternal(w http.ResponseWriter, r *http.Request) {
	learner, ok := h.learner(w, r)
	if !ok {
		return
	}

	ref, err := h.service.OpenExternal(learner, chi.URLParam(r, "sid"))
	if err != nil {
		h.respondServiceError(w, err, "failed to open lesson externally")
		return
	}

	h.respondJSON(w, http.StatusOK, ExternalResponse{URL: ref})
}
