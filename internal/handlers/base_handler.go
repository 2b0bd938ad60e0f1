package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/japanesestudent/learnplayer/internal/auth"
	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/japanesestudent/learnplayer/internal/services"
	"github.com/japanesestudent/learnplayer/internal/sessions"
	"github.com/japanesestudent/learnplayer/internal/validate"
	"go.uber.org/zap"
)

type BaseHandler struct {
	logger    *zap.Logger
	validator *validate.Validator
}

func newBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{
		logger:    logger,
		validator: validate.New(),
	}
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondServiceError maps a service error to its HTTP status.
// Unexpected errors are logged and reported without details.
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		h.respondError(w, status, "internal server error")
		return
	}
	h.respondError(w, status, err.Error())
}

// decodeJSON decodes the request body into dst and validates it.
// It writes the error response itself and reports whether the handler may continue.
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			h.respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  verr.Error(),
				"fields": verr.Fields,
			})
			return false
		}
		h.logger.Error("failed to validate request", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	return true
}

// learner extracts the authenticated learner from the request context
func (h *BaseHandler) learner(w http.ResponseWriter, r *http.Request) (models.Learner, bool) {
	learner, ok := auth.GetLearner(r.Context())
	if !ok {
		h.logger.Error("learner not found in context")
		h.respondError(w, http.StatusUnauthorized, "authentication required")
	}
	return learner, ok
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidLevel),
		errors.Is(err, services.ErrInvalidCourseID),
		errors.Is(err, services.ErrInvalidEvent),
		errors.Is(err, services.ErrLessonNotInCourse),
		errors.Is(err, playback.ErrUnknownDirection):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotEnrolled):
		return http.StatusForbidden
	case errors.Is(err, models.ErrCourseNotFound),
		errors.Is(err, sessions.ErrSessionNotFound),
		errors.Is(err, playback.ErrLessonNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyEnrolled),
		errors.Is(err, playback.ErrSequenceBoundary),
		errors.Is(err, playback.ErrNotPlayable),
		errors.Is(err, playback.ErrNotUnplayable),
		errors.Is(err, playback.ErrNoExternalTarget),
		errors.Is(err, playback.ErrStaleEvent),
		errors.Is(err, playback.ErrNoLesson):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
