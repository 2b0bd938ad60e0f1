package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/japanesestudent/learnplayer/internal/services"
	"github.com/japanesestudent/learnplayer/internal/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSessionID = "V1StGXR8_Z5jdHi6B-myT"

// mockPlayerService is a mock implementation of PlayerService
type mockPlayerService struct {
	view *services.SessionView
	ref  string
	err  error

	calls        []string
	gotSessionID string
	gotCourseID  string
	gotLessonID  string
	gotEvent     services.PlayerEvent
	gotDirection playback.Direction
}

func (m *mockPlayerService) record(call, sessionID string) {
	m.calls = append(m.calls, call)
	m.gotSessionID = sessionID
}

func (m *mockPlayerService) Start(ctx context.Context, learner models.Learner, courseID, lessonID string) (*services.SessionView, error) {
	m.record("Start", "")
	m.gotCourseID, m.gotLessonID = courseID, lessonID
	return m.view, m.err
}

func (m *mockPlayerService) Get(learner models.Learner, sessionID string) (*services.SessionView, error) {
	m.record("Get", sessionID)
	return m.view, m.err
}

func (m *mockPlayerService) End(learner models.Learner, sessionID string) error {
	m.record("End", sessionID)
	return m.err
}

func (m *mockPlayerService) LoadLesson(learner models.Learner, sessionID, lessonID string) (*services.SessionView, error) {
	m.record("LoadLesson", sessionID)
	m.gotLessonID = lessonID
	return m.view, m.err
}

func (m *mockPlayerService) HandleEvent(ctx context.Context, learner models.Learner, sessionID string, event services.PlayerEvent) (*services.SessionView, error) {
	m.record("HandleEvent", sessionID)
	m.gotEvent = event
	return m.view, m.err
}

func (m *mockPlayerService) Complete(ctx context.Context, learner models.Learner, sessionID string) (*services.SessionView, error) {
	m.record("Complete", sessionID)
	return m.view, m.err
}

func (m *mockPlayerService) Advance(ctx context.Context, learner models.Learner, sessionID string, dir playback.Direction) (*services.SessionView, error) {
	m.record("Advance", sessionID)
	m.gotDirection = dir
	return m.view, m.err
}

func (m *mockPlayerService) Retry(learner models.Learner, sessionID string) (*services.SessionView, error) {
	m.record("Retry", sessionID)
	return m.view, m.err
}

func (m *mockPlayerService) OpenExternal(learner models.Learner, sessionID string) (string, error) {
	m.record("OpenExternal", sessionID)
	return m.ref, m.err
}

func playerRouter(svc PlayerService, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	NewPlayerHandler(svc, zap.NewNop()).RegisterRoutes(r, authMiddleware)
	return r
}

func testSessionView() *services.SessionView {
	lesson := models.FlatLesson{Lesson: models.Lesson{ID: "l1", Title: "あ row"}}
	return &services.SessionView{
		SessionID: testSessionID,
		CourseID:  testCourseID,
		View: playback.View{
			State: playback.State{
				LessonID: "l1",
				Phase:    playback.PhasePlayable,
				Token:    playback.LoadToken{LessonID: "l1", Seq: 1},
			},
			Lesson:   &lesson,
			Position: 1,
			Total:    3,
			HasNext:  true,
		},
	}
}

func TestPlayerHandler_StartSession(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		svc            *mockPlayerService
		expectedStatus int
		expectCall     bool
	}{
		{
			name:           "success",
			body:           `{"courseId":"` + testCourseID + `","lessonId":"l2"}`,
			svc:            &mockPlayerService{view: testSessionView()},
			expectedStatus: http.StatusCreated,
			expectCall:     true,
		},
		{
			name:           "missing course id",
			body:           `{"lessonId":"l2"}`,
			svc:            &mockPlayerService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "course id is not a uuid",
			body:           `{"courseId":"kana"}`,
			svc:            &mockPlayerService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"courseId":`,
			svc:            &mockPlayerService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not enrolled",
			body:           `{"courseId":"` + testCourseID + `"}`,
			svc:            &mockPlayerService{err: models.ErrNotEnrolled},
			expectedStatus: http.StatusForbidden,
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, playerRouter(tt.svc, withLearner), http.MethodPost, "/player/sessions", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if !tt.expectCall {
				assert.Empty(t, tt.svc.calls)
				return
			}
			assert.Equal(t, testCourseID, tt.svc.gotCourseID)
		})
	}
}

func TestPlayerHandler_StartSessionResponse(t *testing.T) {
	svc := &mockPlayerService{view: testSessionView()}

	w := serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions", `{"courseId":"`+testCourseID+`","lessonId":"l2"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "l2", svc.gotLessonID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testSessionID, body["sessionId"])
	assert.Equal(t, "playable", body["phase"])
	assert.Equal(t, float64(1), body["position"])
	assert.Equal(t, true, body["hasNext"])
}

func TestPlayerHandler_ValidationErrorListsFields(t *testing.T) {
	svc := &mockPlayerService{}

	w := serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions/"+testSessionID+"/events", `{"type":"seek"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"type", "lessonId"}, fields)
	assert.Empty(t, svc.calls)
}

func TestPlayerHandler_HandleEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
		expectedEvent  services.PlayerEvent
	}{
		{
			name:           "progress",
			body:           `{"type":"progress","lessonId":"l1","seq":1,"percent":42}`,
			expectedStatus: http.StatusOK,
			expectedEvent:  services.PlayerEvent{Type: "progress", LessonID: "l1", Seq: 1, Percent: 42},
		},
		{
			name:           "error",
			body:           `{"type":"error","lessonId":"l1","seq":1,"reason":"embed blocked"}`,
			expectedStatus: http.StatusOK,
			expectedEvent:  services.PlayerEvent{Type: "error", LessonID: "l1", Seq: 1, Reason: "embed blocked"},
		},
		{
			name:           "stale event",
			body:           `{"type":"ready","lessonId":"l1","seq":0}`,
			err:            playback.ErrStaleEvent,
			expectedStatus: http.StatusConflict,
			expectedEvent:  services.PlayerEvent{Type: "ready", LessonID: "l1"},
		},
		{
			name:           "progress while unplayable",
			body:           `{"type":"progress","lessonId":"l1","seq":1,"percent":10}`,
			err:            playback.ErrNotPlayable,
			expectedStatus: http.StatusConflict,
			expectedEvent:  services.PlayerEvent{Type: "progress", LessonID: "l1", Seq: 1, Percent: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPlayerService{view: testSessionView(), err: tt.err}

			w := serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions/"+testSessionID+"/events", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, testSessionID, svc.gotSessionID)
			assert.Equal(t, tt.expectedEvent, svc.gotEvent)
		})
	}
}

func TestPlayerHandler_Advance(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
		expectCall     bool
	}{
		{
			name:           "next",
			body:           `{"direction":"next"}`,
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "boundary",
			body:           `{"direction":"previous"}`,
			err:            playback.ErrSequenceBoundary,
			expectedStatus: http.StatusConflict,
			expectCall:     true,
		},
		{
			name:           "unknown direction",
			body:           `{"direction":"sideways"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPlayerService{view: testSessionView(), err: tt.err}

			w := serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions/"+testSessionID+"/advance", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectCall {
				assert.Equal(t, []string{"Advance"}, svc.calls)
			} else {
				assert.Empty(t, svc.calls)
			}
		})
	}
}

func TestPlayerHandler_SessionRoutes(t *testing.T) {
	base := "/player/sessions/" + testSessionID
	tests := []struct {
		name           string
		method         string
		path           string
		err            error
		expectedStatus int
		expectedCall   string
	}{
		{name: "get", method: http.MethodGet, path: base, expectedStatus: http.StatusOK, expectedCall: "Get"},
		{name: "get unknown", method: http.MethodGet, path: base, err: sessions.ErrSessionNotFound, expectedStatus: http.StatusNotFound, expectedCall: "Get"},
		{name: "end", method: http.MethodDelete, path: base, expectedStatus: http.StatusNoContent, expectedCall: "End"},
		{name: "load lesson", method: http.MethodPost, path: base + "/lessons/l2", expectedStatus: http.StatusOK, expectedCall: "LoadLesson"},
		{name: "load unknown lesson", method: http.MethodPost, path: base + "/lessons/nope", err: playback.ErrLessonNotFound, expectedStatus: http.StatusNotFound, expectedCall: "LoadLesson"},
		{name: "complete", method: http.MethodPost, path: base + "/complete", expectedStatus: http.StatusOK, expectedCall: "Complete"},
		{name: "retry", method: http.MethodPost, path: base + "/retry", expectedStatus: http.StatusOK, expectedCall: "Retry"},
		{name: "retry while playable", method: http.MethodPost, path: base + "/retry", err: playback.ErrNotUnplayable, expectedStatus: http.StatusConflict, expectedCall: "Retry"},
		{name: "external without target", method: http.MethodPost, path: base + "/external", err: playback.ErrNoExternalTarget, expectedStatus: http.StatusConflict, expectedCall: "OpenExternal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPlayerService{view: testSessionView(), err: tt.err}

			w := serve(t, playerRouter(svc, withLearner), tt.method, tt.path, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, []string{tt.expectedCall}, svc.calls)
			assert.Equal(t, testSessionID, svc.gotSessionID)
		})
	}
}

func TestPlayerHandler_LoadLessonPassesLessonID(t *testing.T) {
	svc := &mockPlayerService{view: testSessionView()}

	serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions/"+testSessionID+"/lessons/l3", "")

	assert.Equal(t, "l3", svc.gotLessonID)
}

func TestPlayerHandler_OpenExternal(t *testing.T) {
	svc := &mockPlayerService{ref: "https://vimeo.com/76979871"}

	w := serve(t, playerRouter(svc, withLearner), http.MethodPost, "/player/sessions/"+testSessionID+"/external", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp ExternalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://vimeo.com/76979871", resp.URL)
}

func TestPlayerHandler_RequiresLearner(t *testing.T) {
	svc := &mockPlayerService{view: testSessionView()}

	w := serve(t, playerRouter(svc, passThrough), http.MethodGet, "/player/sessions/"+testSessionID, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.calls)
}
