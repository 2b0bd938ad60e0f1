package services

import (
	"context"
	"fmt"

	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/japanesestudent/learnplayer/internal/sessions"
	"go.uber.org/zap"
)

// Player event types accepted by HandleEvent
const (
	EventReady    = "ready"
	EventProgress = "progress"
	EventError    = "error"
)

// LessonCatalog provides the lessons of a course in playback order
type LessonCatalog interface {
	// GetLessons returns the flattened lessons of a published course.
	//
	// If the course does not exist or is not published, models.ErrCourseNotFound is returned.
	GetLessons(ctx context.Context, courseID string) ([]models.FlatLesson, error)
}

// ProgressStore is the durable store player sessions report lesson progress to
type ProgressStore interface {
	// IsEnrolled reports whether the learner is enrolled in the course.
	IsEnrolled(ctx context.Context, learner models.Learner, courseID string) (bool, error)
	// RecordProgress stores lesson progress of the learner.
	//
	// Values below 100 are accepted and ignored.
	RecordProgress(ctx context.Context, learner models.Learner, courseID, lessonID string, percent int) error
}

// SessionStore keeps open player sessions
type SessionStore interface {
	// Create registers a new session owned by the learner.
	Create(learner models.Learner, courseID string, controller *playback.Controller) (*sessions.Session, error)
	// Get returns the learner's session.
	//
	// Unknown, expired and foreign sessions all return sessions.ErrSessionNotFound.
	Get(id string, learner models.Learner) (*sessions.Session, error)
	// Delete removes the learner's session.
	Delete(id string, learner models.Learner) error
}

// PlayerEvent is an event posted by a player surface
type PlayerEvent struct {
	Type     string
	LessonID string
	Seq      uint64
	Percent  int
	Reason   string
}

// SessionView is a player session as returned to the surface
type SessionView struct {
	SessionID string `json:"sessionId"`
	CourseID  string `json:"courseId"`
	playback.View
}

// PlayerOptions configures the controllers created for player sessions
type PlayerOptions struct {
	Resolver *playback.Resolver
	Policy   playback.AdvancePolicy
	Hooks    playback.Hooks
}

type playerService struct {
	catalog  LessonCatalog
	progress ProgressStore
	sessions SessionStore
	opts     PlayerOptions
	logger   *zap.Logger
}

// NewPlayerService creates a new player service
func NewPlayerService(catalog LessonCatalog, progress ProgressStore, store SessionStore, opts PlayerOptions, logger *zap.Logger) *playerService {
	if opts.Resolver == nil {
		opts.Resolver = playback.NewResolver()
	}
	return &playerService{
		catalog:  catalog,
		progress: progress,
		sessions: store,
		opts:     opts,
		logger:   logger,
	}
}

// Start opens a player session over a course the learner is enrolled in
//
// The session starts at lessonID, or at the first lesson of the course when lessonID is empty.
func (s *playerService) Start(ctx context.Context, learner models.Learner, courseID, lessonID string) (*SessionView, error) {
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}

	enrolled, err := s.progress.IsEnrolled(ctx, learner, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, models.ErrNotEnrolled
	}

	lessons, err := s.catalog.GetLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}

	notifier := &sessionNotifier{store: s.progress, learner: learner, courseID: courseID}
	controller := playback.NewController(lessons, s.opts.Resolver, notifier, s.logger,
		playback.WithAdvancePolicy(s.opts.Policy),
		playback.WithHooks(s.opts.Hooks),
		playback.WithExternalOpener(&externalOpenLogger{logger: s.logger, learner: learner, courseID: courseID}),
	)

	if lessonID != "" {
		err = controller.LoadLesson(lessonID)
	} else {
		err = controller.LoadFirst()
	}
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(learner, courseID, controller)
	if err != nil {
		s.logger.Error("failed to create player session", zap.Error(err))
		return nil, fmt.Errorf("failed to create player session: %w", err)
	}

	s.logger.Info("player session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", learner.UserID()),
		zap.String("course_id", courseID),
	)
	return s.view(session, controller), nil
}

// Get returns the current state of a session
func (s *playerService) Get(learner models.Learner, sessionID string) (*SessionView, error) {
	return s.do(learner, sessionID, func(*playback.Controller) error {
		return nil
	})
}

// End closes a session
func (s *playerService) End(learner models.Learner, sessionID string) error {
	return s.sessions.Delete(sessionID, learner)
}

// LoadLesson switches the session to another lesson of its course
func (s *playerService) LoadLesson(learner models.Learner, sessionID, lessonID string) (*SessionView, error) {
	return s.do(learner, sessionID, func(c *playback.Controller) error {
		return c.LoadLesson(lessonID)
	})
}

// HandleEvent applies an event reported by the player surface
//
// Events are tied to the load identified by LessonID and Seq; events of earlier loads
// return playback.ErrStaleEvent and change nothing.
func (s *playerService) HandleEvent(ctx context.Context, learner models.Learner, sessionID string, event PlayerEvent) (*SessionView, error) {
	token := playback.LoadToken{LessonID: event.LessonID, Seq: event.Seq}

	var ev playback.Event
	switch event.Type {
	case EventReady:
		ev = playback.ReadyEvent{Token: token}
	case EventProgress:
		ev = playback.ProgressEvent{Token: token, Percent: event.Percent}
	case EventError:
		ev = playback.PlaybackErrorEvent{Token: token, Detail: event.Reason}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, event.Type)
	}

	return s.do(learner, sessionID, func(c *playback.Controller) error {
		return c.Handle(ctx, ev)
	})
}

// Complete marks the current lesson of the session as completed
func (s *playerService) Complete(ctx context.Context, learner models.Learner, sessionID string) (*SessionView, error) {
	return s.do(learner, sessionID, func(c *playback.Controller) error {
		return c.MarkComplete(ctx)
	})
}

// Advance moves the session to the next or previous lesson
func (s *playerService) Advance(ctx context.Context, learner models.Learner, sessionID string, dir playback.Direction) (*SessionView, error) {
	return s.do(learner, sessionID, func(c *playback.Controller) error {
		return c.Advance(ctx, dir)
	})
}

// Retry resolves the current lesson's video again
func (s *playerService) Retry(learner models.Learner, sessionID string) (*SessionView, error) {
	return s.do(learner, sessionID, func(c *playback.Controller) error {
		return c.Retry()
	})
}

// OpenExternal returns the raw video reference of a lesson the player could not embed
func (s *playerService) OpenExternal(learner models.Learner, sessionID string) (string, error) {
	session, err := s.sessions.Get(sessionID, learner)
	if err != nil {
		return "", err
	}

	var ref string
	err = session.Do(func(c *playback.Controller) error {
		var err error
		ref, err = c.OpenExternally()
		return err
	})
	return ref, err
}

// do runs fn on the session's controller and renders the resulting state
func (s *playerService) do(learner models.Learner, sessionID string, fn func(c *playback.Controller) error) (*SessionView, error) {
	session, err := s.sessions.Get(sessionID, learner)
	if err != nil {
		return nil, err
	}

	var view *SessionView
	err = session.Do(func(c *playback.Controller) error {
		if err := fn(c); err != nil {
			return err
		}
		view = s.view(session, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *playerService) view(session *sessions.Session, c *playback.Controller) *SessionView {
	return &SessionView{
		SessionID: session.ID,
		CourseID:  session.CourseID,
		View:      c.View(),
	}
}

// sessionNotifier forwards controller progress to the progress store on behalf of one learner and course
type sessionNotifier struct {
	store    ProgressStore
	learner  models.Learner
	courseID string
}

func (n *sessionNotifier) NotifyProgress(ctx context.Context, lessonID string, percent int) error {
	return n.store.RecordProgress(ctx, n.learner, n.courseID, lessonID, percent)
}

// externalOpenLogger records that a learner left the player to watch a video on its host
type externalOpenLogger struct {
	logger   *zap.Logger
	learner  models.Learner
	courseID string
}

func (o *externalOpenLogger) OpenExternal(ref string) {
	o.logger.Info("lesson video opened externally",
		zap.String("user_id", o.learner.UserID()),
		zap.String("course_id", o.courseID),
		zap.String("video_ref", ref),
	)
}
