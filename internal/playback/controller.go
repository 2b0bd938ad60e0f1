package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
)

// CompletionThreshold is the playback percentage at which a lesson completes on its own
const CompletionThreshold = 90

var (
	// ErrLessonNotFound is returned when a lesson ID is not part of the course sequence.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrNoLesson is returned by operations that need a loaded lesson while the controller is idle.
	ErrNoLesson = errors.New("no lesson loaded")
	// ErrNotPlayable is returned when progress is reported outside the playable phase.
	ErrNotPlayable = errors.New("lesson is not playable")
	// ErrNotUnplayable is returned by Retry outside the unplayable phase.
	ErrNotUnplayable = errors.New("lesson is not unplayable")
	// ErrSequenceBoundary is returned by Advance past the first or last lesson.
	ErrSequenceBoundary = errors.New("no such lesson")
	// ErrNoExternalTarget is returned when there is nothing to open outside the player.
	ErrNoExternalTarget = errors.New("lesson has no external video target")
	// ErrStaleEvent is returned for surface events issued for an earlier lesson load.
	ErrStaleEvent = errors.New("event belongs to a previous lesson load")
	// ErrUnknownDirection is returned by Advance for directions other than Next and Previous.
	ErrUnknownDirection = errors.New("unknown direction")
)

// ProgressNotifier receives lesson progress from the controller.
// It is the durable progress store; the controller only notifies it.
type ProgressNotifier interface {
	// NotifyProgress records that the learner reached percent of the lesson.
	NotifyProgress(ctx context.Context, lessonID string, percent int) error
}

// ExternalOpener opens a raw video reference outside the player, e.g. in a new browser tab
type ExternalOpener interface {
	OpenExternal(ref string)
}

// Hooks are optional observers of controller transitions
type Hooks struct {
	Resolved   func(lessonID string, res Resolution)
	Completed  func(lessonID string, trigger CompletionTrigger)
	StaleEvent func()
}

// State is the playback state of the currently loaded lesson
type State struct {
	LessonID        string     `json:"lessonId,omitempty"`
	Phase           Phase      `json:"phase"`
	Resolution      Resolution `json:"resolution"`
	ProgressPercent int        `json:"progressPercent"`
	Completed       bool       `json:"completed"`
	Ready           bool       `json:"ready"`
	Token           LoadToken  `json:"token"`
}

// Controller drives playback of one course's lessons.
//
// A Controller is not safe for concurrent use; callers serialize access.
type Controller struct {
	lessons  []models.FlatLesson
	index    int
	seq      uint64
	state    State
	resolver *Resolver
	notifier ProgressNotifier
	opener   ExternalOpener
	policy   AdvancePolicy
	hooks    Hooks
	logger   *zap.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithAdvancePolicy sets how unfinished lessons are treated on Advance(Next)
func WithAdvancePolicy(p AdvancePolicy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithExternalOpener sets the capability used by OpenExternally
func WithExternalOpener(o ExternalOpener) Option {
	return func(c *Controller) {
		c.opener = o
	}
}

// WithHooks sets transition observers
func WithHooks(h Hooks) Option {
	return func(c *Controller) {
		c.hooks = h
	}
}

// NewController creates an idle controller over the flattened lesson sequence of a course
func NewController(lessons []models.FlatLesson, resolver *Resolver, notifier ProgressNotifier, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		lessons:  lessons,
		index:    -1,
		resolver: resolver,
		notifier: notifier,
		policy:   CompleteOnAdvance,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type nopNotifier struct{}

func (nopNotifier) NotifyProgress(context.Context, string, int) error { return nil }

// State returns a copy of the current playback state
func (c *Controller) State() State {
	return c.state
}

// Lessons returns the flattened lesson sequence
func (c *Controller) Lessons() []models.FlatLesson {
	return c.lessons
}

// Current returns the loaded lesson
func (c *Controller) Current() (models.FlatLesson, bool) {
	if c.index < 0 {
		return models.FlatLesson{}, false
	}
	return c.lessons[c.index], true
}

// LoadLesson points the controller at a lesson of the sequence.
// Progress from the previous load is discarded and the lesson's video is resolved.
func (c *Controller) LoadLesson(lessonID string) error {
	for i := range c.lessons {
		if c.lessons[i].ID == lessonID {
			c.load(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
}

// LoadFirst loads the first lesson of the sequence
func (c *Controller) LoadFirst() error {
	if len(c.lessons) == 0 {
		return ErrNoLesson
	}
	c.load(0)
	return nil
}

func (c *Controller) load(index int) {
	c.index = index
	c.state = State{LessonID: c.lessons[index].ID}
	c.resolve()
}

// resolve starts a new load of the current lesson: a fresh token, Loading, then the resolver's verdict
func (c *Controller) resolve() {
	c.seq++
	lesson := c.lessons[c.index]
	c.state.Token = LoadToken{LessonID: lesson.ID, Seq: c.seq}
	c.state.Phase = PhaseLoading
	c.state.Ready = false
	c.state.Resolution = Resolution{Status: StatusUnresolved}

	res := c.resolver.Resolve(lesson.VideoURL)
	c.state.Resolution = res
	if res.Playable() {
		c.state.Phase = PhasePlayable
	} else {
		c.state.Phase = PhaseUnplayable
		c.logger.Debug("lesson video unplayable",
			zap.String("lesson_id", lesson.ID),
			zap.String("reason", string(res.Reason)),
		)
	}

	if c.hooks.Resolved != nil {
		c.hooks.Resolved(lesson.ID, res)
	}
}

// ReportProgress records playback progress for the loaded lesson.
// Progress never decreases; reaching CompletionThreshold completes the lesson once.
func (c *Controller) ReportProgress(ctx context.Context, percent int) error {
	if c.state.Phase != PhasePlayable {
		return ErrNotPlayable
	}

	percent = clampPercent(percent)
	if percent > c.state.ProgressPercent {
		c.state.ProgressPercent = percent
	}
	if percent >= CompletionThreshold && !c.state.Completed {
		c.complete(ctx, TriggerThreshold)
	}
	return nil
}

// MarkComplete completes the loaded lesson on the learner's request
func (c *Controller) MarkComplete(ctx context.Context) error {
	if c.state.Phase != PhasePlayable {
		return ErrNotPlayable
	}
	if !c.state.Completed {
		c.complete(ctx, TriggerManual)
	}
	return nil
}

// complete marks the current lesson completed and notifies the progress store.
// Notification failures are logged; completion is not retried.
func (c *Controller) complete(ctx context.Context, trigger CompletionTrigger) {
	c.state.Completed = true
	c.state.ProgressPercent = 100

	lessonID := c.state.LessonID
	if err := c.notifier.NotifyProgress(ctx, lessonID, 100); err != nil {
		c.logger.Error("failed to notify lesson completion",
			zap.String("lesson_id", lessonID),
			zap.String("trigger", string(trigger)),
			zap.Error(err),
		)
	}
	if c.hooks.Completed != nil {
		c.hooks.Completed(lessonID, trigger)
	}
}

// Advance loads the lesson next to or before the current one.
// At a sequence boundary it returns ErrSequenceBoundary and leaves the state unchanged.
func (c *Controller) Advance(ctx context.Context, dir Direction) error {
	if c.index < 0 {
		return ErrNoLesson
	}

	var target int
	switch dir {
	case Next:
		target = c.index + 1
	case Previous:
		target = c.index - 1
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}
	if target < 0 || target >= len(c.lessons) {
		return ErrSequenceBoundary
	}

	if dir == Next && !c.state.Completed && c.policy == CompleteOnAdvance {
		c.complete(ctx, TriggerAdvance)
	}

	c.load(target)
	return nil
}

// Retry resolves the current lesson's video again after it was found unplayable.
// Progress and completion of the lesson are kept.
func (c *Controller) Retry() error {
	if c.state.Phase != PhaseUnplayable {
		return ErrNotUnplayable
	}
	c.resolve()
	return nil
}

// Handle applies an event from the embedding surface.
// Events carrying a token of an earlier load are discarded with ErrStaleEvent.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	if c.index < 0 {
		return ErrNoLesson
	}
	if ev.token() != c.state.Token {
		if c.hooks.StaleEvent != nil {
			c.hooks.StaleEvent()
		}
		return ErrStaleEvent
	}

	switch e := ev.(type) {
	case ReadyEvent:
		if c.state.Phase == PhasePlayable {
			c.state.Ready = true
		}
		return nil
	case ProgressEvent:
		return c.ReportProgress(ctx, e.Percent)
	case PlaybackErrorEvent:
		c.reject(e.Detail)
		return nil
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// reject downgrades a playable load after the surface failed to render it.
// The downgrade is terminal for the load.
func (c *Controller) reject(detail string) {
	if c.state.Phase != PhasePlayable {
		return
	}

	c.state.Phase = PhaseUnplayable
	c.state.Ready = false
	c.state.Resolution = unplayable(ReasonEmbedRejected)

	c.logger.Warn("lesson video embed rejected",
		zap.String("lesson_id", c.state.LessonID),
		zap.String("detail", detail),
	)
	if c.hooks.Resolved != nil {
		c.hooks.Resolved(c.state.LessonID, c.state.Resolution)
	}
}

// ExternalTarget returns the raw reference that can be opened outside the player.
// Only loads rejected by the surface have one: missing or unrecognized references do not.
func (c *Controller) ExternalTarget() (string, bool) {
	lesson, ok := c.Current()
	if !ok {
		return "", false
	}
	if c.state.Phase != PhaseUnplayable || c.state.Resolution.Reason != ReasonEmbedRejected {
		return "", false
	}
	return lesson.VideoURL, true
}

// OpenExternally hands the raw reference to the external opener, if one is configured,
// and returns it
func (c *Controller) OpenExternally() (string, error) {
	ref, ok := c.ExternalTarget()
	if !ok {
		return "", ErrNoExternalTarget
	}
	if c.opener != nil {
		c.opener.OpenExternal(ref)
	}
	return ref, nil
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
