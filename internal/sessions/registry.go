// Package sessions keeps the open lesson player sessions of all learners in memory
package sessions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/japanesestudent/learnplayer/internal/playback"
	gonanoid "github.com/matoous/go-nanoid"
	"go.uber.org/zap"
)

// IDLength is the length of generated session IDs
const IDLength = 21

// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
// Sessions of other learners are reported the same way as missing ones.
var ErrSessionNotFound = errors.New("player session not found")

// Session is one learner's player over one course.
// The controller is only reachable through Do, which serializes access.
type Session struct {
	ID       string
	Learner  models.Learner
	CourseID string

	mu         sync.Mutex
	controller *playback.Controller
	lastSeen   time.Time
}

// Do runs fn with exclusive access to the session's controller
func (s *Session) Do(fn func(c *playback.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.controller)
}

// Registry holds player sessions keyed by ID and drops the ones idle longer than the TTL
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	onChange func(active int)
	logger   *zap.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Registry
type Option func(*Registry)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithActiveObserver sets a callback that receives the session count after every change
func WithActiveObserver(fn func(active int)) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

// NewRegistry creates a registry and starts its cleanup goroutine.
// Expired sessions are removed every cleanupInterval; Close stops the goroutine.
func NewRegistry(ttl, cleanupInterval time.Duration, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cleanupInterval > 0 {
		go r.janitor(cleanupInterval)
	} else {
		close(r.done)
	}
	return r
}

// Create registers a new session for the learner and returns it
func (r *Registry) Create(learner models.Learner, courseID string, controller *playback.Controller) (*Session, error) {
	id, err := gonanoid.Nanoid(IDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	s := &Session{
		ID:         id,
		Learner:    learner,
		CourseID:   courseID,
		controller: controller,
	}

	r.mu.Lock()
	s.lastSeen = r.now()
	r.sessions[id] = s
	active := len(r.sessions)
	r.mu.Unlock()

	r.changed(active)
	return s, nil
}

// Get returns the learner's session and refreshes its idle timer
func (r *Registry) Get(id string, learner models.Learner) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.Learner.ID != learner.ID || r.expired(s) {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.now()
	return s, nil
}

// Delete removes the learner's session
func (r *Registry) Delete(id string, learner models.Learner) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.Learner.ID != learner.ID {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	active := len(r.sessions)
	r.mu.Unlock()

	r.changed(active)
	return nil
}

// Len returns the number of registered sessions, expired ones included until the next sweep
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

func (r *Registry) expired(s *Session) bool {
	return r.now().Sub(s.lastSeen) > r.ttl
}

// sweep removes expired sessions and returns how many were removed
func (r *Registry) sweep() int {
	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if r.expired(s) {
			delete(r.sessions, id)
			removed++
		}
	}
	active := len(r.sessions)
	r.mu.Unlock()

	if removed > 0 {
		r.logger.Debug("expired player sessions removed",
			zap.Int("removed", removed),
			zap.Int("active", active),
		)
		r.changed(active)
	}
	return removed
}

func (r *Registry) janitor(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Registry) changed(active int) {
	if r.onChange != nil {
		r.onChange(active)
	}
}
