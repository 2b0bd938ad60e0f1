// Package metrics exposes lesson playback counters to Prometheus
package metrics

import (
	"github.com/japanesestudent/learnplayer/internal/playback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "learnplayer_resolutions_total",
		Help: "Lesson video resolutions by outcome",
	}, []string{"outcome", "reason"}) // outcome=playable|unplayable, reason=missing|unrecognized|embed_rejected

	lessonsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "learnplayer_lessons_completed_total",
		Help: "Lessons completed in the player by trigger",
	}, []string{"trigger"}) // trigger=threshold|manual|advance

	staleEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "learnplayer_stale_events_total",
		Help: "Player surface events discarded because they belong to an earlier lesson load",
	})

	playerSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "learnplayer_player_sessions_active",
		Help: "Number of open player sessions",
	})
)

// RecordResolution counts a resolver verdict
func RecordResolution(res playback.Resolution) {
	if res.Playable() {
		resolutionsTotal.WithLabelValues("playable", "").Inc()
		return
	}
	resolutionsTotal.WithLabelValues("unplayable", string(res.Reason)).Inc()
}

// IncLessonCompleted counts a lesson completion by what triggered it
func IncLessonCompleted(trigger playback.CompletionTrigger) {
	lessonsCompletedTotal.WithLabelValues(string(trigger)).Inc()
}

// IncStaleEvent counts a player event that belongs to an earlier lesson load
func IncStaleEvent() { staleEventsTotal.Inc() }

// SetActiveSessions sets the number of live player sessions
func SetActiveSessions(n int) { playerSessionsActive.Set(float64(n)) }

// PlaybackHooks returns controller hooks that feed the playback counters
func PlaybackHooks() playback.Hooks {
	return playback.Hooks{
		Resolved: func(_ string, res playback.Resolution) {
			RecordResolution(res)
		},
		Completed: func(_ string, trigger playback.CompletionTrigger) {
			IncLessonCompleted(trigger)
		},
		StaleEvent: IncStaleEvent,
	}
}
