package playback

// Phase is the controller's position in the playback lifecycle
type Phase int

const (
	// PhaseIdle means no lesson is loaded.
	PhaseIdle Phase = iota
	// PhaseLoading means the lesson's video reference is being resolved.
	PhaseLoading
	// PhasePlayable means an embed target is active and progress is accepted.
	PhasePlayable
	// PhaseUnplayable means the current load cannot be played; only Retry or navigation leave it.
	PhaseUnplayable
)

// String returns the lowercase phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePlayable:
		return "playable"
	case PhaseUnplayable:
		return "unplayable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Direction selects the adjacent lesson for Advance
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "previous"
)

// CompletionTrigger says what caused a lesson to be reported as completed
type CompletionTrigger string

const (
	TriggerThreshold CompletionTrigger = "threshold"
	TriggerManual    CompletionTrigger = "manual"
	TriggerAdvance   CompletionTrigger = "advance"
)

// AdvancePolicy decides what happens to an unfinished lesson when the learner moves on
type AdvancePolicy int

const (
	// CompleteOnAdvance reports the lesson being left as completed when moving to the next one.
	CompleteOnAdvance AdvancePolicy = iota
	// RequireExplicitCompletion leaves the lesson unfinished; only playback or MarkComplete complete it.
	RequireExplicitCompletion
)
