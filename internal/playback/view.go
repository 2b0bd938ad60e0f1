package playback

import "github.com/japanesestudent/learnplayer/internal/models"

// Notice is the message shown in place of the video when a lesson cannot be played
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var (
	noticeNoVideo = Notice{
		Title:   "No Video Available",
		Message: "This lesson doesn't have a video yet.",
	}
	noticeUnavailable = Notice{
		Title:   "Video Temporarily Unavailable",
		Message: "We're working to resolve this issue. Please try again later.",
	}
)

// View is everything a player surface needs to render the current lesson
type View struct {
	State
	Lesson            *models.FlatLesson `json:"lesson,omitempty"`
	Position          int                `json:"position"`
	Total             int                `json:"total"`
	HasPrevious       bool               `json:"hasPrevious"`
	HasNext           bool               `json:"hasNext"`
	Notice            *Notice            `json:"notice,omitempty"`
	CanRetry          bool               `json:"canRetry"`
	CanOpenExternally bool               `json:"canOpenExternally"`
	ExternalURL       string             `json:"externalUrl,omitempty"`
}

// View renders the controller state for a player surface.
// Position is 1-based; it is 0 while idle.
func (c *Controller) View() View {
	v := View{
		State: c.state,
		Total: len(c.lessons),
	}

	lesson, ok := c.Current()
	if !ok {
		return v
	}
	v.Lesson = &lesson
	v.Position = c.index + 1
	v.HasPrevious = c.index > 0
	v.HasNext = c.index < len(c.lessons)-1

	if c.state.Phase != PhaseUnplayable {
		return v
	}

	// Missing and unrecognized references resolve the same way every time, so only a
	// rejected embed offers a retry.
	n := noticeNoVideo
	if c.state.Resolution.Reason == ReasonEmbedRejected {
		n = noticeUnavailable
		v.CanRetry = true
	}
	v.Notice = &n
	if ref, ok := c.ExternalTarget(); ok {
		v.CanOpenExternally = true
		v.ExternalURL = ref
	}
	return v
}
