package playback

// LoadToken identifies one lesson load. Events issued by the playback surface carry the
// token of the load they belong to, so events from a previous load can be discarded.
type LoadToken struct {
	LessonID string `json:"lessonId"`
	Seq      uint64 `json:"seq"`
}

// Event is a message from the embedding surface to the controller
type Event interface {
	token() LoadToken
}

// ReadyEvent reports that the surface rendered the embed target
type ReadyEvent struct {
	Token LoadToken
}

// ProgressEvent reports playback progress as a percentage of the video
type ProgressEvent struct {
	Token   LoadToken
	Percent int
}

// PlaybackErrorEvent reports that the surface could not render the embed target
type PlaybackErrorEvent struct {
	Token  LoadToken
	Detail string
}

func (e ReadyEvent) token() LoadToken         { return e.Token }
func (e ProgressEvent) token() LoadToken      { return e.Token }
func (e PlaybackErrorEvent) token() LoadToken { return e.Token }
