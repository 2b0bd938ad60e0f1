// Package playback implements the lesson player: resolving raw lesson video references
// into embeddable targets and tracking playback progress and completion for the lesson
// currently loaded.
package playback

import (
	"net/url"
	"regexp"
	"strings"
)

// ResolutionStatus is the outcome of resolving a lesson video reference
type ResolutionStatus string

const (
	StatusUnresolved ResolutionStatus = "unresolved"
	StatusPlayable   ResolutionStatus = "playable"
	StatusUnplayable ResolutionStatus = "unplayable"
)

// Reason explains why a lesson video cannot be played
type Reason string

const (
	// ReasonMissing means the lesson has no video reference.
	ReasonMissing Reason = "missing"
	// ReasonUnrecognized means the reference matches none of the known formats.
	ReasonUnrecognized Reason = "unrecognized"
	// ReasonEmbedRejected means the playback surface failed to render a resolved target.
	ReasonEmbedRejected Reason = "embed_rejected"
)

// Resolution is the tagged result of resolving a video reference.
// EmbedURL and VideoID are set only when Status is StatusPlayable, Reason only when it is StatusUnplayable.
type Resolution struct {
	Status   ResolutionStatus `json:"status"`
	EmbedURL string           `json:"embedUrl,omitempty"`
	VideoID  string           `json:"videoId,omitempty"`
	Reason   Reason           `json:"reason,omitempty"`
}

// Playable reports whether the resolution produced an embed target
func (r Resolution) Playable() bool {
	return r.Status == StatusPlayable
}

func playable(videoID, embedURL string) Resolution {
	return Resolution{Status: StatusPlayable, VideoID: videoID, EmbedURL: embedURL}
}

func unplayable(reason Reason) Resolution {
	return Resolution{Status: StatusUnplayable, Reason: reason}
}

// Matcher extracts a video identifier from a raw reference.
// It returns false when the reference is not in the format it understands.
type Matcher func(ref string) (string, bool)

// RegexpMatcher returns a Matcher that yields the first capture group of re
func RegexpMatcher(re *regexp.Regexp) Matcher {
	return func(ref string) (string, bool) {
		m := re.FindStringSubmatch(ref)
		if len(m) < 2 || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
}

var (
	watchOrShortOrEmbedRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#/]+)`)
	legacyVRe             = regexp.MustCompile(`youtube\.com/v/([^&\n?#/]+)`)
	watchAnyParamRe       = regexp.MustCompile(`youtube\.com/watch\?.*?\bv=([^&\n?#]+)`)
	bareVideoIDRe         = regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`)
)

// DefaultMatchers are the recognized YouTube reference formats, tried in order
func DefaultMatchers() []Matcher {
	return []Matcher{
		RegexpMatcher(watchOrShortOrEmbedRe),
		RegexpMatcher(legacyVRe),
		RegexpMatcher(watchAnyParamRe),
		RegexpMatcher(bareVideoIDRe),
	}
}

// DefaultEmbedBase is the privacy-enhanced YouTube embed endpoint
const DefaultEmbedBase = "https://www.youtube-nocookie.com/embed/"

// DefaultEmbedParams returns the fixed embed parameter set: no autoplay,
// related videos restricted to the same channel, minimal branding.
func DefaultEmbedParams() url.Values {
	return url.Values{
		"autohide":       {"1"},
		"autoplay":       {"0"},
		"cc_load_policy": {"0"},
		"controls":       {"1"},
		"enablejsapi":    {"1"},
		"fs":             {"1"},
		"iv_load_policy": {"3"},
		"modestbranding": {"1"},
		"rel":            {"0"},
		"showinfo":       {"0"},
	}
}

// Resolver turns raw lesson video references into embed targets.
// It performs no I/O and is safe for concurrent use.
type Resolver struct {
	matchers  []Matcher
	embedBase string
	query     string
}

// ResolverOption configures a Resolver
type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	matchers  []Matcher
	embedBase string
	origin    string
}

// WithMatchers replaces the default matcher list
func WithMatchers(matchers ...Matcher) ResolverOption {
	return func(o *resolverOptions) {
		o.matchers = matchers
	}
}

// WithEmbedBase replaces the embed endpoint; the video ID is appended to it
func WithEmbedBase(base string) ResolverOption {
	return func(o *resolverOptions) {
		o.embedBase = base
	}
}

// WithOrigin adds the "origin" embed parameter, required by the host's JS API
func WithOrigin(origin string) ResolverOption {
	return func(o *resolverOptions) {
		o.origin = origin
	}
}

// NewResolver creates a resolver with the default matchers and embed parameters
func NewResolver(opts ...ResolverOption) *Resolver {
	o := resolverOptions{
		matchers:  DefaultMatchers(),
		embedBase: DefaultEmbedBase,
	}
	for _, opt := range opts {
		opt(&o)
	}

	params := DefaultEmbedParams()
	if o.origin != "" {
		params.Set("origin", o.origin)
	}

	return &Resolver{
		matchers:  o.matchers,
		embedBase: o.embedBase,
		// Encode sorts by key, so the target is a pure function of the video ID.
		query: params.Encode(),
	}
}

// Resolve extracts a video identifier from ref and builds its embed target.
// The first matcher that accepts ref wins.
func (r *Resolver) Resolve(ref string) Resolution {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return unplayable(ReasonMissing)
	}

	for _, match := range r.matchers {
		if id, ok := match(ref); ok {
			return playable(id, r.EmbedURL(id))
		}
	}

	return unplayable(ReasonUnrecognized)
}

// EmbedURL builds the embed target for a video identifier
func (r *Resolver) EmbedURL(videoID string) string {
	return r.embedBase + url.PathEscape(videoID) + "?" + r.query
}
