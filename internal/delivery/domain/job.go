package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Recipient address suffixes used by the delivery channel.
const (
	UserSuffix  = "@c.us"
	GroupSuffix = "@g.us"
)

// Kind enumerates the supported job payload kinds.
type Kind string

const (
	KindText  Kind = "text"
	KindMedia Kind = "media"
)

// Options carries optional delivery metadata attached to a job.
type Options struct {
	Caption string `json:"caption,omitempty"`
}

// Job is one unit of outbound message work read from the queue.
// A Job is immutable once decoded; the pipeline only consumes it.
type Job struct {
	To      string   `json:"to"`
	Type    Kind     `json:"type"`
	Msg     string   `json:"msg"`
	Options *Options `json:"options,omitempty"`
}

// Caption returns the media caption, or "" when no options are set.
func (j *Job) Caption() string {
	if j.Options == nil {
		return ""
	}
	return j.Options.Caption
}

// DecodeJob parses the wire format from the queue into a Job.
func DecodeJob(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	if job.To == "" {
		return nil, fmt.Errorf("%w: missing recipient", ErrMalformedJob)
	}

	if job.Type != KindText && job.Type != KindMedia {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedJob, job.Type)
	}

	return &job, nil
}

// NormalizeRecipient maps a raw recipient identifier to a full channel
// address. A group address already carrying the group suffix is passed
// through unchanged; everything else gets the single-user suffix.
func NormalizeRecipient(to string) string {
	if strings.HasSuffix(to, GroupSuffix) {
		return to
	}
	if strings.HasSuffix(to, UserSuffix) {
		return to
	}
	return to + UserSuffix
}

// IsGroup reports whether addr targets a multi-recipient group chat.
func IsGroup(addr string) bool {
	return strings.HasSuffix(addr, GroupSuffix)
}

// Media is a decoded media payload ready for the delivery channel.
type Media struct {
	MimeType string
	Data     string // base64 content
	Caption  string
}

// mediaBodyPattern matches the data-URI style encoding used for media
// bodies: data:<mime>;base64,<data>
var mediaBodyPattern = regexp.MustCompile(`^data:([^;,]+);base64,(.+)$`)

// ParseMediaBody splits a media job body into its MIME type and base64
// content. The second return value is false when the body does not match
// the expected encoding, in which case the job degrades to text delivery.
func ParseMediaBody(msg string) (Media, bool) {
	m := mediaBodyPattern.FindStringSubmatch(msg)
	if m == nil {
		return Media{}, false
	}

	return Media{MimeType: m[1], Data: m[2]}, true
}
