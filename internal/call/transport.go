package call

import (
	"context"
	"fmt"
)

type Speaker string

const (
	SpeakerCandidate Speaker = "candidate"
	SpeakerSystem    Speaker = "system"
	SpeakerAssistant Speaker = "assistant"
)

type Mode string

const (
	ModeGenerate  Mode = "generate"
	ModeInterview Mode = "interview"
)

// StartConfig carries everything the transport needs to open a call.
// Role/Level/Techstack/Questions are surfaced to the interviewer as context
// in interview mode; Amount drives question generation in generate mode.
type StartConfig struct {
	UserName string
	UserID   string
	Mode     Mode

	InterviewID string
	FeedbackID  string // retake: reuse the previous feedback id

	Role      string
	Level     string
	Techstack []string
	Questions []string
	Amount    int
}

// Event is a frame delivered by (or injected into) a transport.
type Event struct {
	Type    string  `json:"type"`
	Speaker Speaker `json:"speaker,omitempty"`
	Text    string  `json:"text,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

const (
	EventCallStarted     = "call-started"
	EventCallEnded       = "call-ended"
	EventSpeechStarted   = "speech-started"
	EventSpeechEnded     = "speech-ended"
	EventTranscriptFinal = "transcript-final"
	EventError           = "error"
)

// Handlers is the fixed callback set a session registers at construction and
// deregisters at teardown.
type Handlers struct {
	OnCallStarted     func()
	OnCallEnded       func()
	OnSpeechStarted   func()
	OnSpeechEnded     func()
	OnTranscriptFinal func(speaker Speaker, text string)
	OnError           func(detail string)
}

type Unsubscribe func()

// Transport is a realtime voice session. Implementations deliver events on
// their own goroutine; the session serializes them behind its mutex.
type Transport interface {
	Start(ctx context.Context, cfg StartConfig) error
	Stop(ctx context.Context) error
	// Send injects a synthetic turn into the live call.
	Send(ctx context.Context, ev Event) error
	Subscribe(h Handlers) Unsubscribe
}

// TransportError means the voice session could not open or close. The
// session is back in Idle after a failed open; the user may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("voice transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
