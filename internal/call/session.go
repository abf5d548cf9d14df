package call

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/utils"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusFinished   Status = "finished" // terminal; a new call needs a fresh session
)

// FinishFunc is the exactly-once side effect of the terminal transition.
// It observes the transcript exactly as it stood when the session entered
// Finished. It is only dispatched for interview-mode sessions.
type FinishFunc func(ctx context.Context, cfg StartConfig, turns []Turn)

// State is the view-facing snapshot streamed to the UI.
type State struct {
	Status              Status `json:"status"`
	Turns               []Turn `json:"turns"`
	LatestTurn          string `json:"latest_turn"`
	InterviewerSpeaking bool   `json:"interviewer_speaking"`
}

// Session owns one call lifecycle: Idle -> Connecting -> Active -> Finished.
// It registers a fixed set of named callbacks with the transport at
// construction and deregisters them when the session finishes.
type Session struct {
	ID string

	mu          sync.Mutex
	status      Status
	cfg         StartConfig
	transcript  Transcript
	speaking    bool
	finished    bool
	transport   Transport
	unsubscribe Unsubscribe
	finish      FinishFunc
	onUpdate    func(State)
	onFinished  func()

	log *logrus.Entry
}

// NewSession wires a fresh session to its transport. id may be empty; one is
// minted. Callers that build a transport keyed by call id mint the id first.
func NewSession(id string, transport Transport, finish FinishFunc, log *logrus.Logger) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		ID:        id,
		status:    StatusIdle,
		transport: transport,
		finish:    finish,
	}
	s.log = log.WithField("call_id", s.ID)
	s.unsubscribe = transport.Subscribe(Handlers{
		OnCallStarted:     s.handleCallStarted,
		OnCallEnded:       s.handleCallEnded,
		OnSpeechStarted:   s.handleSpeechStarted,
		OnSpeechEnded:     s.handleSpeechEnded,
		OnTranscriptFinal: s.handleTranscriptFinal,
		OnError:           s.handleError,
	})
	return s
}

// SetOnUpdate registers the view-layer observer. Pass nil to detach.
func (s *Session) SetOnUpdate(fn func(State)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// SetOnFinished registers a hook invoked exactly once when the session
// enters Finished, whatever the mode and whoever ended the call. The owner
// uses it to retire the session from its registry.
func (s *Session) SetOnFinished(fn func()) {
	s.mu.Lock()
	s.onFinished = fn
	s.mu.Unlock()
}

// Start opens the call. Valid only from Idle; a transport-level failure to
// open returns the session to Idle so the user can retry.
func (s *Session) Start(ctx context.Context, cfg StartConfig) error {
	const op = "call.Session.Start"

	s.mu.Lock()
	if s.status != StatusIdle {
		cur := s.status
		s.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "call already started (status="+string(cur)+")", nil)
	}
	s.status = StatusConnecting
	s.cfg = cfg
	s.mu.Unlock()
	s.notify()

	if err := s.transport.Start(ctx, cfg); err != nil {
		s.mu.Lock()
		if s.status == StatusConnecting {
			s.status = StatusIdle
		}
		s.mu.Unlock()
		s.notify()
		s.log.WithError(err).Warn("voice transport failed to open")
		return &TransportError{Op: "open", Err: err}
	}
	return nil
}

// Disconnect is the user-initiated cancellation. It forces Finished from any
// non-Idle state before asking the transport to close, so the feedback
// dispatch is never blocked on transport teardown.
func (s *Session) Disconnect(ctx context.Context) {
	s.terminate(ctx)
	if err := s.transport.Stop(ctx); err != nil {
		s.log.WithError(err).Warn("voice transport close failed")
	}
}

// Send injects a synthetic turn into the live call.
func (s *Session) Send(ctx context.Context, ev Event) error {
	return s.transport.Send(ctx, ev)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := State{
		Status:              s.status,
		Turns:               s.transcript.All(),
		InterviewerSpeaking: s.speaking,
	}
	if last, ok := s.transcript.Latest(); ok {
		st.LatestTurn = last.Text
	}
	return st
}

func (s *Session) handleCallStarted() {
	s.mu.Lock()
	if s.status != StatusConnecting {
		s.mu.Unlock()
		return
	}
	s.status = StatusActive
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleCallEnded() {
	s.terminate(context.Background())
}

func (s *Session) handleSpeechStarted() { s.setSpeaking(true) }
func (s *Session) handleSpeechEnded()   { s.setSpeaking(false) }

func (s *Session) setSpeaking(v bool) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.speaking = v
	s.mu.Unlock()
	s.notify()
}

func (s *Session) handleTranscriptFinal(speaker Speaker, text string) {
	s.mu.Lock()
	if s.finished {
		// a terminal transition already snapshotted the transcript
		s.mu.Unlock()
		return
	}
	s.transcript.Append(Turn{Speaker: speaker, Text: text})
	s.mu.Unlock()
	s.notify()
}

// Errors during Active are tolerated; the session only ends on an explicit
// call-ended or Disconnect.
func (s *Session) handleError(detail string) {
	s.log.WithField("detail", detail).Error("voice transport error")
}

// terminate performs the transition into Finished and, exactly once, the
// finished-state side effect. The transition is the single trigger point:
// duplicate call-ended events and a racing Disconnect collapse into one
// dispatch.
func (s *Session) terminate(ctx context.Context) {
	s.mu.Lock()
	if s.finished || s.status == StatusIdle {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.status = StatusFinished
	s.speaking = false
	cfg := s.cfg
	turns := s.transcript.All()
	unsub := s.unsubscribe
	finished := s.onFinished
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.notify()

	if cfg.Mode == ModeInterview && s.finish != nil {
		s.finish(ctx, cfg, turns)
	}
	if finished != nil {
		finished()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	var st State
	if fn != nil {
		st = s.snapshotLocked()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
