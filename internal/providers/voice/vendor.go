package voice

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/call"
)

// VendorTransport speaks websocket to a hosted realtime voice vendor. The
// vendor runs the actual audio loop (STT, TTS, barge-in); this side only
// starts/stops the call and translates event frames.
type VendorTransport struct {
	url   string
	token string
	log   *logrus.Entry

	hmu      sync.RWMutex
	handlers call.Handlers

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

func NewVendorTransport(url, token string, log *logrus.Logger) *VendorTransport {
	return &VendorTransport{
		url:   url,
		token: token,
		log:   log.WithField("transport", "vendor"),
	}
}

func (t *VendorTransport) Subscribe(h call.Handlers) call.Unsubscribe {
	t.hmu.Lock()
	t.handlers = h
	t.hmu.Unlock()
	return func() {
		t.hmu.Lock()
		t.handlers = call.Handlers{}
		t.hmu.Unlock()
	}
}

type vendorFrame struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Message        string `json:"message,omitempty"`
}

type vendorStart struct {
	Type      string         `json:"type"` // "start"
	Variables map[string]any `json:"variableValues"`
}

func (t *VendorTransport) Start(ctx context.Context, cfg call.StartConfig) error {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return err
	}

	vars := map[string]any{
		"username":  cfg.UserName,
		"userid":    cfg.UserID,
		"type":      string(cfg.Mode),
		"role":      cfg.Role,
		"level":     cfg.Level,
		"techstack": strings.Join(cfg.Techstack, ", "),
		"amount":    cfg.Amount,
	}
	// scripted questions only exist for interview mode
	if cfg.Mode != call.ModeGenerate && len(cfg.Questions) > 0 {
		lines := make([]string, len(cfg.Questions))
		for i, q := range cfg.Questions {
			lines[i] = "- " + q
		}
		vars["questions"] = strings.Join(lines, "\n")
	}

	if err := writeJSON(conn, vendorStart{Type: "start", Variables: vars}); err != nil {
		_ = conn.Close()
		return err
	}

	done := make(chan struct{})
	t.mu.Lock()
	t.conn = conn
	t.done = done
	t.mu.Unlock()

	go t.readLoop(conn, done)
	return nil
}

// Stop writes the stop frame and closes the connection under t.mu so it can
// never interleave with a concurrent Send on the same conn.
func (t *VendorTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn := t.conn
	if conn == nil {
		return nil
	}
	t.conn = nil
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	_ = writeJSON(conn, vendorFrame{Type: "stop"})
	return conn.Close()
}

func (t *VendorTransport) Send(ctx context.Context, ev call.Event) error {
	// write under the same mutex that guards Stop's teardown
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return &call.TransportError{Op: "send", Err: websocket.ErrCloseSent}
	}
	return writeJSON(t.conn, vendorFrame{
		Type:           "add-message",
		Role:           string(ev.Speaker),
		TranscriptType: "final",
		Transcript:     ev.Text,
	})
}

func (t *VendorTransport) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var frame vendorFrame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-done:
				return // Stop already tore the connection down
			default:
			}
			t.log.WithError(err).Warn("vendor connection lost")
			t.dispatchError("connection lost: " + err.Error())
			return
		}
		t.dispatch(frame)
	}
}

func (t *VendorTransport) dispatch(frame vendorFrame) {
	t.hmu.RLock()
	h := t.handlers
	t.hmu.RUnlock()

	switch frame.Type {
	case call.EventCallStarted:
		if h.OnCallStarted != nil {
			h.OnCallStarted()
		}
	case call.EventCallEnded:
		if h.OnCallEnded != nil {
			h.OnCallEnded()
		}
	case call.EventSpeechStarted:
		if h.OnSpeechStarted != nil {
			h.OnSpeechStarted()
		}
	case call.EventSpeechEnded:
		if h.OnSpeechEnded != nil {
			h.OnSpeechEnded()
		}
	case "transcript":
		if frame.TranscriptType != "final" {
			return // partials only feed the vendor's own UI
		}
		if h.OnTranscriptFinal != nil {
			h.OnTranscriptFinal(mapSpeaker(frame.Role), frame.Transcript)
		}
	case call.EventError:
		t.dispatchError(frame.Message)
	}
}

func (t *VendorTransport) dispatchError(detail string) {
	t.hmu.RLock()
	h := t.handlers
	t.hmu.RUnlock()
	if h.OnError != nil {
		h.OnError(detail)
	}
}

func mapSpeaker(role string) call.Speaker {
	switch role {
	case "user", "candidate":
		return call.SpeakerCandidate
	case "assistant", "bot":
		return call.SpeakerAssistant
	default:
		return call.SpeakerSystem
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}
