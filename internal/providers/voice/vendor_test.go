package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/prepdeck/internal/call"
)

func TestMapSpeaker(t *testing.T) {
	assert.Equal(t, call.SpeakerCandidate, mapSpeaker("user"))
	assert.Equal(t, call.SpeakerCandidate, mapSpeaker("candidate"))
	assert.Equal(t, call.SpeakerAssistant, mapSpeaker("assistant"))
	assert.Equal(t, call.SpeakerAssistant, mapSpeaker("bot"))
	assert.Equal(t, call.SpeakerSystem, mapSpeaker("tool"))
	assert.Equal(t, call.SpeakerSystem, mapSpeaker(""))
}

type dispatchLog struct {
	started, ended      int
	speechOn, speechOff int
	finals              []call.Turn
	errs                []string
}

func (d *dispatchLog) handlers() call.Handlers {
	return call.Handlers{
		OnCallStarted:   func() { d.started++ },
		OnCallEnded:     func() { d.ended++ },
		OnSpeechStarted: func() { d.speechOn++ },
		OnSpeechEnded:   func() { d.speechOff++ },
		OnTranscriptFinal: func(sp call.Speaker, text string) {
			d.finals = append(d.finals, call.Turn{Speaker: sp, Text: text})
		},
		OnError: func(detail string) { d.errs = append(d.errs, detail) },
	}
}

func newTestTransport() *VendorTransport {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewVendorTransport("ws://example.invalid", "", l)
}

func TestVendorDispatchFrames(t *testing.T) {
	tr := newTestTransport()
	d := &dispatchLog{}
	tr.Subscribe(d.handlers())

	tr.dispatch(vendorFrame{Type: "call-started"})
	tr.dispatch(vendorFrame{Type: "transcript", TranscriptType: "final", Role: "assistant", Transcript: "Why Go?"})
	tr.dispatch(vendorFrame{Type: "transcript", TranscriptType: "final", Role: "user", Transcript: "Goroutines"})
	tr.dispatch(vendorFrame{Type: "error", Message: "deepgram hiccup"})
	tr.dispatch(vendorFrame{Type: "call-ended"})

	assert.Equal(t, 1, d.started)
	assert.Equal(t, 1, d.ended)
	require.Len(t, d.finals, 2)
	assert.Equal(t, call.SpeakerAssistant, d.finals[0].Speaker)
	assert.Equal(t, call.SpeakerCandidate, d.finals[1].Speaker)
	assert.Equal(t, []string{"deepgram hiccup"}, d.errs)
}

// Partial transcripts are dropped; only final ones reach the session.
func TestVendorDispatchIgnoresPartials(t *testing.T) {
	tr := newTestTransport()
	d := &dispatchLog{}
	tr.Subscribe(d.handlers())

	tr.dispatch(vendorFrame{Type: "transcript", TranscriptType: "partial", Role: "user", Transcript: "Goro"})
	tr.dispatch(vendorFrame{Type: "transcript", Role: "user", Transcript: "Gorout"})

	assert.Empty(t, d.finals)
}

func TestVendorUnsubscribeStopsDispatch(t *testing.T) {
	tr := newTestTransport()
	d := &dispatchLog{}
	unsub := tr.Subscribe(d.handlers())

	tr.dispatch(vendorFrame{Type: "call-started"})
	unsub()
	tr.dispatch(vendorFrame{Type: "call-started"})
	tr.dispatch(vendorFrame{Type: "call-ended"})

	assert.Equal(t, 1, d.started)
	assert.Equal(t, 0, d.ended)
}

func TestVendorStopWithoutStart(t *testing.T) {
	tr := newTestTransport()
	assert.NoError(t, tr.Stop(context.Background()))
}

// Send and Stop race when the view hangs up while a message is in flight.
// Both must serialize on the connection: gorilla panics on concurrent writes.
func TestVendorConcurrentSendAndStop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	tr := NewVendorTransport("ws"+strings.TrimPrefix(srv.URL, "http"), "", l)
	tr.Subscribe(call.Handlers{})
	require.NoError(t, tr.Start(context.Background(), call.StartConfig{Mode: call.ModeInterview}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = tr.Send(context.Background(), call.Event{
					Type:    call.EventTranscriptFinal,
					Speaker: call.SpeakerCandidate,
					Text:    "still here",
				})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = tr.Stop(context.Background())
	}()
	wg.Wait()

	// after Stop the connection is gone and Send reports it
	err := tr.Send(context.Background(), call.Event{Type: call.EventTranscriptFinal, Text: "late"})
	require.Error(t, err)
	var te *call.TransportError
	assert.True(t, errors.As(err, &te))
}
