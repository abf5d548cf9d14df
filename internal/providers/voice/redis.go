package voice

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/call"
)

// EventChannel is the per-call pub/sub channel the self-hosted pipeline
// publishes transport events on.
func EventChannel(callID string) string {
	return "call:" + callID + ":events"
}

// RedisTransport is the self-hosted voice path: the browser streams audio to
// the websocket handler, the transcriber worker publishes transport events on
// the per-call channel, and this transport replays them into the session.
type RedisTransport struct {
	rdb    *redis.Client
	callID string
	log    *logrus.Entry

	hmu      sync.RWMutex
	handlers call.Handlers

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedisTransport(rdb *redis.Client, callID string, log *logrus.Logger) *RedisTransport {
	return &RedisTransport{
		rdb:    rdb,
		callID: callID,
		log:    log.WithFields(logrus.Fields{"transport": "redis", "call_id": callID}),
	}
}

func (t *RedisTransport) Subscribe(h call.Handlers) call.Unsubscribe {
	t.hmu.Lock()
	t.handlers = h
	t.hmu.Unlock()
	return func() {
		t.hmu.Lock()
		t.handlers = call.Handlers{}
		t.hmu.Unlock()
	}
}

func (t *RedisTransport) Start(ctx context.Context, cfg call.StartConfig) error {
	pubsub := t.rdb.Subscribe(ctx, EventChannel(t.callID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.pubsub = pubsub
	t.cancel = cancel
	t.mu.Unlock()

	go t.readLoop(loopCtx, pubsub)

	// the channel is live: the self-hosted call is open
	return t.publish(ctx, call.Event{Type: call.EventCallStarted})
}

func (t *RedisTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	pubsub := t.pubsub
	cancel := t.cancel
	t.pubsub = nil
	t.cancel = nil
	t.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	_ = t.publish(ctx, call.Event{Type: call.EventCallEnded})
	if cancel != nil {
		cancel()
	}
	return pubsub.Close()
}

func (t *RedisTransport) Send(ctx context.Context, ev call.Event) error {
	return t.publish(ctx, ev)
}

func (t *RedisTransport) publish(ctx context.Context, ev call.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return t.rdb.Publish(ctx, EventChannel(t.callID), payload).Err()
}

func (t *RedisTransport) readLoop(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var ev call.Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				t.log.WithError(err).Warn("bad event payload")
				continue
			}
			t.dispatch(ev)
		}
	}
}

func (t *RedisTransport) dispatch(ev call.Event) {
	t.hmu.RLock()
	h := t.handlers
	t.hmu.RUnlock()

	switch ev.Type {
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
	case call.EventTranscriptFinal:
		if h.OnTranscriptFinal != nil {
			h.OnTranscriptFinal(ev.Speaker, ev.Text)
		}
	case call.EventError:
		if h.OnError != nil {
			h.OnError(ev.Detail)
		}
	}
}
