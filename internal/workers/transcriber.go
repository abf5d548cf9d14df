package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/providers/llm"
	"github.com/prepdeck/prepdeck/internal/providers/stt"
	"github.com/prepdeck/prepdeck/internal/providers/voice"
)

// TranscriberPool drives the self-hosted voice path: it consumes candidate
// audio chunks from the audio stream, transcribes them, and publishes
// transport events (candidate transcript, interviewer reply) on the per-call
// event channel that RedisTransport subscribes to.
type TranscriberPool struct {
	Redis      *redis.Client
	NumWorkers int

	STT stt.Provider
	LLM llm.Provider

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// Publish overrides event delivery. When nil, events go out over Redis
	// pub/sub on the per-call event channel.
	Publish func(ctx context.Context, callID string, ev call.Event)
}

func (p *TranscriberPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.STT == nil || p.LLM == nil {
		return errors.New("TranscriberPool missing dependency: Redis/STT/LLM must be set")
	}
	if p.Stream == "" {
		p.Stream = "audio:stream"
	}
	if p.Group == "" {
		p.Group = "transcribers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TranscriberPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TranscriberPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	callID := getStr("call_id")
	chunkIndexStr := getStr("chunk_index")
	if callID == "" || chunkIndexStr == "" {
		return
	}
	chunkIndex, _ := strconv.ParseInt(chunkIndexStr, 10, 64)

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"call_id":     callID,
		"chunk_index": chunkIndex,
	})

	language := getStr("language")
	if language == "" {
		language = "en-US"
	}

	audioBytes, ok := p.fetchAudio(ctx, getStr, log)
	if !ok {
		return
	}

	text, _, err := p.STT.Transcribe(ctx, audioBytes, language)
	if err != nil {
		log.WithError(err).Error("stt failed")
		p.publish(ctx, callID, call.Event{Type: call.EventError, Detail: "transcription failed"})
		return
	}
	if strings.TrimSpace(text) == "" {
		return // silence or noise; nothing to append
	}

	p.publish(ctx, callID, call.Event{
		Type:    call.EventTranscriptFinal,
		Speaker: call.SpeakerCandidate,
		Text:    text,
	})

	// interviewer reply: stream it, then emit the full reply as one final turn
	p.publish(ctx, callID, call.Event{Type: call.EventSpeechStarted})

	prompt := interviewerPrompt(getStr("question"), text)
	chunks, errs := p.LLM.StreamAnswer(ctx, prompt)

	full := strings.Builder{}
	for chunk := range chunks {
		full.WriteString(chunk)
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}

	p.publish(ctx, callID, call.Event{Type: call.EventSpeechEnded})

	if streamErr != nil {
		log.WithError(streamErr).Error("llm stream failed")
		p.publish(ctx, callID, call.Event{Type: call.EventError, Detail: "interviewer reply failed"})
		return
	}

	p.publish(ctx, callID, call.Event{
		Type:    call.EventTranscriptFinal,
		Speaker: call.SpeakerAssistant,
		Text:    full.String(),
	})
}

func (p *TranscriberPool) fetchAudio(ctx context.Context, getStr func(string) string, log *logrus.Entry) ([]byte, bool) {
	if b64 := getStr("audio_base64"); b64 != "" {
		raw := b64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			log.WithError(err).Warn("base64 decode failed")
			return nil, false
		}
		return decoded, true
	}

	if url := getStr("audio_url"); url != "" {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.WithError(err).Warn("audio_url fetch failed")
			return nil, false
		}
		defer resp.Body.Close()

		const maxBytes = 10 << 20
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if len(body) == 0 {
			return nil, false
		}
		return body, true
	}

	return nil, false
}

func (p *TranscriberPool) publish(ctx context.Context, callID string, ev call.Event) {
	if p.Publish != nil {
		p.Publish(ctx, callID, ev)
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = p.Redis.Publish(ctx, voice.EventChannel(callID), payload).Err()
}

func interviewerPrompt(question, candidateText string) string {
	var sb strings.Builder
	sb.WriteString("You are conducting a mock job interview. Reply briefly and professionally, as the interviewer speaking aloud.\n")
	if question != "" {
		sb.WriteString("If the candidate has finished answering, move on to this question:\n")
		sb.WriteString(question)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCandidate said:\n")
	sb.WriteString(candidateText)
	return sb.String()
}
