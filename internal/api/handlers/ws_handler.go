package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/utils"
)

// WSHandler streams the session state to the view layer and, on the
// self-hosted voice path, accepts candidate audio chunks for the transcriber
// workers.
type WSHandler struct {
	calls    *CallHandler
	redis    *redis.Client
	stream   string
	upgrader websocket.Upgrader
}

func NewWSHandler(calls *CallHandler, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		calls:  calls,
		redis:  rdb,
		stream: "audio:stream",
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type        string `json:"type"`
	ChunkIndex  int64  `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
	AudioURL    string `json:"audio_url"`
	Language    string `json:"language"`
	Question    string `json:"question"` // next scripted question, surfaced to the interviewer

	// end_session -> no fields
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

type wsStateMsg struct {
	Type string `json:"type"` // "state"
	call.State
}

func (h *WSHandler) CallWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	if callID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.CallWS", "missing call_id", nil))
		return
	}

	lc, exists := h.calls.lookup(callID)
	if !exists {
		writeError(c, utils.E(utils.CodeNotFound, "WSHandler.CallWS", "call not found", nil))
		return
	}
	if lc.userID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.CallWS", "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}

	// session -> view: push a snapshot on every session event
	lc.session.SetOnUpdate(func(st call.State) {
		_ = wc.writeJSON(wsStateMsg{Type: "state", State: st})
	})
	defer lc.session.SetOnUpdate(nil)

	_ = wc.writeJSON(wsStateMsg{Type: "state", State: lc.session.Snapshot()})

	// view -> session: audio chunks and the end-session intent
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx := c.Request.Context()
	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
			continue
		}

		switch msg.Type {
		case "audio_chunk":
			if msg.ChunkIndex <= 0 {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"chunk_index must be > 0"}`))
				continue
			}
			if msg.AudioBase64 == "" && msg.AudioURL == "" {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"audio_base64 or audio_url required"}`))
				continue
			}

			fields := map[string]any{
				"call_id":     callID,
				"chunk_index": strconv.FormatInt(msg.ChunkIndex, 10),
				"ts_unix":     strconv.FormatInt(time.Now().UTC().Unix(), 10),
			}
			if msg.AudioBase64 != "" {
				fields["audio_base64"] = msg.AudioBase64
			}
			if msg.AudioURL != "" {
				fields["audio_url"] = msg.AudioURL
			}
			if msg.Language != "" {
				fields["language"] = msg.Language
			}
			if msg.Question != "" {
				fields["question"] = msg.Question
			}

			if err := h.redis.XAdd(ctx, &redis.XAddArgs{
				Stream: h.stream,
				Values: fields,
			}).Err(); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"failed to enqueue audio"}`))
			}

		case "end_session":
			lc.session.Disconnect(ctx)
			_ = wc.writeJSON(wsStateMsg{Type: "state", State: lc.session.Snapshot()})
			return

		default:
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
		}
	}
}
