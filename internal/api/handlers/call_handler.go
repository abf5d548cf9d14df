package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/services"
	"github.com/prepdeck/prepdeck/internal/utils"
)

// TransportFactory builds the voice transport for a new call.
type TransportFactory func(callID string) call.Transport

// CallHandler owns the registry of live call sessions. Each session is
// created by one view and discarded when that view disconnects. Calls ended
// remotely (vendor call-ended) stay readable for finishedTTL so the view can
// still fetch the outcome, then the registry retires them.
type CallHandler struct {
	interviews services.InterviewService
	feedback   services.FeedbackService
	transport  TransportFactory
	log        *logrus.Logger

	finishedTTL time.Duration

	mu    sync.Mutex
	calls map[string]*liveCall
}

type liveCall struct {
	session     *call.Session
	userID      string
	interviewID string
	mode        call.Mode

	mu      sync.Mutex
	outcome *services.SynthesisResult
}

func (lc *liveCall) setOutcome(res services.SynthesisResult) {
	lc.mu.Lock()
	lc.outcome = &res
	lc.mu.Unlock()
}

func (lc *liveCall) getOutcome() *services.SynthesisResult {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.outcome
}

func NewCallHandler(interviews services.InterviewService, feedback services.FeedbackService, transport TransportFactory, log *logrus.Logger) *CallHandler {
	return &CallHandler{
		interviews:  interviews,
		feedback:    feedback,
		transport:   transport,
		log:         log,
		finishedTTL: 5 * time.Minute,
		calls:       make(map[string]*liveCall),
	}
}

type StartCallRequest struct {
	Mode        string   `json:"mode" binding:"required,oneof=interview generate"`
	InterviewID string   `json:"interview_id"`
	FeedbackID  string   `json:"feedback_id"` // retake: overwrite this feedback in place
	Role        string   `json:"role"`
	Level       string   `json:"level"`
	Techstack   []string `json:"techstack"`
	Amount      int      `json:"amount"`
}

type StartCallResponse struct {
	CallID string      `json:"call_id"`
	Status call.Status `json:"status"`
}

func (h *CallHandler) Start(c *gin.Context) {
	const op = "CallHandler.Start"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	cfg := call.StartConfig{
		UserName:    userName(c),
		UserID:      userID,
		Mode:        call.Mode(req.Mode),
		InterviewID: req.InterviewID,
		FeedbackID:  req.FeedbackID,
		Role:        req.Role,
		Level:       req.Level,
		Techstack:   req.Techstack,
		Amount:      req.Amount,
	}

	if cfg.Mode == call.ModeInterview {
		if req.InterviewID == "" {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "interview_id is required for interview mode", nil))
			return
		}
		iv, err := h.interviews.GetByID(c.Request.Context(), req.InterviewID)
		if err != nil {
			writeError(c, err)
			return
		}
		cfg.Role = iv.Role
		cfg.Level = iv.Level
		cfg.Techstack = iv.Techstack
		cfg.Questions = iv.Questions
	}

	callID := uuid.NewString()
	lc := &liveCall{userID: userID, interviewID: cfg.InterviewID, mode: cfg.Mode}

	finish := func(ctx context.Context, fcfg call.StartConfig, turns []call.Turn) {
		res := h.feedback.Synthesize(ctx, callID, fcfg.InterviewID, fcfg.UserID, turns, fcfg.FeedbackID)
		lc.setOutcome(res)
	}

	lc.session = call.NewSession(callID, h.transport(callID), finish, h.log)
	lc.session.SetOnFinished(func() { h.retire(callID) })

	h.mu.Lock()
	h.calls[callID] = lc
	h.mu.Unlock()

	if err := lc.session.Start(c.Request.Context(), cfg); err != nil {
		h.mu.Lock()
		delete(h.calls, callID)
		h.mu.Unlock()

		var te *call.TransportError
		if errors.As(err, &te) {
			writeError(c, utils.E(utils.CodeUnavailable, op, "voice session could not be opened", err))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartCallResponse{CallID: lc.session.ID, Status: lc.session.Status()})
}

type CallStateResponse struct {
	CallID string `json:"call_id"`
	call.State
	Result     *services.SynthesisResult `json:"result,omitempty"`
	RedirectTo string                    `json:"redirect_to,omitempty"`
}

func (h *CallHandler) Get(c *gin.Context) {
	lc, ok := h.authorized(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(lc))
}

// Disconnect forces the terminal transition. The response carries where the
// view should go next: the feedback page on success, the neutral landing on
// any synthesis failure. The view is never left on a dead-end screen.
func (h *CallHandler) Disconnect(c *gin.Context) {
	lc, ok := h.authorized(c)
	if !ok {
		return
	}

	lc.session.Disconnect(c.Request.Context())

	resp := h.stateResponse(lc)

	// the view navigates away after Finished; drop the instance
	h.mu.Lock()
	delete(h.calls, lc.session.ID)
	h.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Send injects a synthetic candidate turn into the live call.
func (h *CallHandler) Send(c *gin.Context) {
	const op = "CallHandler.Send"

	lc, ok := h.authorized(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	ev := call.Event{Type: call.EventTranscriptFinal, Speaker: call.SpeakerCandidate, Text: req.Text}
	if err := lc.session.Send(c.Request.Context(), ev); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to send message", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CallHandler) stateResponse(lc *liveCall) CallStateResponse {
	resp := CallStateResponse{
		CallID: lc.session.ID,
		State:  lc.session.Snapshot(),
		Result: lc.getOutcome(),
	}
	if resp.State.Status == call.StatusFinished {
		resp.RedirectTo = redirectFor(lc)
	}
	return resp
}

func redirectFor(lc *liveCall) string {
	if lc.mode == call.ModeInterview {
		if res := lc.getOutcome(); res != nil && res.Success {
			return "/interview/" + lc.interviewID + "/feedback"
		}
		return "/"
	}
	return "/"
}

// authorized resolves the :call_id route param to a live call owned by the
// current user.
func (h *CallHandler) authorized(c *gin.Context) (*liveCall, bool) {
	const op = "CallHandler"

	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}

	callID := c.Param("call_id")
	h.mu.Lock()
	lc, exists := h.calls[callID]
	h.mu.Unlock()

	if !exists {
		writeError(c, utils.E(utils.CodeNotFound, op, "call not found", nil))
		return nil, false
	}
	if lc.userID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return nil, false
	}
	return lc, true
}

// lookup is used by the websocket handler, which runs its own auth.
func (h *CallHandler) lookup(callID string) (*liveCall, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lc, ok := h.calls[callID]
	return lc, ok
}

// retire drops a finished call from the registry after the grace window.
// Deleting an already-removed entry (the view disconnected first) is a noop.
func (h *CallHandler) retire(callID string) {
	time.AfterFunc(h.finishedTTL, func() {
		h.mu.Lock()
		delete(h.calls, callID)
		h.mu.Unlock()
	})
}
