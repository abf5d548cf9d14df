package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/providers/llm"
	"github.com/prepdeck/prepdeck/internal/services"
	"github.com/prepdeck/prepdeck/internal/utils"
)

type InterviewHandler struct {
	interviews services.InterviewService
	feedback   services.FeedbackService
	log        *logrus.Logger
}

func NewInterviewHandler(interviews services.InterviewService, feedback services.FeedbackService, log *logrus.Logger) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, feedback: feedback, log: log}
}

type generateInterviewRequest struct {
	Role      string   `json:"role" binding:"required"`
	Level     string   `json:"level" binding:"required"`
	Type      string   `json:"type"`
	Techstack []string `json:"techstack"`
	Amount    int      `json:"amount"`
}

func (h *InterviewHandler) Generate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req generateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Generate", "invalid request body", err))
		return
	}

	iv, err := h.interviews.Generate(c.Request.Context(), userID, llm.QuestionRequest{
		Role:      req.Role,
		Level:     req.Level,
		Type:      req.Type,
		Techstack: req.Techstack,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, iv)
}

func (h *InterviewHandler) GetByID(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	iv, err := h.interviews.GetByID(c.Request.Context(), c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv)
}

func (h *InterviewHandler) ListMine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ivs, err := h.interviews.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": ivs})
}

// ListLatest returns finalized interviews by other users, for the browse page.
func (h *InterviewHandler) ListLatest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.ListLatest", "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	ivs, err := h.interviews.ListLatest(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": ivs})
}

// GetFeedback serves the synthesized report for one of the caller's interviews.
func (h *InterviewHandler) GetFeedback(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fb, err := h.feedback.GetByInterview(c.Request.Context(), c.Param("interview_id"), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fb)
}
