package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prepdeck/prepdeck/internal/models"
	pgrepo "github.com/prepdeck/prepdeck/internal/repositories/postgres"
	"github.com/prepdeck/prepdeck/internal/storage"
	"github.com/prepdeck/prepdeck/internal/utils"
)

// TranscriptHandler serves archived transcripts of finished calls. Rows are
// scoped to the caller, so ownership falls out of the query itself.
type TranscriptHandler struct {
	archive pgrepo.TranscriptRepo
	signer  storage.Signer // may be nil
	log     *logrus.Logger
}

func NewTranscriptHandler(archive pgrepo.TranscriptRepo, signer storage.Signer, log *logrus.Logger) *TranscriptHandler {
	return &TranscriptHandler{archive: archive, signer: signer, log: log}
}

type TranscriptResponse struct {
	CallID      string                   `json:"call_id"`
	InterviewID string                   `json:"interview_id"`
	Entries     []models.TranscriptEntry `json:"entries"`
	DownloadURL string                   `json:"download_url,omitempty"`
}

func (h *TranscriptHandler) Get(c *gin.Context) {
	const op = "TranscriptHandler.Get"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	if callID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing call_id", nil))
		return
	}

	rows, err := h.archive.ListByCall(c.Request.Context(), userID, callID)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to load transcript", err))
		return
	}
	if len(rows) == 0 {
		writeError(c, utils.E(utils.CodeNotFound, op, "transcript not found", nil))
		return
	}

	resp := TranscriptResponse{
		CallID:      callID,
		InterviewID: rows[0].InterviewID,
		Entries:     rows,
	}

	if h.signer != nil {
		object := "transcripts/" + resp.InterviewID + "/" + callID + ".txt"
		url, serr := h.signer.SignedGetURL(c.Request.Context(), object, 15*time.Minute)
		if serr != nil {
			h.log.WithError(serr).WithField("object", object).Warn("transcript url signing failed")
		} else {
			resp.DownloadURL = url
		}
	}

	c.JSON(http.StatusOK, resp)
}
