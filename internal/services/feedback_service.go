package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/prepdeck/prepdeck/internal/cache"
	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/providers/llm"
	mongorepo "github.com/prepdeck/prepdeck/internal/repositories/mongo"
	pgrepo "github.com/prepdeck/prepdeck/internal/repositories/postgres"
	"github.com/prepdeck/prepdeck/internal/storage"
	"github.com/prepdeck/prepdeck/internal/utils"
)

// SynthesisResult is the boolean success signal the caller navigates on.
type SynthesisResult struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedback_id,omitempty"`
}

type FeedbackService interface {
	// Synthesize renders the transcript, scores it, validates the structured
	// output and upserts the Feedback record. feedbackID may be empty (a new
	// id is minted) or a previous id (retake overwrite). The write is
	// all-or-nothing: any failure leaves the store untouched.
	Synthesize(ctx context.Context, callID, interviewID, userID string, turns []call.Turn, feedbackID string) SynthesisResult
	GetByInterview(ctx context.Context, interviewID, userID string) (*models.Feedback, error)
}

type feedbackService struct {
	feedback mongorepo.FeedbackRepository
	scorer   llm.Scorer

	// best-effort extras; any of these may be nil
	archive  pgrepo.TranscriptRepo
	uploader storage.Uploader
	cache    cache.Cache

	log *logrus.Logger
}

func NewFeedbackService(
	feedback mongorepo.FeedbackRepository,
	scorer llm.Scorer,
	archive pgrepo.TranscriptRepo,
	uploader storage.Uploader,
	c cache.Cache,
	log *logrus.Logger,
) FeedbackService {
	return &feedbackService{
		feedback: feedback,
		scorer:   scorer,
		archive:  archive,
		uploader: uploader,
		cache:    c,
		log:      log,
	}
}

// RenderTranscript formats turns as "<speaker>: <text>" lines in append
// order, one per line, nothing omitted or reordered. Redundant entries are
// replayed verbatim.
func RenderTranscript(turns []call.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(string(t.Speaker))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *feedbackService) Synthesize(ctx context.Context, callID, interviewID, userID string, turns []call.Turn, feedbackID string) SynthesisResult {
	log := s.log.WithFields(logrus.Fields{
		"call_id":      callID,
		"interview_id": interviewID,
		"user_id":      userID,
	})

	if interviewID == "" || userID == "" {
		log.Warn("feedback synthesis missing interview_id or user_id")
		return SynthesisResult{}
	}

	rendered := RenderTranscript(turns)

	score, err := s.scorer.Score(ctx, rendered)
	if err != nil {
		log.WithError(err).Error("scoring failed")
		return SynthesisResult{}
	}

	if feedbackID == "" {
		feedbackID = uuid.NewString()
	}

	fb := &models.Feedback{
		FeedbackID:          feedbackID,
		InterviewID:         interviewID,
		UserID:              userID,
		TotalScore:          *score.TotalScore,
		CategoryScores:      score.CategoryScores,
		Strengths:           score.Strengths,
		AreasForImprovement: score.AreasForImprovement,
		FinalAssessment:     score.FinalAssessment,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.feedback.Upsert(ctx, fb); err != nil {
		log.WithError(err).Error("feedback upsert failed")
		return SynthesisResult{}
	}

	s.archiveTranscript(ctx, callID, interviewID, userID, turns, rendered, log)

	if s.cache != nil {
		_ = s.cache.Del(ctx, feedbackCacheKey(interviewID, userID))
	}

	log.WithField("feedback_id", feedbackID).Info("feedback persisted")
	return SynthesisResult{Success: true, FeedbackID: feedbackID}
}

func (s *feedbackService) GetByInterview(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	const op = "FeedbackService.GetByInterview"

	if interviewID == "" || userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id and user_id are required", nil)
	}

	key := feedbackCacheKey(interviewID, userID)
	if s.cache != nil {
		var cached models.Feedback
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	fb, err := s.feedback.GetByInterviewAndUser(ctx, interviewID, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "feedback not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get feedback", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, fb, 5*time.Minute)
	}
	return fb, nil
}

// archiveTranscript is post-success bookkeeping: the turn sequence goes to
// Postgres and the rendered transcript to object storage. Failures here
// never flip the synthesis result.
func (s *feedbackService) archiveTranscript(ctx context.Context, callID, interviewID, userID string, turns []call.Turn, rendered string, log *logrus.Entry) {
	if s.archive != nil && len(turns) > 0 {
		now := time.Now().UTC()
		rows := make([]models.TranscriptEntry, 0, len(turns))
		for i, t := range turns {
			rows = append(rows, models.TranscriptEntry{
				ID:          uuid.NewString(),
				UserID:      userID,
				InterviewID: interviewID,
				CallID:      callID,
				Position:    i,
				Speaker:     string(t.Speaker),
				Text:        t.Text,
				Metadata:    datatypes.JSON([]byte(`{"source":"voice"}`)),
				CreatedAt:   now,
			})
		}
		if err := s.archive.InsertBatch(ctx, rows); err != nil {
			log.WithError(err).Warn("transcript archive insert failed")
		}
	}

	if s.uploader != nil && rendered != "" {
		name := "transcripts/" + interviewID + "/" + callID + ".txt"
		if _, err := s.uploader.Upload(ctx, name, "text/plain; charset=utf-8", strings.NewReader(rendered)); err != nil {
			log.WithError(err).Warn("transcript upload failed")
		}
	}
}

func feedbackCacheKey(interviewID, userID string) string {
	return "feedback:" + interviewID + ":" + userID
}
