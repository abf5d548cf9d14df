package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/prepdeck/internal/cache"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/providers/llm"
	mongorepo "github.com/prepdeck/prepdeck/internal/repositories/mongo"
	"github.com/prepdeck/prepdeck/internal/utils"
)

var coverImages = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

type InterviewService interface {
	// Generate creates a finalized interview with model-generated questions.
	Generate(ctx context.Context, userID string, req llm.QuestionRequest) (*models.Interview, error)
	GetByID(ctx context.Context, interviewID string) (*models.Interview, error)
	ListByUser(ctx context.Context, userID string) ([]models.Interview, error)
	ListLatest(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error)
}

type interviewService struct {
	interviews mongorepo.InterviewRepository
	generator  llm.QuestionGenerator
	cache      cache.Cache // may be nil
}

func NewInterviewService(interviews mongorepo.InterviewRepository, generator llm.QuestionGenerator, c cache.Cache) InterviewService {
	return &interviewService{interviews: interviews, generator: generator, cache: c}
}

func (s *interviewService) Generate(ctx context.Context, userID string, req llm.QuestionRequest) (*models.Interview, error) {
	const op = "InterviewService.Generate"

	if userID == "" || req.Role == "" || req.Level == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id, role, and level are required", nil)
	}
	if req.Amount <= 0 {
		req.Amount = 5
	}
	if req.Type == "" {
		req.Type = "mixed"
	}

	questions, err := s.generator.GenerateQuestions(ctx, req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "question generation failed", err)
	}

	iv := &models.Interview{
		InterviewID: uuid.NewString(),
		UserID:      userID,
		Role:        req.Role,
		Level:       req.Level,
		Type:        req.Type,
		Techstack:   req.Techstack,
		Questions:   questions,
		CoverImage:  coverImages[rand.Intn(len(coverImages))],
		Finalized:   true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.interviews.Create(ctx, iv); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}
	return iv, nil
}

func (s *interviewService) GetByID(ctx context.Context, interviewID string) (*models.Interview, error) {
	const op = "InterviewService.GetByID"

	if interviewID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_id is required", nil)
	}

	key := "interview:" + interviewID
	if s.cache != nil {
		var cached models.Interview
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	iv, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}

	// finalized interviews are immutable, so a long TTL is safe
	if s.cache != nil && iv.Finalized {
		_ = s.cache.SetJSON(ctx, key, iv, 30*time.Minute)
	}
	return iv, nil
}

func (s *interviewService) ListByUser(ctx context.Context, userID string) ([]models.Interview, error) {
	const op = "InterviewService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	out, err := s.interviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interviews", err)
	}
	return out, nil
}

func (s *interviewService) ListLatest(ctx context.Context, excludeUserID string, limit int64) ([]models.Interview, error) {
	const op = "InterviewService.ListLatest"

	out, err := s.interviews.ListLatestExcluding(ctx, excludeUserID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list latest interviews", err)
	}
	return out, nil
}
