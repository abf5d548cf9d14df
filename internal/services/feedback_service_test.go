package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/providers/llm"
	"github.com/prepdeck/prepdeck/internal/utils"
)

type memFeedbackRepo struct {
	mu        sync.Mutex
	byID      map[string]models.Feedback
	upsertErr error
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{byID: map[string]models.Feedback{}}
}

func (r *memFeedbackRepo) Upsert(ctx context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.byID[fb.FeedbackID] = *fb
	return nil
}

func (r *memFeedbackRepo) GetByID(ctx context.Context, feedbackID string) (*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb, ok := r.byID[feedbackID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &fb, nil
}

func (r *memFeedbackRepo) GetByInterviewAndUser(ctx context.Context, interviewID, userID string) (*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fb := range r.byID {
		if fb.InterviewID == interviewID && fb.UserID == userID {
			out := fb
			return &out, nil
		}
	}
	return nil, utils.ErrNotFound
}

type stubScorer struct {
	res      *llm.ScoreResult
	err      error
	lastSeen string
}

func (s *stubScorer) Score(ctx context.Context, renderedTranscript string) (*llm.ScoreResult, error) {
	s.lastSeen = renderedTranscript
	if s.err != nil {
		return nil, s.err
	}
	return s.res, s.err
}

func passingScore() *llm.ScoreResult {
	total := 68
	return &llm.ScoreResult{
		TotalScore: &total,
		CategoryScores: []models.CategoryScore{
			{Name: "Communication Skills", Score: 70},
			{Name: "Technical Knowledge", Score: 65},
			{Name: "Problem-Solving", Score: 60},
			{Name: "Cultural & Role Fit", Score: 72},
			{Name: "Confidence & Clarity", Score: 70},
		},
		Strengths:           []string{"structured answers"},
		AreasForImprovement: []string{"deeper examples"},
		FinalAssessment:     "Solid mid-level performance.",
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestRenderTranscript(t *testing.T) {
	turns := []call.Turn{
		{Speaker: call.SpeakerCandidate, Text: "Hi"},
		{Speaker: call.SpeakerAssistant, Text: "Hello, tell me about yourself"},
	}
	assert.Equal(t, "candidate: Hi\nassistant: Hello, tell me about yourself\n", RenderTranscript(turns))
	assert.Equal(t, "", RenderTranscript(nil))
}

func TestRenderTranscriptKeepsDuplicates(t *testing.T) {
	turns := []call.Turn{
		{Speaker: call.SpeakerCandidate, Text: "yes"},
		{Speaker: call.SpeakerCandidate, Text: "yes"},
	}
	assert.Equal(t, "candidate: yes\ncandidate: yes\n", RenderTranscript(turns))
}

func TestSynthesizePersistsFeedback(t *testing.T) {
	repo := newMemFeedbackRepo()
	scorer := &stubScorer{res: passingScore()}
	svc := NewFeedbackService(repo, scorer, nil, nil, nil, quietLogger())

	turns := []call.Turn{
		{Speaker: call.SpeakerAssistant, Text: "Why Go?"},
		{Speaker: call.SpeakerCandidate, Text: "Goroutines"},
	}

	res := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", turns, "")
	require.True(t, res.Success)
	require.NotEmpty(t, res.FeedbackID)

	assert.Equal(t, "assistant: Why Go?\ncandidate: Goroutines\n", scorer.lastSeen)

	fb, err := repo.GetByID(context.Background(), res.FeedbackID)
	require.NoError(t, err)
	assert.Equal(t, "iv-1", fb.InterviewID)
	assert.Equal(t, "user-1", fb.UserID)
	assert.Equal(t, 68, fb.TotalScore)
	assert.Len(t, fb.CategoryScores, 5)
	assert.False(t, fb.CreatedAt.IsZero())
}

// An empty transcript is still a valid synthesis input.
func TestSynthesizeEmptyTranscript(t *testing.T) {
	repo := newMemFeedbackRepo()
	scorer := &stubScorer{res: passingScore()}
	svc := NewFeedbackService(repo, scorer, nil, nil, nil, quietLogger())

	res := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", nil, "")
	require.True(t, res.Success)
	assert.Equal(t, "", scorer.lastSeen)
}

func TestSynthesizeRetakeOverwrites(t *testing.T) {
	repo := newMemFeedbackRepo()
	scorer := &stubScorer{res: passingScore()}
	svc := NewFeedbackService(repo, scorer, nil, nil, nil, quietLogger())

	first := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", nil, "fb-fixed")
	require.True(t, first.Success)
	require.Equal(t, "fb-fixed", first.FeedbackID)

	before, err := repo.GetByID(context.Background(), "fb-fixed")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	better := passingScore()
	*better.TotalScore = 91
	scorer.res = better

	second := svc.Synthesize(context.Background(), "call-2", "iv-1", "user-1", nil, "fb-fixed")
	require.True(t, second.Success)
	require.Equal(t, "fb-fixed", second.FeedbackID)

	after, err := repo.GetByID(context.Background(), "fb-fixed")
	require.NoError(t, err)
	assert.Equal(t, 91, after.TotalScore)
	assert.True(t, after.CreatedAt.After(before.CreatedAt))

	repo.mu.Lock()
	assert.Len(t, repo.byID, 1)
	repo.mu.Unlock()
}

func TestSynthesizeScoringFailureWritesNothing(t *testing.T) {
	repo := newMemFeedbackRepo()
	scorer := &stubScorer{err: &llm.ScoringError{Reason: "missing totalScore"}}
	svc := NewFeedbackService(repo, scorer, nil, nil, nil, quietLogger())

	res := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", nil, "")
	assert.False(t, res.Success)
	assert.Empty(t, res.FeedbackID)

	repo.mu.Lock()
	assert.Empty(t, repo.byID)
	repo.mu.Unlock()
}

func TestSynthesizePersistFailure(t *testing.T) {
	repo := newMemFeedbackRepo()
	repo.upsertErr = errors.New("connection reset")
	svc := NewFeedbackService(repo, &stubScorer{res: passingScore()}, nil, nil, nil, quietLogger())

	res := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", nil, "")
	assert.False(t, res.Success)
}

func TestSynthesizeRequiresIdentifiers(t *testing.T) {
	repo := newMemFeedbackRepo()
	svc := NewFeedbackService(repo, &stubScorer{res: passingScore()}, nil, nil, nil, quietLogger())

	assert.False(t, svc.Synthesize(context.Background(), "call-1", "", "user-1", nil, "").Success)
	assert.False(t, svc.Synthesize(context.Background(), "call-1", "iv-1", "", nil, "").Success)
}

func TestGetByInterview(t *testing.T) {
	repo := newMemFeedbackRepo()
	svc := NewFeedbackService(repo, &stubScorer{res: passingScore()}, nil, nil, nil, quietLogger())

	res := svc.Synthesize(context.Background(), "call-1", "iv-1", "user-1", nil, "")
	require.True(t, res.Success)

	fb, err := svc.GetByInterview(context.Background(), "iv-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, res.FeedbackID, fb.FeedbackID)

	_, err = svc.GetByInterview(context.Background(), "iv-1", "someone-else")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
