package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns canned JSON-mode output.
type fakeProvider struct {
	raw []byte
	err error
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, prompt string) ([]byte, error) {
	return f.raw, f.err
}

func (f *fakeProvider) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	close(out)
	close(errc)
	return out, errc
}

func (f *fakeProvider) Close() error { return nil }

func validScoreJSON() string {
	return `{
		"totalScore": 72,
		"categoryScores": [
			{"name": "Communication Skills", "score": 80, "comment": "clear"},
			{"name": "Technical Knowledge", "score": 70, "comment": "solid"},
			{"name": "Problem-Solving", "score": 65, "comment": "ok"},
			{"name": "Cultural & Role Fit", "score": 75, "comment": "good"},
			{"name": "Confidence & Clarity", "score": 70, "comment": "steady"}
		],
		"strengths": ["concise answers"],
		"areasForImprovement": ["edge cases"],
		"finalAssessment": "Hire with reservations."
	}`
}

func TestScoreValidOutput(t *testing.T) {
	s := NewGeminiScorer(&fakeProvider{raw: []byte(validScoreJSON())})

	res, err := s.Score(context.Background(), "candidate: hi\n")
	require.NoError(t, err)
	require.NotNil(t, res.TotalScore)
	assert.Equal(t, 72, *res.TotalScore)
	require.Len(t, res.CategoryScores, 5)
	assert.Equal(t, "Communication Skills", res.CategoryScores[0].Name)
	assert.Equal(t, "Hire with reservations.", res.FinalAssessment)
}

func TestScoreStripsFences(t *testing.T) {
	fenced := "```json\n" + validScoreJSON() + "\n```"
	s := NewGeminiScorer(&fakeProvider{raw: []byte(fenced)})

	res, err := s.Score(context.Background(), "candidate: hi\n")
	require.NoError(t, err)
	assert.Equal(t, 72, *res.TotalScore)
}

func TestScoreBackendFailure(t *testing.T) {
	s := NewGeminiScorer(&fakeProvider{err: errors.New("deadline exceeded")})

	_, err := s.Score(context.Background(), "candidate: hi\n")
	var se *ScoringError
	require.ErrorAs(t, err, &se)
	assert.ErrorContains(t, se, "deadline exceeded")
}

func TestScoreRejectsMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"not json":           `scores look great!`,
		"missing totalScore": `{"categoryScores":[],"strengths":[],"areasForImprovement":[],"finalAssessment":"x"}`,
		"totalScore high":    variantScore(`"totalScore": 101`),
		"totalScore low":     variantScore(`"totalScore": -1`),
		"missing strengths": `{
			"totalScore": 50,
			"categoryScores": [
				{"name": "Communication Skills", "score": 50},
				{"name": "Technical Knowledge", "score": 50},
				{"name": "Problem-Solving", "score": 50},
				{"name": "Cultural & Role Fit", "score": 50},
				{"name": "Confidence & Clarity", "score": 50}
			],
			"areasForImprovement": [],
			"finalAssessment": "x"
		}`,
		"empty assessment": `{
			"totalScore": 50,
			"categoryScores": [
				{"name": "Communication Skills", "score": 50},
				{"name": "Technical Knowledge", "score": 50},
				{"name": "Problem-Solving", "score": 50},
				{"name": "Cultural & Role Fit", "score": 50},
				{"name": "Confidence & Clarity", "score": 50}
			],
			"strengths": [],
			"areasForImprovement": [],
			"finalAssessment": "  "
		}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewGeminiScorer(&fakeProvider{raw: []byte(raw)})
			_, err := s.Score(context.Background(), "candidate: hi\n")
			var se *ScoringError
			require.ErrorAs(t, err, &se)
		})
	}
}

func TestScoreRejectsWrongCategories(t *testing.T) {
	wrongOrder := `{
		"totalScore": 50,
		"categoryScores": [
			{"name": "Technical Knowledge", "score": 50},
			{"name": "Communication Skills", "score": 50},
			{"name": "Problem-Solving", "score": 50},
			{"name": "Cultural & Role Fit", "score": 50},
			{"name": "Confidence & Clarity", "score": 50}
		],
		"strengths": [],
		"areasForImprovement": [],
		"finalAssessment": "x"
	}`
	s := NewGeminiScorer(&fakeProvider{raw: []byte(wrongOrder)})
	_, err := s.Score(context.Background(), "candidate: hi\n")
	require.Error(t, err)

	tooFew := `{
		"totalScore": 50,
		"categoryScores": [{"name": "Communication Skills", "score": 50}],
		"strengths": [],
		"areasForImprovement": [],
		"finalAssessment": "x"
	}`
	s = NewGeminiScorer(&fakeProvider{raw: []byte(tooFew)})
	_, err = s.Score(context.Background(), "candidate: hi\n")
	require.Error(t, err)
}

func TestScoreRejectsCategoryScoreOutOfRange(t *testing.T) {
	raw := `{
		"totalScore": 50,
		"categoryScores": [
			{"name": "Communication Skills", "score": 120},
			{"name": "Technical Knowledge", "score": 50},
			{"name": "Problem-Solving", "score": 50},
			{"name": "Cultural & Role Fit", "score": 50},
			{"name": "Confidence & Clarity", "score": 50}
		],
		"strengths": [],
		"areasForImprovement": [],
		"finalAssessment": "x"
	}`
	s := NewGeminiScorer(&fakeProvider{raw: []byte(raw)})
	_, err := s.Score(context.Background(), "candidate: hi\n")
	require.Error(t, err)
}

// A zero totalScore is a legal verdict, distinct from the field being absent.
func TestScoreZeroTotalIsValid(t *testing.T) {
	s := NewGeminiScorer(&fakeProvider{raw: []byte(variantScore(`"totalScore": 0`))})
	res, err := s.Score(context.Background(), "candidate: hi\n")
	require.NoError(t, err)
	assert.Equal(t, 0, *res.TotalScore)
}

// variantScore swaps the totalScore assignment into an otherwise valid document.
func variantScore(totalScoreField string) string {
	return fmt.Sprintf(`{
		%s,
		"categoryScores": [
			{"name": "Communication Skills", "score": 50},
			{"name": "Technical Knowledge", "score": 50},
			{"name": "Problem-Solving", "score": 50},
			{"name": "Cultural & Role Fit", "score": 50},
			{"name": "Confidence & Clarity", "score": 50}
		],
		"strengths": [],
		"areasForImprovement": [],
		"finalAssessment": "fine"
	}`, totalScoreField)
}

func TestStripJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(StripJSONFences([]byte("```json\n{\"a\":1}\n```"))))
	assert.Equal(t, `{"a":1}`, string(StripJSONFences([]byte("```\n{\"a\":1}\n```"))))
	assert.Equal(t, `{"a":1}`, string(StripJSONFences([]byte(`  {"a":1}  `))))
}

func TestGenerateQuestions(t *testing.T) {
	g := NewGeminiQuestionGenerator(&fakeProvider{raw: []byte(`["Why Go?", "Explain channels."]`)})

	qs, err := g.GenerateQuestions(context.Background(), QuestionRequest{
		Role: "Backend Engineer", Level: "senior", Type: "technical",
		Techstack: []string{"go", "postgres"}, Amount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Why Go?", "Explain channels."}, qs)
}

func TestGenerateQuestionsRejectsBadOutput(t *testing.T) {
	for name, raw := range map[string]string{
		"empty list":   `[]`,
		"blank entry":  `["Why Go?", "  "]`,
		"not an array": `{"questions": ["Why Go?"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			g := NewGeminiQuestionGenerator(&fakeProvider{raw: []byte(raw)})
			_, err := g.GenerateQuestions(context.Background(), QuestionRequest{Role: "x", Level: "junior", Amount: 1})
			require.Error(t, err)
		})
	}
}
