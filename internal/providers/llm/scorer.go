package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prepdeck/prepdeck/internal/models"
)

// RubricCategories is the fixed rubric applied to every interview, in the
// order the feedback view presents them.
var RubricCategories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem-Solving",
	"Cultural & Role Fit",
	"Confidence & Clarity",
}

// ScoreResult is the structured verdict the scoring model must produce.
// TotalScore is an independent field: no normalization against the category
// scores is enforced or applied.
type ScoreResult struct {
	TotalScore          *int                   `json:"totalScore"`
	CategoryScores      []models.CategoryScore `json:"categoryScores"`
	Strengths           []string               `json:"strengths"`
	AreasForImprovement []string               `json:"areasForImprovement"`
	FinalAssessment     string                 `json:"finalAssessment"`
}

// Scorer turns a rendered transcript into a validated ScoreResult.
type Scorer interface {
	Score(ctx context.Context, renderedTranscript string) (*ScoreResult, error)
}

// ScoringError covers both transport failure to the scoring backend and
// malformed model output. Nothing downstream persists when it is returned.
type ScoringError struct {
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring: %s: %v", e.Reason, e.Err)
	}
	return "scoring: " + e.Reason
}

func (e *ScoringError) Unwrap() error { return e.Err }

// GeminiScorer scores transcripts through an LLM provider's JSON mode.
type GeminiScorer struct {
	p Provider
}

func NewGeminiScorer(p Provider) *GeminiScorer { return &GeminiScorer{p: p} }

func (g *GeminiScorer) Score(ctx context.Context, renderedTranscript string) (*ScoreResult, error) {
	prompt := scorePrompt(renderedTranscript)

	raw, err := g.p.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, &ScoringError{Reason: "scoring backend call failed", Err: err}
	}

	var res ScoreResult
	if err := json.Unmarshal(StripJSONFences(raw), &res); err != nil {
		return nil, &ScoringError{Reason: "model output is not valid JSON", Err: err}
	}
	if err := validateScore(&res); err != nil {
		return nil, &ScoringError{Reason: err.Error()}
	}
	return &res, nil
}

func scorePrompt(transcript string) string {
	var sb strings.Builder
	sb.WriteString("You are a professional interviewer analyzing a mock interview. Be strict.\n\nTranscript:\n")
	sb.WriteString(transcript)
	sb.WriteString("\nScore the candidate 0-100 for each category:\n")
	for _, c := range RubricCategories {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString(`
Respond with a single JSON object:
{"totalScore":0,"categoryScores":[{"name":"...","score":0,"comment":"..."}],"strengths":["..."],"areasForImprovement":["..."],"finalAssessment":"..."}
categoryScores must contain exactly the five categories above, in order.`)
	return sb.String()
}

// validateScore is a strict schema check: a missing field or wrong shape
// fails the whole operation rather than persisting a partial record.
func validateScore(res *ScoreResult) error {
	if res.TotalScore == nil {
		return fmt.Errorf("missing totalScore")
	}
	if *res.TotalScore < 0 || *res.TotalScore > 100 {
		return fmt.Errorf("totalScore %d out of range", *res.TotalScore)
	}
	if len(res.CategoryScores) != len(RubricCategories) {
		return fmt.Errorf("expected %d category scores, got %d", len(RubricCategories), len(res.CategoryScores))
	}
	for i, cs := range res.CategoryScores {
		if cs.Name != RubricCategories[i] {
			return fmt.Errorf("category %d: expected %q, got %q", i, RubricCategories[i], cs.Name)
		}
		if cs.Score < 0 || cs.Score > 100 {
			return fmt.Errorf("category %q score %d out of range", cs.Name, cs.Score)
		}
	}
	if res.Strengths == nil {
		return fmt.Errorf("missing strengths")
	}
	if res.AreasForImprovement == nil {
		return fmt.Errorf("missing areasForImprovement")
	}
	if strings.TrimSpace(res.FinalAssessment) == "" {
		return fmt.Errorf("missing finalAssessment")
	}
	return nil
}

// StripJSONFences removes markdown code fences some models wrap around JSON.
func StripJSONFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}
