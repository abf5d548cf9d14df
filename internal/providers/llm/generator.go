package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionRequest struct {
	Role      string
	Level     string
	Type      string // behavioural|technical|mixed
	Techstack []string
	Amount    int
}

// QuestionGenerator produces the question list for a new interview.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error)
}

type GeminiQuestionGenerator struct {
	p Provider
}

func NewGeminiQuestionGenerator(p Provider) *GeminiQuestionGenerator {
	return &GeminiQuestionGenerator{p: p}
}

func (g *GeminiQuestionGenerator) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	prompt := fmt.Sprintf(`Prepare questions for a job interview.
Job role: %s
Experience level: %s
Tech stack: %s
Focus on: %s (behavioural/technical)
Number of questions: %d

Return ONLY a valid JSON array of strings like:
["Question 1", "Question 2"]

No extra text. No explanations. No formatting except valid JSON.`,
		req.Role, req.Level, strings.Join(req.Techstack, ", "), req.Type, req.Amount)

	raw, err := g.p.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, &ScoringError{Reason: "question generation call failed", Err: err}
	}

	var questions []string
	if err := json.Unmarshal(StripJSONFences(raw), &questions); err != nil {
		return nil, &ScoringError{Reason: "model did not return a JSON array of strings", Err: err}
	}
	if len(questions) == 0 {
		return nil, &ScoringError{Reason: "model returned an empty question list"}
	}
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, &ScoringError{Reason: fmt.Sprintf("question %d is empty", i)}
		}
	}
	return questions, nil
}
