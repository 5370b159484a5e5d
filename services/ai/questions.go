package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyGeneration = errors.New("generator returned no questions")
	ErrMalformedItem   = errors.New("generated question is malformed")
)

// GeneratedQuestion is the strict shape a generated item must satisfy before
// it may be inserted into the question bank.
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // index into Options
	Explanation   string   `json:"explanation"`
}

const questionSystemPrompt = `You write multiple-choice practice questions for an Indonesian tutoring center.
Respond with JSON only: {"questions": [{"question": "...", "options": ["...", "..."], "correct_answer": 0, "explanation": "..."}]}.
Each question has exactly one correct option, referenced by zero-based index.`

// GenerateQuestions asks the LLM for count questions on the topic/level and
// validates the untrusted payload into the strict shape. Any malformed item
// rejects the whole batch; nothing partial is ever returned.
func (c *Client) GenerateQuestions(ctx context.Context, topic, level string, count int) ([]GeneratedQuestion, error) {
	userPrompt := fmt.Sprintf("Write %d multiple-choice questions about %q for level %q, four options each, with short explanations.",
		count, topic, level)

	content, err := c.ChatJSON(ctx, questionSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	questions, err := parseGeneratedQuestions(raw)
	if err != nil {
		return nil, err
	}
	return questions, ValidateGenerated(questions)
}

// parseGeneratedQuestions accepts either a bare array or the documented
// {"questions": [...]} wrapper.
func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		var questions []GeneratedQuestion
		if err := json.Unmarshal([]byte(raw), &questions); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedItem, err)
		}
		return questions, nil
	}

	var wrapper struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedItem, err)
	}
	return wrapper.Questions, nil
}

// ValidateGenerated rejects empty batches and any item missing text, with
// fewer than two options, or with a correct index out of range.
func ValidateGenerated(questions []GeneratedQuestion) error {
	if len(questions) == 0 {
		return ErrEmptyGeneration
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrMalformedItem, i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrMalformedItem, i, len(q.Options))
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d option %d is empty", ErrMalformedItem, i, j)
			}
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct_answer %d out of range", ErrMalformedItem, i, q.CorrectAnswer)
		}
	}
	return nil
}
