package ai

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"questions": []}`,
			want:  `{"questions": []}`,
		},
		{
			name:  "markdown fenced",
			input: "Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps!",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose around the payload",
			input: `Sure! The answer is {"a": [1, 2]} as requested.`,
			want:  `{"a": [1, 2]}`,
		},
		{
			name:  "bare array",
			input: `[{"question": "x"}]`,
			want:  `[{"question": "x"}]`,
		},
		{
			name:  "braces inside strings do not break the scan",
			input: `{"text": "use { and } freely", "n": 1}`,
			want:  `{"text": "use { and } freely", "n": 1}`,
		},
		{
			name:    "no json at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unbalanced payload",
			input:   `{"a": [1, 2`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSONFound) {
					t.Errorf("err = %v, want ErrNoJSONFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseGeneratedQuestions(t *testing.T) {
	t.Run("wrapper object", func(t *testing.T) {
		raw := `{"questions": [{"question": "2+2?", "options": ["3", "4"], "correct_answer": 1, "explanation": "basic"}]}`
		questions, err := parseGeneratedQuestions(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(questions) != 1 || questions[0].CorrectAnswer != 1 {
			t.Errorf("parsed %+v", questions)
		}
	})

	t.Run("bare array", func(t *testing.T) {
		raw := `[{"question": "2+2?", "options": ["3", "4"], "correct_answer": 1}]`
		questions, err := parseGeneratedQuestions(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(questions) != 1 {
			t.Errorf("got %d questions, want 1", len(questions))
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseGeneratedQuestions(`{"questions": "not a list"}`); !errors.Is(err, ErrMalformedItem) {
			t.Errorf("err = %v, want ErrMalformedItem", err)
		}
	})
}

func TestValidateGenerated(t *testing.T) {
	valid := GeneratedQuestion{
		Question:      "What is 2+2?",
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: 1,
		Explanation:   "Addition.",
	}

	tests := []struct {
		name      string
		questions []GeneratedQuestion
		wantErr   error
	}{
		{
			name:      "valid batch",
			questions: []GeneratedQuestion{valid},
			wantErr:   nil,
		},
		{
			name:      "empty batch",
			questions: nil,
			wantErr:   ErrEmptyGeneration,
		},
		{
			name: "blank question text",
			questions: []GeneratedQuestion{{
				Question: "   ", Options: []string{"a", "b"}, CorrectAnswer: 0,
			}},
			wantErr: ErrMalformedItem,
		},
		{
			name: "one option only",
			questions: []GeneratedQuestion{{
				Question: "q", Options: []string{"a"}, CorrectAnswer: 0,
			}},
			wantErr: ErrMalformedItem,
		},
		{
			name: "blank option",
			questions: []GeneratedQuestion{{
				Question: "q", Options: []string{"a", " "}, CorrectAnswer: 0,
			}},
			wantErr: ErrMalformedItem,
		},
		{
			name: "correct index out of range",
			questions: []GeneratedQuestion{{
				Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 2,
			}},
			wantErr: ErrMalformedItem,
		},
		{
			name: "negative correct index",
			questions: []GeneratedQuestion{{
				Question: "q", Options: []string{"a", "b"}, CorrectAnswer: -1,
			}},
			wantErr: ErrMalformedItem,
		},
		{
			name: "one bad item fails the whole batch",
			questions: []GeneratedQuestion{valid, {
				Question: "q", Options: []string{"a"}, CorrectAnswer: 0,
			}},
			wantErr: ErrMalformedItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGenerated(tt.questions)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
