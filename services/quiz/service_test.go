package quiz

import (
	"testing"

	"github.com/bimbelkita/bimbel-api/model"
)

func mcq(id uint, correct int, total int) model.Question {
	q := model.Question{ID: id}
	for i := 0; i < total; i++ {
		q.Options = append(q.Options, model.QuestionOption{
			Position:  i,
			IsCorrect: i == correct,
		})
	}
	return q
}

func TestScore(t *testing.T) {
	questions := []model.Question{
		mcq(1, 0, 4),
		mcq(2, 1, 4),
		mcq(3, 0, 4),
		mcq(4, 2, 4),
	}

	tests := []struct {
		name    string
		answers map[uint]int
		want    float64
	}{
		{
			name:    "three of four correct",
			answers: map[uint]int{1: 0, 2: 1, 3: 1, 4: 2},
			want:    75,
		},
		{
			name:    "all correct",
			answers: map[uint]int{1: 0, 2: 1, 3: 0, 4: 2},
			want:    100,
		},
		{
			name:    "all wrong",
			answers: map[uint]int{1: 3, 2: 3, 3: 3, 4: 3},
			want:    0,
		},
		{
			name:    "unanswered counts as wrong",
			answers: map[uint]int{1: 0, 2: 1},
			want:    50,
		},
		{
			name:    "out-of-range pick counts as wrong",
			answers: map[uint]int{1: 99, 2: 1, 3: 0, 4: 2},
			want:    75,
		},
		{
			name:    "answers for unknown questions are ignored",
			answers: map[uint]int{1: 0, 2: 1, 3: 0, 4: 2, 77: 0},
			want:    100,
		},
		{
			name:    "empty answer map",
			answers: map[uint]int{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(questions, tt.answers); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreNoQuestions(t *testing.T) {
	if got := Score(nil, map[uint]int{1: 0}); got != 0 {
		t.Errorf("Score() = %v, want 0 for empty package", got)
	}
}

func TestScoreFractional(t *testing.T) {
	questions := []model.Question{mcq(1, 0, 2), mcq(2, 0, 2), mcq(3, 0, 2)}

	got := Score(questions, map[uint]int{1: 0})
	want := float64(1) / 3 * 100
	if got != want {
		t.Errorf("Score() = %v, want %v (no rounding)", got, want)
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		options []OptionInput
		wantErr error
	}{
		{
			name: "valid pair",
			options: []OptionInput{
				{Text: "a", IsCorrect: true},
				{Text: "b"},
			},
			wantErr: nil,
		},
		{
			name:    "single option",
			options: []OptionInput{{Text: "a", IsCorrect: true}},
			wantErr: ErrTooFewOptions,
		},
		{
			name: "no correct option",
			options: []OptionInput{
				{Text: "a"},
				{Text: "b"},
			},
			wantErr: ErrCorrectCount,
		},
		{
			name: "two correct options",
			options: []OptionInput{
				{Text: "a", IsCorrect: true},
				{Text: "b", IsCorrect: true},
			},
			wantErr: ErrCorrectCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateOptions(tt.options); err != tt.wantErr {
				t.Errorf("ValidateOptions() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
