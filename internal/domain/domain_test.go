package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
)

func TestValidateQuiz(t *testing.T) {
	valid := func(id string) domain.QuizQuestion {
		return domain.QuizQuestion{ID: id, Text: "Pick one", Options: []string{"a", "b"}, CorrectAnswerIndex: 1}
	}

	tests := map[string]struct {
		questions []domain.QuizQuestion
		wantErr   bool
	}{
		"valid quiz": {
			questions: []domain.QuizQuestion{valid("q1"), valid("q2")},
		},
		"empty quiz": {
			wantErr: true,
		},
		"duplicate ids": {
			questions: []domain.QuizQuestion{valid("q1"), valid("q1")},
			wantErr:   true,
		},
		"missing id": {
			questions: []domain.QuizQuestion{valid("")},
			wantErr:   true,
		},
		"single option": {
			questions: []domain.QuizQuestion{{ID: "q1", Text: "?", Options: []string{"a"}}},
			wantErr:   true,
		},
		"correct index past the end": {
			questions: []domain.QuizQuestion{{ID: "q1", Text: "?", Options: []string{"a", "b"}, CorrectAnswerIndex: 2}},
			wantErr:   true,
		},
		"negative correct index": {
			questions: []domain.QuizQuestion{{ID: "q1", Text: "?", Options: []string{"a", "b"}, CorrectAnswerIndex: -1}},
			wantErr:   true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := domain.ValidateQuiz(tt.questions)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))
		})
	}
}

func TestQuestionType(t *testing.T) {
	assert.True(t, domain.QuestionTypeMultipleChoice.Closed())
	assert.True(t, domain.QuestionTypeTrueFalse.Closed())
	assert.False(t, domain.QuestionTypeOpenEnded.Closed())
	assert.False(t, domain.QuestionType("essay").Valid())
}
