package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
)

const blocksLesson = `
id: lesson-blocks
slug: what-is-a-block
level: beginner
title: What is a block
description: Blocks and how they chain.
duration_minutes: 8
reward_points: 25
content: |
  # Blocks
  A block groups transactions.
quiz:
  - id: q1
    question: What does a block contain?
    options: [Validators, Transactions]
    correct_answer_index: 1
  - id: q2
    question: What links blocks?
    options: [Parent hashes, Timestamps, Nonces]
    correct_answer_index: 0
`

const walletsLesson = `
id: lesson-wallets
slug: wallets
title: Wallets
content: "# Keys"
`

func TestLoadDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"01-blocks.yaml": blocksLesson,
		"02-wallets.yml": walletsLesson,
		"README.md":      "not a lesson",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts.yaml"), 0o755))

	s, err := catalog.LoadDir(dir)
	require.NoError(t, err)

	ctx := context.Background()

	lessons, err := s.ListLessons(ctx)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, domain.Lesson{
		ID:              "lesson-blocks",
		Slug:            "what-is-a-block",
		Level:           "beginner",
		Title:           "What is a block",
		Description:     "Blocks and how they chain.",
		Content:         "# Blocks\nA block groups transactions.\n",
		DurationMinutes: 8,
		RewardPoints:    25,
	}, lessons[0])
	assert.Equal(t, "wallets", lessons[1].Slug)

	l, err := s.GetLesson(ctx, "wallets")
	require.NoError(t, err)
	assert.Equal(t, "lesson-wallets", l.ID)

	_, err = s.GetLesson(ctx, "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)

	qs, err := s.ListQuizQuestions(ctx, "lesson-blocks")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, domain.QuizQuestion{
		ID:                 "q1",
		Text:               "What does a block contain?",
		Options:            []string{"Validators", "Transactions"},
		CorrectAnswerIndex: 1,
	}, qs[0])

	qs, err = s.ListQuizQuestions(ctx, "lesson-wallets")
	require.NoError(t, err)
	assert.Empty(t, qs)

	_, err = s.ListQuizQuestions(ctx, "nope")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)
}

func TestLoadDir_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"broken yaml": {
			"a.yaml": "id: [unterminated",
		},
		"missing slug": {
			"a.yaml": "id: x\ntitle: y",
		},
		"duplicate slug": {
			"a.yaml": "id: a\nslug: same",
			"b.yaml": "id: b\nslug: same",
		},
		"duplicate id": {
			"a.yaml": "id: same\nslug: a",
			"b.yaml": "id: same\nslug: b",
		},
		"invalid quiz question": {
			"a.yaml": "id: a\nslug: a\nquiz:\n  - id: q1\n    question: only one option\n    options: [x]\n",
		},
	}

	for name, files := range tests {
		files := files
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := catalog.LoadDir(writeFiles(t, files))
			require.Error(t, err)
		})
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := catalog.LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestFileStore_ReturnsCopies(t *testing.T) {
	s, err := catalog.LoadDir(writeFiles(t, map[string]string{"a.yaml": blocksLesson}))
	require.NoError(t, err)

	ctx := context.Background()
	qs, err := s.ListQuizQuestions(ctx, "lesson-blocks")
	require.NoError(t, err)
	qs[0].Options[0] = "changed"

	qs, err = s.ListQuizQuestions(ctx, "lesson-blocks")
	require.NoError(t, err)
	assert.Equal(t, "Validators", qs[0].Options[0])
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}
	return dir
}
