// Package catalog loads authored lessons and their quiz questions.
package catalog

import (
	"context"

	"github.com/victornm/learn/internal/domain"
)

// Store is a read-only source of lessons. Implementations return errors with
// errors.CodeNotFound for unknown lessons.
type Store interface {
	ListLessons(ctx context.Context) ([]domain.Lesson, error)
	GetLesson(ctx context.Context, slug string) (*domain.Lesson, error)
	// ListQuizQuestions returns the quiz of a lesson in quiz order. A lesson without a
	// quiz yields an empty list.
	ListQuizQuestions(ctx context.Context, lessonID string) ([]domain.QuizQuestion, error)
}

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)
