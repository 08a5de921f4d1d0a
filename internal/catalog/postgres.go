package catalog

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
)

//go:embed schema.sql
var schema string

type PGStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Migrate creates the catalog tables when they do not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

const lessonColumns = `lesson_id, slug, level, title, description, content, duration_minutes, reward_points`

func (s *PGStore) ListLessons(ctx context.Context) ([]domain.Lesson, error) {
	const stmt = `SELECT ` + lessonColumns + ` FROM lessons ORDER BY position, slug;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("catalog: list lessons: %w", err)
	}

	lessons, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Lesson, error) {
		return scanLesson(r)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list lessons: %w", err)
	}

	return lessons, nil
}

func (s *PGStore) GetLesson(ctx context.Context, slug string) (*domain.Lesson, error) {
	const stmt = `SELECT ` + lessonColumns + ` FROM lessons WHERE slug = $1;`

	l, err := scanLesson(s.db.QueryRow(ctx, stmt, slug))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("lesson not found: slug=%s", slug),
			errors.WithCause(err))
	}

	if err != nil {
		return nil, fmt.Errorf("catalog: get lesson: %w", err)
	}

	return &l, nil
}

func (s *PGStore) ListQuizQuestions(ctx context.Context, lessonID string) ([]domain.QuizQuestion, error) {
	const stmt = `
SELECT question_id, question_text, options, correct_answer_index
FROM quiz_questions
WHERE lesson_id = $1
ORDER BY position;`

	rows, err := s.db.Query(ctx, stmt, lessonID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list quiz questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.QuizQuestion, error) {
		var q domain.QuizQuestion
		if err := r.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswerIndex); err != nil {
			return domain.QuizQuestion{}, err
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list quiz questions: %w", err)
	}

	return questions, nil
}

func scanLesson(r pgx.Row) (domain.Lesson, error) {
	var l domain.Lesson
	err := r.Scan(&l.ID, &l.Slug, &l.Level, &l.Title, &l.Description, &l.Content, &l.DurationMinutes, &l.RewardPoints)
	return l, err
}
