package domain

import (
	"github.com/victornm/learn/internal/errors"
)

// Lesson is an authored content unit. Content carries the section and question markers
// understood by the content parser.
type Lesson struct {
	ID              string `json:"id" yaml:"id"`
	Slug            string `json:"slug" yaml:"slug"`
	Level           string `json:"level" yaml:"level"`
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description"`
	Content         string `json:"content" yaml:"content"`
	DurationMinutes int    `json:"durationMinutes" yaml:"duration_minutes"`
	RewardPoints    int    `json:"rewardPoints" yaml:"reward_points"`
}

// LessonSummary is the lesson list entry, without content.
type LessonSummary struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (l Lesson) Summary() LessonSummary {
	return LessonSummary{
		ID:          l.ID,
		Slug:        l.Slug,
		Level:       l.Level,
		Title:       l.Title,
		Description: l.Description,
	}
}

// Section is a titled span of lesson prose.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Ordinal int    `json:"ordinal"`
	Level   int    `json:"level"`
}

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeOpenEnded      QuestionType = "open-ended"
)

// Closed reports whether the type requires exactly one correct option.
func (t QuestionType) Closed() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeOpenEnded:
		return true
	default:
		return false
	}
}

// InlineQuestion is a think-first question embedded in lesson prose.
type InlineQuestion struct {
	ID                 string       `json:"id"`
	Text               string       `json:"questionText"`
	Type               QuestionType `json:"type"`
	Options            []string     `json:"options"`
	CorrectAnswerIndex *int         `json:"correctAnswerIndex,omitempty"`
	Explanation        string       `json:"explanation,omitempty"`
}

// QuizQuestion is an authored end-of-lesson assessment question.
type QuizQuestion struct {
	ID                 string   `json:"id" yaml:"id"`
	Text               string   `json:"questionText" yaml:"question"`
	Options            []string `json:"options" yaml:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correct_answer_index"`
}

func (q QuizQuestion) Validate() error {
	if q.ID == "" {
		return errors.InvalidArgument("quiz question: id is required")
	}

	if q.Text == "" {
		return errors.InvalidArgument("quiz question %s: question text is required", q.ID)
	}

	if len(q.Options) < 2 {
		return errors.InvalidArgument("quiz question %s: need at least 2 options, got %d", q.ID, len(q.Options))
	}

	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return errors.InvalidArgument("quiz question %s: correct answer index %d out of range [0, %d)",
			q.ID, q.CorrectAnswerIndex, len(q.Options))
	}

	return nil
}

// ValidateQuiz checks every question and that IDs are unique.
func ValidateQuiz(questions []QuizQuestion) error {
	if len(questions) == 0 {
		return errors.InvalidArgument("quiz: at least one question is required")
	}

	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}

		if _, ok := seen[q.ID]; ok {
			return errors.InvalidArgument("quiz: duplicate question id %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	return nil
}

// CompletionReport is the outbound record of a finished quiz attempt.
type CompletionReport struct {
	LessonID  string         `json:"lessonId"`
	Score     float64        `json:"score"`
	TimeSpent int64          `json:"timeSpent"`
	Answers   map[string]int `json:"answers"`
}

// ReadingSession is one learner viewing one lesson.
type ReadingSession struct {
	SessionID  string `json:"sessionId"`
	LessonSlug string `json:"lessonSlug"`
}

// ProgressSnapshot is the read-through progress of a reading session. It is derived on
// every read and never stored.
type ProgressSnapshot struct {
	SessionID         string   `json:"sessionId"`
	LessonSlug        string   `json:"lessonSlug"`
	Percentage        float64  `json:"percentage"`
	CompletedSections []string `json:"completedSections"`
	RevealedQuestions []string `json:"revealedQuestions"`
	TotalSections     int      `json:"totalSections"`
	TotalQuestions    int      `json:"totalQuestions"`
}
