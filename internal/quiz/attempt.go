// Package quiz implements the state machine of one end-of-lesson quiz attempt.
//
// An Attempt is owned by a single caller and is not safe for concurrent use.
package quiz

import (
	"context"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
	"github.com/victornm/learn/internal/event"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Direction string

const (
	DirectionPrevious Direction = "previous"
	DirectionNext     Direction = "next"
)

// Publisher receives the completion event. *event.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type Config struct {
	AttemptID string
	LessonID  string
	Questions []domain.QuizQuestion
	Publisher Publisher
}

// State is a snapshot of an attempt.
type State struct {
	Status               Status         `json:"status"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Answers              map[string]int `json:"answers"`
	Completed            bool           `json:"completed"`
	// Score is set once the attempt is completed.
	Score *float64 `json:"score,omitempty"`
}

// Result is the outcome of a completed attempt.
type Result struct {
	Score     float64
	Correct   int
	Total     int
	TimeSpent time.Duration
}

type Attempt struct {
	id        string
	lessonID  string
	questions []domain.QuizQuestion
	index     map[string]int
	publisher Publisher

	status  Status
	current int
	answers map[string]int
	result  *Result
}

// New validates the questions and returns an attempt that has not started yet.
func New(c Config) (*Attempt, error) {
	if c.LessonID == "" {
		return nil, errors.InvalidArgument("quiz: lesson id is required")
	}

	if err := domain.ValidateQuiz(c.Questions); err != nil {
		return nil, err
	}

	a := &Attempt{
		id:        c.AttemptID,
		lessonID:  c.LessonID,
		questions: append([]domain.QuizQuestion(nil), c.Questions...),
		index:     make(map[string]int, len(c.Questions)),
		publisher: c.Publisher,
		status:    StatusNotStarted,
		answers:   make(map[string]int, len(c.Questions)),
	}

	for i, q := range a.questions {
		a.index[q.ID] = i
	}

	return a, nil
}

func (a *Attempt) Start() error {
	if a.status != StatusNotStarted {
		return errors.FailedPrecondition("quiz: cannot start attempt in status %s", a.status)
	}

	a.status = StatusInProgress
	return nil
}

// SelectAnswer records optionIndex for questionID, replacing any earlier answer.
func (a *Attempt) SelectAnswer(questionID string, optionIndex int) error {
	if err := a.mustBeInProgress("select answer"); err != nil {
		return err
	}

	i, ok := a.index[questionID]
	if !ok {
		return errors.NotFound("quiz: question not found: %s", questionID)
	}

	if n := len(a.questions[i].Options); optionIndex < 0 || optionIndex >= n {
		return errors.OutOfRange("quiz: option %d out of range [0, %d) for question %s", optionIndex, n, questionID)
	}

	a.answers[questionID] = optionIndex
	return nil
}

// GoTo moves the cursor one question in direction. Moving past either end is a no-op.
func (a *Attempt) GoTo(direction Direction) error {
	if err := a.mustBeInProgress("navigate"); err != nil {
		return err
	}

	switch direction {
	case DirectionPrevious:
		a.current = max(a.current-1, 0)
	case DirectionNext:
		a.current = min(a.current+1, len(a.questions)-1)
	default:
		return errors.InvalidArgument("quiz: unknown direction %q", direction)
	}

	return nil
}

// Submit completes the attempt and publishes exactly one completion event. Submitting
// a completed attempt returns the stored result and publishes nothing.
func (a *Attempt) Submit(ctx context.Context, timeSpent time.Duration) (Result, error) {
	if a.status == StatusCompleted {
		return *a.result, nil
	}

	if err := a.mustBeInProgress("submit"); err != nil {
		return Result{}, err
	}

	if timeSpent < 0 {
		return Result{}, errors.InvalidArgument("quiz: negative time spent: %s", timeSpent)
	}

	correct := 0
	for _, q := range a.questions {
		if ans, ok := a.answers[q.ID]; ok && ans == q.CorrectAnswerIndex {
			correct++
		}
	}

	score := decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(a.questions))))

	a.status = StatusCompleted
	a.result = &Result{
		Score:     score.InexactFloat64(),
		Correct:   correct,
		Total:     len(a.questions),
		TimeSpent: timeSpent,
	}

	if a.publisher != nil {
		a.publisher.Publish(ctx, domain.EventQuizCompleted{
			AttemptID: a.id,
			Report:    a.report(),
		})
	}

	return *a.result, nil
}

func (a *Attempt) report() domain.CompletionReport {
	return domain.CompletionReport{
		LessonID:  a.lessonID,
		Score:     a.result.Score,
		TimeSpent: int64(a.result.TimeSpent / time.Second),
		Answers:   maps.Clone(a.answers),
	}
}

func (a *Attempt) State() State {
	s := State{
		Status:               a.status,
		CurrentQuestionIndex: a.current,
		Answers:              maps.Clone(a.answers),
		Completed:            a.status == StatusCompleted,
	}

	if a.result != nil {
		score := a.result.Score
		s.Score = &score
	}

	return s
}

func (a *Attempt) ID() string { return a.id }

func (a *Attempt) LessonID() string { return a.lessonID }

// Questions returns the questions in quiz order.
func (a *Attempt) Questions() []domain.QuizQuestion {
	return append([]domain.QuizQuestion(nil), a.questions...)
}

// CurrentQuestion returns the question under the cursor.
func (a *Attempt) CurrentQuestion() domain.QuizQuestion {
	return a.questions[a.current]
}

func (a *Attempt) mustBeInProgress(op string) error {
	if a.status != StatusInProgress {
		return errors.FailedPrecondition("quiz: cannot %s in status %s", op, a.status)
	}
	return nil
}
