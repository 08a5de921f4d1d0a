package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/errors"
	"github.com/victornm/learn/internal/quiz"
	"github.com/victornm/learn/internal/stopwatch"
	"github.com/victornm/learn/internal/telemetry"
)

type Config struct {
	Catalog   catalog.Store
	Publisher quiz.Publisher
	Stopwatch stopwatch.Config
	// Now is used to track idle attempts, defaults to time.Now.
	Now func() time.Time
}

// Service holds live quiz attempts in memory. Nothing is persisted: the completion report
// is the only durable record of an attempt.
type Service struct {
	catalog   catalog.Store
	publisher quiz.Publisher
	watch     stopwatch.Config
	now       func() time.Time

	mu       sync.RWMutex
	attempts map[string]*entry
}

type entry struct {
	mu         sync.Mutex
	lessonSlug string
	attempt    *quiz.Attempt
	watch      *stopwatch.Stopwatch
	touched    time.Time
	// discarded is set once the entry left the registry. A caller that looked the entry
	// up before that must not act on it.
	discarded bool
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		catalog:   c.Catalog,
		publisher: c.Publisher,
		watch:     c.Stopwatch,
		now:       c.Now,
		attempts:  make(map[string]*entry),
	}
}

// QuestionView is a quiz question as shown to the learner. The correct answer is only
// included once the attempt is completed.
type QuestionView struct {
	ID                 string   `json:"id"`
	Text               string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
}

type View struct {
	AttemptID  string         `json:"attemptId"`
	LessonSlug string         `json:"lessonSlug"`
	State      quiz.State     `json:"state"`
	Questions  []QuestionView `json:"questions"`
	TimeSpent  int64          `json:"timeSpent"`
	Paused     bool           `json:"paused"`
}

type StartRequest struct {
	LessonSlug string
}

// Start creates and starts a new attempt over the lesson's quiz.
func (s *Service) Start(ctx context.Context, req StartRequest) (*View, error) {
	l, err := s.catalog.GetLesson(ctx, req.LessonSlug)
	if err != nil {
		return nil, err
	}

	questions, err := s.catalog.ListQuizQuestions(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	if len(questions) == 0 {
		return nil, errors.NotFound("lesson has no quiz: slug=%s", req.LessonSlug)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	a, err := quiz.New(quiz.Config{
		AttemptID: id.String(),
		LessonID:  l.ID,
		Questions: questions,
		Publisher: s.publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("new attempt: %w", err)
	}

	if err := a.Start(); err != nil {
		return nil, err
	}

	e := &entry{
		lessonSlug: l.Slug,
		attempt:    a,
		watch:      stopwatch.Start(s.watch),
		touched:    s.now(),
	}
	v := e.view()

	s.mu.Lock()
	s.attempts[a.ID()] = e
	s.mu.Unlock()
	telemetry.ActiveAttempts.Inc()

	slog.InfoContext(ctx, "attempt: started", "attempt_id", a.ID(), "lesson", l.Slug)

	return v, nil
}

func (s *Service) Get(_ context.Context, attemptID string) (*View, error) {
	return s.with(attemptID, func(*entry) error { return nil })
}

type SelectAnswerRequest struct {
	AttemptID   string
	QuestionID  string
	OptionIndex int
}

func (s *Service) SelectAnswer(_ context.Context, req SelectAnswerRequest) (*View, error) {
	return s.with(req.AttemptID, func(e *entry) error {
		return e.attempt.SelectAnswer(req.QuestionID, req.OptionIndex)
	})
}

type GoToRequest struct {
	AttemptID string
	Direction quiz.Direction
}

func (s *Service) GoTo(_ context.Context, req GoToRequest) (*View, error) {
	return s.with(req.AttemptID, func(e *entry) error {
		return e.attempt.GoTo(req.Direction)
	})
}

// Pause stops counting time spent, for example while the lesson view is hidden.
func (s *Service) Pause(_ context.Context, attemptID string) (*View, error) {
	return s.with(attemptID, func(e *entry) error {
		if err := e.mustBeInProgress("pause"); err != nil {
			return err
		}
		e.watch.Pause()
		return nil
	})
}

func (s *Service) Resume(_ context.Context, attemptID string) (*View, error) {
	return s.with(attemptID, func(e *entry) error {
		if err := e.mustBeInProgress("resume"); err != nil {
			return err
		}
		e.watch.Resume()
		return nil
	})
}

// Submit completes the attempt. Submitting again returns the same score without reporting
// it a second time.
func (s *Service) Submit(ctx context.Context, attemptID string) (*View, error) {
	return s.with(attemptID, func(e *entry) error {
		if e.attempt.State().Status == quiz.StatusCompleted {
			return nil
		}

		res, err := e.attempt.Submit(ctx, e.watch.Stop())
		if err != nil {
			return err
		}

		telemetry.QuizSubmissions.Inc()
		slog.InfoContext(ctx, "attempt: submitted",
			"attempt_id", attemptID,
			"lesson", e.lessonSlug,
			"score", res.Score,
			"time_spent", res.TimeSpent,
		)
		return nil
	})
}

// Discard drops the attempt and stops its stopwatch.
func (s *Service) Discard(ctx context.Context, attemptID string) error {
	s.mu.Lock()
	e, ok := s.attempts[attemptID]
	delete(s.attempts, attemptID)
	s.mu.Unlock()

	if !ok {
		return errors.NotFound("attempt not found: attempt=%s", attemptID)
	}

	s.release(e)
	slog.InfoContext(ctx, "attempt: discarded", "attempt_id", attemptID)
	return nil
}

// Sweep discards attempts that were not touched for idle and returns how many.
func (s *Service) Sweep(ctx context.Context, idle time.Duration) int {
	deadline := s.now().Add(-idle)

	var stale []*entry

	s.mu.Lock()
	for id, e := range s.attempts {
		e.mu.Lock()
		if e.touched.Before(deadline) {
			stale = append(stale, e)
			delete(s.attempts, id)
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	for _, e := range stale {
		s.release(e)
	}

	if len(stale) > 0 {
		slog.InfoContext(ctx, "attempt: swept idle attempts", "count", len(stale))
	}

	return len(stale)
}

// Close discards every attempt.
func (s *Service) Close() {
	s.mu.Lock()
	attempts := s.attempts
	s.attempts = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range attempts {
		s.release(e)
	}
}

func (s *Service) release(e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.discarded = true
	e.watch.Stop()
	telemetry.ActiveAttempts.Dec()
}

func (s *Service) with(attemptID string, fn func(e *entry) error) (*View, error) {
	s.mu.RLock()
	e, ok := s.attempts[attemptID]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound("attempt not found: attempt=%s", attemptID)
	}

	return s.apply(attemptID, e, fn)
}

func (s *Service) apply(attemptID string, e *entry, fn func(e *entry) error) (*View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.discarded {
		return nil, errors.NotFound("attempt not found: attempt=%s", attemptID)
	}

	e.touched = s.now()
	if err := fn(e); err != nil {
		return nil, err
	}

	return e.view(), nil
}

func (e *entry) mustBeInProgress(op string) error {
	if st := e.attempt.State().Status; st != quiz.StatusInProgress {
		return errors.FailedPrecondition("attempt: cannot %s in status %s", op, st)
	}
	return nil
}

// view must be called with e.mu held.
func (e *entry) view() *View {
	st := e.attempt.State()

	qs := e.attempt.Questions()
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		v := QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
		if st.Completed {
			idx := q.CorrectAnswerIndex
			v.CorrectAnswerIndex = &idx
		}
		views = append(views, v)
	}

	return &View{
		AttemptID:  e.attempt.ID(),
		LessonSlug: e.lessonSlug,
		State:      st,
		Questions:  views,
		TimeSpent:  int64(e.watch.Elapsed() / time.Second),
		Paused:     e.watch.Paused(),
	}
}
