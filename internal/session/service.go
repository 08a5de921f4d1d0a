package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/content"
	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
	"github.com/victornm/learn/internal/progress"
	"github.com/victornm/learn/internal/telemetry"
)

const defaultTTL = 24 * time.Hour

type Config struct {
	Redis   redis.UniversalClient
	Catalog catalog.Store
	Prefix  string
	// TTL is how long an idle reading session is kept.
	TTL time.Duration
}

// Service tracks reading sessions. A session belongs to one learner viewing one lesson and
// records which sections were completed and which inline questions were revealed.
type Service struct {
	redis   redis.UniversalClient
	catalog catalog.Store
	prefix  string
	ttl     time.Duration

	mu     sync.Mutex
	parsed map[string]parsedContent
}

// parsedContent is the parse of one lesson body, reused while the body is unchanged.
type parsedContent struct {
	content string
	result  content.Result
}

func NewService(c Config) *Service {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}

	return &Service{
		redis:   c.Redis,
		catalog: c.Catalog,
		prefix:  c.Prefix,
		ttl:     c.TTL,
		parsed:  make(map[string]parsedContent),
	}
}

// ParsedLesson is a lesson together with its parsed content.
type ParsedLesson struct {
	Lesson domain.Lesson
	Parsed content.Result
}

// GetLesson loads and parses a lesson. The parse is cached per lesson until its content
// changes, and the returned Parsed must not be modified.
func (s *Service) GetLesson(ctx context.Context, slug string) (*ParsedLesson, error) {
	l, err := s.catalog.GetLesson(ctx, slug)
	if err != nil {
		return nil, err
	}

	return &ParsedLesson{Lesson: *l, Parsed: s.parse(l)}, nil
}

func (s *Service) parse(l *domain.Lesson) content.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pc, ok := s.parsed[l.ID]; ok && pc.content == l.Content {
		return pc.result
	}

	res := content.Parse(l.Content)
	if n := len(res.Skipped); n > 0 {
		telemetry.MalformedBlocks.Add(float64(n))
	}

	s.parsed[l.ID] = parsedContent{content: l.Content, result: res}
	return res
}

type CreateSessionRequest struct {
	LessonSlug string
}

// CreateSession starts a reading session with nothing completed.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.ReadingSession, error) {
	if _, err := s.catalog.GetLesson(ctx, req.LessonSlug); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ss := &domain.ReadingSession{
		SessionID:  id.String(),
		LessonSlug: req.LessonSlug,
	}

	if err := s.redis.Set(ctx, s.sessionKey(ss.SessionID), ss.LessonSlug, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return ss, nil
}

type CompleteSectionRequest struct {
	SessionID string
	SectionID string
}

// CompleteSection marks a section as read. Marking it again changes nothing.
func (s *Service) CompleteSection(ctx context.Context, req CompleteSectionRequest) (*domain.ProgressSnapshot, error) {
	pl, err := s.sessionLesson(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if !slices.ContainsFunc(pl.Parsed.Sections, func(sec domain.Section) bool { return sec.ID == req.SectionID }) {
		return nil, errors.NotFound("section not found: lesson=%s section=%s", pl.Lesson.Slug, req.SectionID)
	}

	if err := s.track(ctx, req.SessionID, s.sectionsKey(req.SessionID), req.SectionID); err != nil {
		return nil, fmt.Errorf("complete section: %w", err)
	}

	return s.snapshot(ctx, req.SessionID, pl)
}

type RevealQuestionRequest struct {
	SessionID  string
	QuestionID string
}

// RevealQuestion marks an inline question as revealed. Revealing it again changes nothing.
func (s *Service) RevealQuestion(ctx context.Context, req RevealQuestionRequest) (*domain.ProgressSnapshot, error) {
	pl, err := s.sessionLesson(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if !slices.ContainsFunc(pl.Parsed.Questions, func(q domain.InlineQuestion) bool { return q.ID == req.QuestionID }) {
		return nil, errors.NotFound("question not found: lesson=%s question=%s", pl.Lesson.Slug, req.QuestionID)
	}

	if err := s.track(ctx, req.SessionID, s.questionsKey(req.SessionID), req.QuestionID); err != nil {
		return nil, fmt.Errorf("reveal question: %w", err)
	}

	return s.snapshot(ctx, req.SessionID, pl)
}

type GetProgressRequest struct {
	SessionID string
}

func (s *Service) GetProgress(ctx context.Context, req GetProgressRequest) (*domain.ProgressSnapshot, error) {
	pl, err := s.sessionLesson(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	return s.snapshot(ctx, req.SessionID, pl)
}

func (s *Service) sessionLesson(ctx context.Context, sessionID string) (*ParsedLesson, error) {
	slug, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFound("reading session not found: session=%s", sessionID)
	}

	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return s.GetLesson(ctx, slug)
}

// track adds id to the set at key and extends the lifetime of the whole session.
func (s *Service) track(ctx context.Context, sessionID, key, id string) error {
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, id)
		p.Expire(ctx, key, s.ttl)
		p.Expire(ctx, s.sectionsKey(sessionID), s.ttl)
		p.Expire(ctx, s.questionsKey(sessionID), s.ttl)
		p.Expire(ctx, s.sessionKey(sessionID), s.ttl)
		return nil
	})
	return err
}

func (s *Service) snapshot(ctx context.Context, sessionID string, pl *ParsedLesson) (*domain.ProgressSnapshot, error) {
	var sections, questions *redis.StringSliceCmd
	_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		sections = p.SMembers(ctx, s.sectionsKey(sessionID))
		questions = p.SMembers(ctx, s.questionsKey(sessionID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	completed, revealed := append([]string{}, sections.Val()...), append([]string{}, questions.Val()...)
	slices.Sort(completed)
	slices.Sort(revealed)

	return &domain.ProgressSnapshot{
		SessionID:         sessionID,
		LessonSlug:        pl.Lesson.Slug,
		Percentage:        progress.ForLesson(pl.Parsed, progress.NewIDSet(completed...), progress.NewIDSet(revealed...)),
		CompletedSections: completed,
		RevealedQuestions: revealed,
		TotalSections:     len(pl.Parsed.Sections),
		TotalQuestions:    len(pl.Parsed.Questions),
	}, nil
}

func (s *Service) sessionKey(session string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, session)
}

func (s *Service) sectionsKey(session string) string {
	return fmt.Sprintf("%s:session:%s:sections", s.prefix, session)
}

func (s *Service) questionsKey(session string) string {
	return fmt.Sprintf("%s:session:%s:questions", s.prefix, session)
}
