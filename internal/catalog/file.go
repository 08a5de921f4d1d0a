package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/errors"
)

// lessonFile is the on-disk layout of one lesson.
type lessonFile struct {
	domain.Lesson `yaml:",inline"`
	Quiz          []domain.QuizQuestion `yaml:"quiz"`
}

// FileStore serves lessons loaded once from a directory of YAML files.
type FileStore struct {
	lessons []domain.Lesson
	bySlug  map[string]int
	quizzes map[string][]domain.QuizQuestion
}

var _ Store = (*FileStore)(nil)

// LoadDir reads every *.yaml and *.yml file in dir, in file name order.
func LoadDir(dir string) (*FileStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)

	s := &FileStore{
		bySlug:  make(map[string]int, len(files)),
		quizzes: make(map[string][]domain.QuizQuestion, len(files)),
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", f, err)
		}

		if err := s.add(data); err != nil {
			return nil, fmt.Errorf("catalog: load %s: %w", f, err)
		}
	}

	return s, nil
}

func (s *FileStore) add(data []byte) error {
	var lf lessonFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid yaml"), errors.WithCause(err))
	}

	l := lf.Lesson
	if l.ID == "" || l.Slug == "" {
		return errors.InvalidArgument("lesson id and slug are required")
	}

	if _, ok := s.bySlug[l.Slug]; ok {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("duplicate lesson slug %s", l.Slug))
	}

	if _, ok := s.quizzes[l.ID]; ok {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("duplicate lesson id %s", l.ID))
	}

	if len(lf.Quiz) > 0 {
		if err := domain.ValidateQuiz(lf.Quiz); err != nil {
			return err
		}
	}

	s.bySlug[l.Slug] = len(s.lessons)
	s.lessons = append(s.lessons, l)
	s.quizzes[l.ID] = lf.Quiz

	return nil
}

func (s *FileStore) ListLessons(context.Context) ([]domain.Lesson, error) {
	return slices.Clone(s.lessons), nil
}

func (s *FileStore) GetLesson(_ context.Context, slug string) (*domain.Lesson, error) {
	i, ok := s.bySlug[slug]
	if !ok {
		return nil, errors.NotFound("lesson not found: slug=%s", slug)
	}

	l := s.lessons[i]
	return &l, nil
}

func (s *FileStore) ListQuizQuestions(_ context.Context, lessonID string) ([]domain.QuizQuestion, error) {
	q, ok := s.quizzes[lessonID]
	if !ok {
		return nil, errors.NotFound("lesson not found: id=%s", lessonID)
	}

	out := make([]domain.QuizQuestion, 0, len(q))
	for _, qq := range q {
		qq.Options = slices.Clone(qq.Options)
		out = append(out, qq)
	}

	return out, nil
}
