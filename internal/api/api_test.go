package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/learn/internal/api"
	"github.com/victornm/learn/internal/attempt"
	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/domain"
	"github.com/victornm/learn/internal/event"
	"github.com/victornm/learn/internal/session"
	"github.com/victornm/learn/internal/stopwatch"
)

const lessonFile = `
id: lesson-blocks
slug: blocks
level: beginner
title: Blocks
description: How blocks chain.
content: |
  # Blocks

  A block groups transactions.

  ::: question
  What links a block to its parent?
  - The parent hash (correct)
  - The timestamp
  > Each block stores the hash of the previous one.
  :::

  # Forks

  Two valid blocks can briefly compete.
quiz:
  - {id: q1, question: One, options: [a, b, c, d], correct_answer_index: 0}
  - {id: q2, question: Two, options: [a, b, c, d], correct_answer_index: 1}
  - {id: q3, question: Three, options: [a, b, c, d], correct_answer_index: 2}
  - {id: q4, question: Four, options: [a, b, c, d], correct_answer_index: 3}
  - {id: q5, question: Five, options: [a, b, c, d], correct_answer_index: 1}
`

func TestAPI_Lessons(t *testing.T) {
	f := makeFixture(t)

	var list []domain.LessonSummary
	f.do(t, http.MethodGet, "/api/lessons", nil, http.StatusOK, &list)
	assert.Equal(t, []domain.LessonSummary{{
		ID:          "lesson-blocks",
		Slug:        "blocks",
		Level:       "beginner",
		Title:       "Blocks",
		Description: "How blocks chain.",
	}}, list)

	var l api.LessonResponse
	f.do(t, http.MethodGet, "/api/lessons/blocks", nil, http.StatusOK, &l)
	assert.Equal(t, "Blocks", l.Title)
	require.Len(t, l.Sections, 2)
	assert.Equal(t, "section-0", l.Sections[0].ID)
	assert.Equal(t, "Forks", l.Sections[1].Title)
	require.Len(t, l.Questions, 1)
	assert.Equal(t, "question-0", l.Questions[0].ID)
	assert.NotContains(t, l.DisplayContent, ":::")
	assert.NotContains(t, l.DisplayContent, l.Questions[0].Text)

	f.do(t, http.MethodGet, "/api/lessons/missing", nil, http.StatusNotFound, nil)
}

func TestAPI_ReadingSession(t *testing.T) {
	f := makeFixture(t)

	var ss domain.ReadingSession
	f.do(t, http.MethodPost, "/api/lessons/blocks/sessions", nil, http.StatusCreated, &ss)
	require.NotEmpty(t, ss.SessionID)

	base := "/api/sessions/" + ss.SessionID

	var p domain.ProgressSnapshot
	f.do(t, http.MethodPost, base+"/sections/section-0/complete", nil, http.StatusOK, &p)
	assert.Equal(t, 33.33, p.Percentage)

	f.do(t, http.MethodPost, base+"/questions/question-0/reveal", nil, http.StatusOK, &p)
	assert.Equal(t, 66.66, p.Percentage)

	f.do(t, http.MethodPost, base+"/sections/section-1/complete", nil, http.StatusOK, &p)
	assert.Equal(t, 100.0, p.Percentage)

	f.do(t, http.MethodGet, base+"/progress", nil, http.StatusOK, &p)
	assert.Equal(t, 100.0, p.Percentage)

	f.do(t, http.MethodPost, base+"/sections/section-7/complete", nil, http.StatusNotFound, nil)
	f.do(t, http.MethodGet, "/api/sessions/unknown/progress", nil, http.StatusNotFound, nil)
}

func TestAPI_QuizAttempt(t *testing.T) {
	f := makeFixture(t)

	var v attempt.View
	f.do(t, http.MethodPost, "/api/lessons/blocks/attempts", nil, http.StatusCreated, &v)
	require.NotEmpty(t, v.AttemptID)
	require.Len(t, v.Questions, 5)

	base := "/api/attempts/" + v.AttemptID

	for q, opt := range map[string]int{"q1": 0, "q2": 1, "q3": 2, "q4": 0} {
		f.do(t, http.MethodPut, base+"/answers/"+q, map[string]any{"optionIndex": opt}, http.StatusOK, &v)
	}

	f.do(t, http.MethodPost, base+"/navigate", map[string]any{"direction": "previous"}, http.StatusOK, &v)
	assert.Equal(t, 0, v.State.CurrentQuestionIndex, "navigating before the first question should clamp")

	f.do(t, http.MethodPost, base+"/pause", nil, http.StatusOK, &v)
	assert.True(t, v.Paused)
	f.do(t, http.MethodPost, base+"/resume", nil, http.StatusOK, &v)
	assert.False(t, v.Paused)

	f.do(t, http.MethodPost, base+"/submit", nil, http.StatusOK, &v)
	require.NotNil(t, v.State.Score)
	assert.Equal(t, 60.0, *v.State.Score)

	f.do(t, http.MethodPost, base+"/submit", nil, http.StatusOK, &v)
	assert.Equal(t, 60.0, *v.State.Score)

	f.do(t, http.MethodPut, base+"/answers/q5", map[string]any{"optionIndex": 1}, http.StatusConflict, nil)

	f.eb.Stop()
	assert.Len(t, f.reports(), 1, "should report exactly once")

	f.do(t, http.MethodDelete, base, nil, http.StatusNoContent, nil)
	f.do(t, http.MethodGet, base, nil, http.StatusNotFound, nil)
}

func TestAPI_AttemptErrors(t *testing.T) {
	f := makeFixture(t)

	var v attempt.View
	f.do(t, http.MethodPost, "/api/lessons/blocks/attempts", nil, http.StatusCreated, &v)
	base := "/api/attempts/" + v.AttemptID

	tests := map[string]struct {
		method string
		path   string
		body   any
		status int
	}{
		"missing option index": {
			method: http.MethodPut,
			path:   base + "/answers/q1",
			body:   map[string]any{},
			status: http.StatusBadRequest,
		},
		"option out of range": {
			method: http.MethodPut,
			path:   base + "/answers/q1",
			body:   map[string]any{"optionIndex": 4},
			status: http.StatusUnprocessableEntity,
		},
		"unknown question": {
			method: http.MethodPut,
			path:   base + "/answers/q9",
			body:   map[string]any{"optionIndex": 0},
			status: http.StatusNotFound,
		},
		"unknown direction": {
			method: http.MethodPost,
			path:   base + "/navigate",
			body:   map[string]any{"direction": "sideways"},
			status: http.StatusBadRequest,
		},
		"unknown attempt": {
			method: http.MethodPost,
			path:   "/api/attempts/unknown/submit",
			status: http.StatusNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var e struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			f.do(t, tc.method, tc.path, tc.body, tc.status, &e)
			assert.NotEmpty(t, e.Message)
		})
	}
}

type fixture struct {
	e  *gin.Engine
	eb *event.Bus

	mu       sync.Mutex
	received []domain.EventQuizCompleted
}

func makeFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.yaml"), []byte(lessonFile), 0o600))
	store, err := catalog.LoadDir(dir)
	require.NoError(t, err)

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})

	f := &fixture{
		e:  gin.New(),
		eb: event.NewBus(),
	}

	f.eb.Subscribe(domain.EventNameQuizCompleted, func(_ context.Context, e event.Event) error {
		f.mu.Lock()
		f.received = append(f.received, e.(domain.EventQuizCompleted))
		f.mu.Unlock()
		return nil
	})

	as := attempt.NewService(attempt.Config{
		Catalog:   store,
		Publisher: f.eb,
		Stopwatch: stopwatch.Config{Interval: time.Hour},
	})

	api.New(api.Config{
		Router:  f.e,
		Catalog: store,
		Session: session.NewService(session.Config{
			Redis:   rc,
			Catalog: store,
			Prefix:  "test",
		}),
		Attempt: as,
	})

	t.Cleanup(func() {
		as.Close()
		f.eb.Stop()
	})

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, status int, out any) {
	t.Helper()

	var b bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&b).Encode(body))
	}

	req := httptest.NewRequest(method, path, &b)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.e.ServeHTTP(w, req)

	require.Equal(t, status, w.Code, "%s %s: %s", method, path, w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
}

func (f *fixture) reports() []domain.EventQuizCompleted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EventQuizCompleted(nil), f.received...)
}
