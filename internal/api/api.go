package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/victornm/learn/internal/attempt"
	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/errors"
	"github.com/victornm/learn/internal/session"
)

type Config struct {
	Router  gin.IRouter
	Catalog catalog.Store
	Session *session.Service
	Attempt *attempt.Service
}

type API struct {
	catalog catalog.Store
	ss      *session.Service
	as      *attempt.Service
}

func New(c Config) *API {
	a := &API{
		catalog: c.Catalog,
		ss:      c.Session,
		as:      c.Attempt,
	}

	r := c.Router.Group("/api")

	r.GET("/lessons", a.ListLessons)
	r.GET("/lessons/:slug", a.GetLesson)

	// Reading sessions
	r.POST("/lessons/:slug/sessions", a.CreateSession)
	r.POST("/sessions/:id/sections/:sectionId/complete", a.CompleteSection)
	r.POST("/sessions/:id/questions/:questionId/reveal", a.RevealQuestion)
	r.GET("/sessions/:id/progress", a.GetProgress)

	// Quiz attempts
	r.POST("/lessons/:slug/attempts", a.StartAttempt)
	r.GET("/attempts/:id", a.GetAttempt)
	r.PUT("/attempts/:id/answers/:questionId", a.SelectAnswer)
	r.POST("/attempts/:id/navigate", a.Navigate)
	r.POST("/attempts/:id/pause", a.PauseAttempt)
	r.POST("/attempts/:id/resume", a.ResumeAttempt)
	r.POST("/attempts/:id/submit", a.SubmitAttempt)
	r.DELETE("/attempts/:id", a.DiscardAttempt)

	return a
}

// fail renders err as {code, message} with the mapped HTTP status. Internal causes are
// logged, never returned.
func fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func badRequest(c *gin.Context, err error) {
	fail(c, errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid request body: %v", err),
		errors.WithCause(err),
	))
}
