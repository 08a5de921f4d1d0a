package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/learn/internal/session"
)

func (a *API) CreateSession(c *gin.Context) {
	ss, err := a.ss.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		LessonSlug: c.Param("slug"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, ss)
}

func (a *API) CompleteSection(c *gin.Context) {
	p, err := a.ss.CompleteSection(c.Request.Context(), session.CompleteSectionRequest{
		SessionID: c.Param("id"),
		SectionID: c.Param("sectionId"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (a *API) RevealQuestion(c *gin.Context) {
	p, err := a.ss.RevealQuestion(c.Request.Context(), session.RevealQuestionRequest{
		SessionID:  c.Param("id"),
		QuestionID: c.Param("questionId"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (a *API) GetProgress(c *gin.Context) {
	p, err := a.ss.GetProgress(c.Request.Context(), session.GetProgressRequest{
		SessionID: c.Param("id"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
