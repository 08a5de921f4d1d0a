package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/learn/internal/attempt"
	"github.com/victornm/learn/internal/quiz"
)

type (
	SelectAnswerRequest struct {
		OptionIndex *int `json:"optionIndex" binding:"required"`
	}

	NavigateRequest struct {
		Direction quiz.Direction `json:"direction" binding:"required"`
	}
)

func (a *API) StartAttempt(c *gin.Context) {
	v, err := a.as.Start(c.Request.Context(), attempt.StartRequest{
		LessonSlug: c.Param("slug"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

func (a *API) GetAttempt(c *gin.Context) {
	a.respond(c)(a.as.Get(c.Request.Context(), c.Param("id")))
}

func (a *API) SelectAnswer(c *gin.Context) {
	var req SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a.respond(c)(a.as.SelectAnswer(c.Request.Context(), attempt.SelectAnswerRequest{
		AttemptID:   c.Param("id"),
		QuestionID:  c.Param("questionId"),
		OptionIndex: *req.OptionIndex,
	}))
}

func (a *API) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a.respond(c)(a.as.GoTo(c.Request.Context(), attempt.GoToRequest{
		AttemptID: c.Param("id"),
		Direction: req.Direction,
	}))
}

func (a *API) PauseAttempt(c *gin.Context) {
	a.respond(c)(a.as.Pause(c.Request.Context(), c.Param("id")))
}

func (a *API) ResumeAttempt(c *gin.Context) {
	a.respond(c)(a.as.Resume(c.Request.Context(), c.Param("id")))
}

func (a *API) SubmitAttempt(c *gin.Context) {
	a.respond(c)(a.as.Submit(c.Request.Context(), c.Param("id")))
}

func (a *API) DiscardAttempt(c *gin.Context) {
	if err := a.as.Discard(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) respond(c *gin.Context) func(*attempt.View, error) {
	return func(v *attempt.View, err error) {
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, v)
	}
}
