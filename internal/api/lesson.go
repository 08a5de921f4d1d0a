package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/learn/internal/domain"
)

type LessonResponse struct {
	domain.LessonSummary
	DurationMinutes int                     `json:"durationMinutes"`
	RewardPoints    int                     `json:"rewardPoints"`
	Sections        []domain.Section        `json:"sections"`
	Questions       []domain.InlineQuestion `json:"questions"`
	DisplayContent  string                  `json:"displayContent"`
}

func (a *API) ListLessons(c *gin.Context) {
	ls, err := a.catalog.ListLessons(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	resp := make([]domain.LessonSummary, 0, len(ls))
	for _, l := range ls {
		resp = append(resp, l.Summary())
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) GetLesson(c *gin.Context) {
	pl, err := a.ss.GetLesson(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, LessonResponse{
		LessonSummary:   pl.Lesson.Summary(),
		DurationMinutes: pl.Lesson.DurationMinutes,
		RewardPoints:    pl.Lesson.RewardPoints,
		Sections:        pl.Parsed.Sections,
		Questions:       pl.Parsed.Questions,
		DisplayContent:  pl.Parsed.DisplayContent,
	})
}
