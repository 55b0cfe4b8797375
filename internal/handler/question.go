package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
)

// QuestionHandler serves the public question sampler used during signup and
// the admin question management endpoints.
type QuestionHandler struct {
	Questions *repository.QuestionRepo
}

func NewQuestionHandler(q *repository.QuestionRepo) *QuestionHandler {
	return &QuestionHandler{Questions: q}
}

type questionReq struct {
	Question         string `json:"question"`
	IsSignupQuestion bool   `json:"is_signup_question"`
	IsGameQuestion   bool   `json:"is_game_question"`
}

type questionResp struct {
	ID               uint64 `json:"id"`
	Question         string `json:"question"`
	IsSignupQuestion bool   `json:"is_signup_question"`
	IsGameQuestion   bool   `json:"is_game_question"`
}

func toQuestionResp(q model.Question) questionResp {
	return questionResp{
		ID:               q.ID,
		Question:         q.Question,
		IsSignupQuestion: q.IsSignupQuestion,
		IsGameQuestion:   q.IsGameQuestion,
	}
}

// Random returns questions in random order.  With ?onboarding=true the
// signup questions sort first so the app can show them before the pool of
// game-only questions.  The route sits behind a tight rate limit; the
// random ordering makes it an easy target for scraping otherwise.
func (h *QuestionHandler) Random(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	onboarding := strings.EqualFold(c.QueryParam("onboarding"), "true")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Questions.ListRandom(ctx, limit, onboarding)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]questionResp, 0, len(rows))
	for _, q := range rows {
		out = append(out, toQuestionResp(q))
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": out})
}

// List returns all questions (admin only).
func (h *QuestionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Questions.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]questionResp, 0, len(rows))
	for _, q := range rows {
		out = append(out, toQuestionResp(q))
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": out})
}

// Create adds a question (admin only).
func (h *QuestionHandler) Create(c echo.Context) error {
	var req questionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "question required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Questions.Create(ctx, req.Question, req.IsSignupQuestion, req.IsGameQuestion)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toQuestionResp(q))
}

// Update rewrites a question's text and flags (admin only).
func (h *QuestionHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req questionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "question required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Questions.Update(ctx, model.Question{
		ID:               id,
		Question:         req.Question,
		IsSignupQuestion: req.IsSignupQuestion,
		IsGameQuestion:   req.IsGameQuestion,
	})
	if err != nil {
		if err == repository.ErrQuestionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "question not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a question (admin only).
func (h *QuestionHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Questions.Delete(ctx, id); err != nil {
		if err == repository.ErrQuestionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "question not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
