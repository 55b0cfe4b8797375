package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/middleware"
	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
)

// UserAnswerHandler serves the onboarding answers.  Attendees manage only
// their own rows; the admin listing exists for moderation.
type UserAnswerHandler struct {
	Answers *repository.UserAnswerRepo
}

func NewUserAnswerHandler(a *repository.UserAnswerRepo) *UserAnswerHandler {
	return &UserAnswerHandler{Answers: a}
}

type userAnswerReq struct {
	QuestionID uint64 `json:"question_id"`
	Answer     string `json:"answer"`
}

type userAnswerResp struct {
	ID         uint64 `json:"id"`
	UserID     uint64 `json:"user_id"`
	QuestionID uint64 `json:"question_id"`
	Answer     string `json:"answer"`
}

func toUserAnswerResp(a model.UserAnswer) userAnswerResp {
	return userAnswerResp{ID: a.ID, UserID: a.UserID, QuestionID: a.QuestionID, Answer: a.Answer}
}

// Create stores the caller's answer to a signup question.  Each question
// can be answered once; re-answering goes through Update.
func (h *UserAnswerHandler) Create(c echo.Context) error {
	var req userAnswerReq
	if err := c.Bind(&req); err != nil || req.QuestionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "question_id required"})
	}
	req.Answer = strings.TrimSpace(req.Answer)
	if req.Answer == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "answer required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Answers.Create(ctx, middleware.UserID(c), req.QuestionID, req.Answer)
	if err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "question already answered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toUserAnswerResp(a))
}

// ListMine returns the caller's own answers.
func (h *UserAnswerHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Answers.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userAnswerResp, 0, len(rows))
	for _, a := range rows {
		out = append(out, toUserAnswerResp(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"answers": out})
}

// Update rewrites one of the caller's answers.
func (h *UserAnswerHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req userAnswerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Answer = strings.TrimSpace(req.Answer)
	if req.Answer == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "answer required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Answers.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrAnswerNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "answer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if a.UserID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your answer"})
	}
	if err := h.Answers.Update(ctx, id, req.Answer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	a.Answer = req.Answer
	return c.JSON(http.StatusOK, toUserAnswerResp(a))
}

// Delete removes one of the caller's answers.
func (h *UserAnswerHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Answers.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrAnswerNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "answer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if a.UserID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your answer"})
	}
	if err := h.Answers.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAll returns every answer in the system (admin only).
func (h *UserAnswerHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Answers.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userAnswerResp, 0, len(rows))
	for _, a := range rows {
		out = append(out, toUserAnswerResp(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"answers": out})
}
