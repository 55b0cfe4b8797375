package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/game"
	"github.com/bytebond/bytebond/internal/middleware"
	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
)

// GameHandler exposes the round state machine over HTTP.  Each endpoint
// loads the authenticated user and delegates to the game service; the
// service's sentinel errors carry the HTTP mapping.
type GameHandler struct {
	Users *repository.UserRepo
	Game  *game.Service
}

func NewGameHandler(u *repository.UserRepo, g *game.Service) *GameHandler {
	return &GameHandler{Users: u, Game: g}
}

// gameError translates the game package's sentinel errors into HTTP
// responses.  The wrapped message is returned verbatim; it is written for
// end users.
func gameError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotAuthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, game.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrClient):
		status = http.StatusBadRequest
	default:
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// actor loads the authenticated user for a game call.
func (h *GameHandler) actor(ctx context.Context, c echo.Context) (model.User, error) {
	return h.Users.GetByID(ctx, middleware.UserID(c))
}

// Status returns the caller's current view of the game: own status, QR
// code when presenting, partner name and assigned questions.
func (h *GameHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}
	st, err := h.Game.CurrentStatus(ctx, u)
	if err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type scanReq struct {
	QRCode string `json:"qr_code"`
}

// Scan activates the caller's pending connection from their partner's QR
// token.
func (h *GameHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.QRCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}
	if err := h.Game.Scan(ctx, u, strings.TrimSpace(req.QRCode)); err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "connected"})
}

type answerReq struct {
	QuestionID uint64 `json:"question_id"`
	Answer     string `json:"answer"`
}

// Answer records a guess for one assigned question and reports whether it
// matched the partner's own answer.
func (h *GameHandler) Answer(c echo.Context) error {
	var req answerReq
	if err := c.Bind(&req); err != nil || req.QuestionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "question_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}
	res, err := h.Game.Answer(ctx, u, req.QuestionID, req.Answer)
	if err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Complete closes an active round once every question has been answered.
func (h *GameHandler) Complete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}
	if err := h.Game.Complete(ctx, u); err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "completed"})
}

// Cancel walks away from the caller's open connection.
func (h *GameHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}
	if err := h.Game.Cancel(ctx, u); err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}
