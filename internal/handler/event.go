package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/game"
	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
)

// EventHandler serves the admin event management endpoints, including the
// start/stop switches that drive the matchmaking rounds.
type EventHandler struct {
	Events *repository.EventRepo
	Game   *game.Service
}

func NewEventHandler(e *repository.EventRepo, g *game.Service) *EventHandler {
	return &EventHandler{Events: e, Game: g}
}

type eventReq struct {
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Whitelist []string `json:"whitelist"`
}

type eventResp struct {
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	IsActive  bool     `json:"is_active"`
	Whitelist []string `json:"whitelist"`
}

func toEventResp(ev model.Event) eventResp {
	return eventResp{ID: ev.ID, Name: ev.Name, Code: ev.Code, IsActive: ev.IsActive, Whitelist: ev.Whitelist}
}

// Create adds an event.  The code must be unique; it is what attendees type
// in to sign up.
func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if req.Name == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.Create(ctx, req.Name, req.Code)
	if err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	if len(req.Whitelist) > 0 {
		ev.Whitelist = normalizeEmails(req.Whitelist)
		if err := h.Events.Update(ctx, ev); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save whitelist failed"})
		}
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// List returns all events.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Events.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]eventResp, 0, len(rows))
	for _, ev := range rows {
		out = append(out, toEventResp(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// Update rewrites an event's name, code and whitelist.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		ev.Name = name
	}
	if code := strings.TrimSpace(req.Code); code != "" {
		ev.Code = code
	}
	if req.Whitelist != nil {
		ev.Whitelist = normalizeEmails(req.Whitelist)
	}
	if err := h.Events.Update(ctx, ev); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// Delete removes an event and, via cascade, its users and connections.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type gameSwitchReq struct {
	EventID uint64 `json:"event_id"`
}

// StartGame activates an event and fires an immediate pairing round so the
// room does not wait for the next tick.
func (h *EventHandler) StartGame(c echo.Context) error {
	var req gameSwitchReq
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Game.StartEvent(ctx, req.EventID); err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "started"})
}

// StopGame deactivates an event, force-cancels every open connection and
// frees the participants.
func (h *EventHandler) StopGame(c echo.Context) error {
	var req gameSwitchReq
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Game.StopEvent(ctx, req.EventID); err != nil {
		return gameError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "stopped"})
}

// normalizeEmails lowercases and trims a whitelist, dropping empties.
func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
