package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
)

// ConnectionHandler exposes the raw connection rows to administrators for
// inspection and cleanup.  Attendees never see these endpoints; the live
// round surface is the game handler.
type ConnectionHandler struct {
	Conns *repository.ConnectionRepo
}

func NewConnectionHandler(c *repository.ConnectionRepo) *ConnectionHandler {
	return &ConnectionHandler{Conns: c}
}

type connResp struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"event_id"`
	User1ID   uint64    `json:"user1_id"`
	User2ID   uint64    `json:"user2_id"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func toConnResp(c model.Connection) connResp {
	return connResp{
		ID:        c.ID,
		EventID:   c.EventID,
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
		Status:    c.Status,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
	}
}

// List returns every connection across all events.
func (h *ConnectionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Conns.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]connResp, 0, len(rows))
	for _, conn := range rows {
		out = append(out, toConnResp(conn))
	}
	return c.JSON(http.StatusOK, echo.Map{"connections": out})
}

// Get returns a single connection by ID.
func (h *ConnectionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.Conns.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrConnectionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toConnResp(conn))
}

type connStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus force-sets a connection's status.  This is a raw override
// for stuck rounds: it does not touch the participants' user status, so it
// is paired with the game stop/start endpoints when a whole event needs
// untangling.
func (h *ConnectionHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req connStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Status {
	case model.ConnectionStatusPending, model.ConnectionStatusActive,
		model.ConnectionStatusCompleted, model.ConnectionStatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Conns.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Conns.GetByIDTx(ctx, tx, id); err != nil {
		if err == repository.ErrConnectionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Conns.UpdateStatusTx(ctx, tx, id, req.Status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}

// Delete removes a connection row outright.
func (h *ConnectionHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Conns.Delete(ctx, id); err != nil {
		if err == repository.ErrConnectionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
