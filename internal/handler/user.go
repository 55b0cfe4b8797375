package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/config"
	"github.com/bytebond/bytebond/internal/middleware"
	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/repository"
	"github.com/bytebond/bytebond/internal/utils"
)

// UserHandler serves attendee signup, the leaderboard, and the admin user
// listing/removal endpoints.
type UserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Events *repository.EventRepo
	Tokens *repository.TokenRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, e *repository.EventRepo, t *repository.TokenRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Events: e, Tokens: t}
}

type signupReq struct {
	EventCode string `json:"event_code"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

type userResp struct {
	ID              uint64  `json:"id"`
	EventID         *uint64 `json:"event_id,omitempty"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Points          int     `json:"points"`
	ConnectionCount int     `json:"connection_count"`
	UserStatus      string  `json:"user_status"`
	IsAdmin         bool    `json:"is_admin"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:              u.ID,
		EventID:         u.EventID,
		Name:            u.Name,
		Email:           u.Email,
		Points:          u.Points,
		ConnectionCount: u.ConnectionCount,
		UserStatus:      u.Status,
		IsAdmin:         u.IsAdmin,
	}
}

// whitelisted reports whether the email may sign up for the event.  An
// event with an empty whitelist is open to anyone who knows the code.
func whitelisted(ev model.Event, email string) bool {
	if len(ev.Whitelist) == 0 {
		return true
	}
	for _, w := range ev.Whitelist {
		if strings.EqualFold(strings.TrimSpace(w), email) {
			return true
		}
	}
	return false
}

// Signup registers an attendee for an event and returns the new profile
// together with a token pair, so the app can go straight to onboarding.
func (h *UserHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.EventCode = strings.TrimSpace(req.EventCode)
	if req.Email == "" || req.Name == "" || req.EventCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_code/name/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByCode(ctx, req.EventCode)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !whitelisted(ev, req.Email) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email not on the guest list"})
	}

	u, err := h.Users.Create(ctx, ev.ID, req.Name, req.Email)
	if err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already signed up"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, false, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":    toUserResp(u),
		"access":  tokenPart{Token: access.Token, Expires: access.Exp},
		"refresh": tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

type createAdminReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	EventID  *uint64 `json:"event_id"`
}

// CreateAdmin registers an administrator account (admin only).  Unlike
// attendees, admins carry a bcrypt password and may exist without an
// event; the matchmaking pass never picks them up.
func (h *UserHandler) CreateAdmin(c echo.Context) error {
	var req createAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}
	u, err := h.Users.CreateAdmin(ctx, req.EventID, req.Name, req.Email, hash)
	if err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create admin failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserResp(u)})
}

// Leaderboard returns the event's scoring table, best first.  Attendees see
// their own event; admins may pass ?event_id= to inspect any event.
func (h *UserHandler) Leaderboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var eventID uint64
	if raw := c.QueryParam("event_id"); raw != "" && middleware.IsAdmin(c) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_id"})
		}
		eventID = id
	} else {
		u, err := h.Users.GetByID(ctx, middleware.UserID(c))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
		}
		if u.EventID == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no event"})
		}
		eventID = *u.EventID
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := h.Users.Leaderboard(ctx, eventID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userResp, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"leaderboard": out})
}

// List returns all users of an event (admin only).
func (h *UserHandler) List(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.QueryParam("event_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Users.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userResp, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// Delete removes a user (admin only).
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
