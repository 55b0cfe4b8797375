package handler

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/bytebond/bytebond/internal/hub"
)

// WSHandler upgrades clients to the game signal channel.  Browsers cannot
// set an Authorization header on a websocket handshake, so the access token
// is accepted as a ?token= query parameter as well.
type WSHandler struct {
	Secret string
	Hub    *hub.Hub
}

func NewWSHandler(secret string, h *hub.Hub) *WSHandler {
	return &WSHandler{Secret: secret, Hub: h}
}

// Serve authenticates the handshake and hands the connection to the hub,
// subscribed to the user's own topic.
func (h *WSHandler) Serve(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(h.Secret), nil
	})
	if err != nil || !tok.Valid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
	}

	return h.Hub.Serve(c.Response(), c.Request(), uint64(sub))
}
