package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebond/bytebond/internal/utils"
)

const testSecret = "middleware-test-secret"

func runJWT(t *testing.T, authHeader string) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var passed echo.Context
	next := func(c echo.Context) error {
		passed = c
		return c.NoContent(http.StatusOK)
	}
	err := JWTAuth(testSecret)(next)(c)
	return passed, rec, err
}

func TestJWTAuth(t *testing.T) {
	t.Run("valid token populates the context", func(t *testing.T) {
		access, err := utils.NewAccessToken(testSecret, 42, true, 60)
		require.NoError(t, err)

		passed, rec, err := runJWT(t, "Bearer "+access.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, passed)
		assert.Equal(t, uint64(42), UserID(passed))
		assert.True(t, IsAdmin(passed))
	})

	t.Run("missing header", func(t *testing.T) {
		passed, rec, err := runJWT(t, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, passed)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, rec, err := runJWT(t, "Bearer not.a.jwt")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		access, err := utils.NewAccessToken("another-secret", 42, false, 60)
		require.NoError(t, err)

		_, rec, err := runJWT(t, "Bearer "+access.Token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": float64(42),
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, rec, err := runJWT(t, "Bearer "+raw)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("zero subject is rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": float64(0),
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := tok.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, rec, err := runJWT(t, "Bearer "+raw)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	run := func(t *testing.T, admin bool, set bool) *httptest.ResponseRecorder {
		t.Helper()
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/events", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if set {
			c.Set("is_admin", admin)
		}
		next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		require.NoError(t, RequireAdmin()(next)(c))
		return rec
	}

	t.Run("admin claim passes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, run(t, true, true).Code)
	})
	t.Run("non-admin is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, run(t, false, true).Code)
	})
	t.Run("missing claim is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, run(t, false, false).Code)
	})
}
