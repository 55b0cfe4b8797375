package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebond/bytebond/internal/repository"
)

func newUserTest(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewUserHandler(testCfg,
		repository.NewUserRepo(db),
		repository.NewEventRepo(db),
		repository.NewTokenRepo(db))
	return h, mock
}

func TestSignup(t *testing.T) {
	t.Run("open event accepts anyone with the code", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM events WHERE code").
			WithArgs("meetup").
			WillReturnRows(eventDBRow(5, "meetup", "[]"))
		mock.ExpectExec("INSERT INTO users").
			WithArgs(uint64(5), "Alice", "alice@example.com", sqlmock.AnyArg(), "AVAILABLE").
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userDBRow(2, 5, "Alice", "alice@example.com"))
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(uint64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		c, rec := jsonCtx(http.MethodPost, "/v1/users",
			`{"event_code":"meetup","name":"Alice","email":" Alice@Example.com "}`)
		require.NoError(t, h.Signup(c))
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, "AVAILABLE", user["user_status"])
		assert.NotEmpty(t, body["access"].(map[string]any)["token"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("whitelisted email passes case-insensitively", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM events WHERE code").
			WithArgs("meetup").
			WillReturnRows(eventDBRow(5, "meetup", `["Bob@Example.com"]`))
		mock.ExpectExec("INSERT INTO users").
			WithArgs(uint64(5), "Bob", "bob@example.com", sqlmock.AnyArg(), "AVAILABLE").
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(3)).
			WillReturnRows(userDBRow(3, 5, "Bob", "bob@example.com"))
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(uint64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		c, rec := jsonCtx(http.MethodPost, "/v1/users",
			`{"event_code":"meetup","name":"Bob","email":"bob@example.com"}`)
		require.NoError(t, h.Signup(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email not on the guest list", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM events WHERE code").
			WithArgs("meetup").
			WillReturnRows(eventDBRow(5, "meetup", `["bob@example.com"]`))

		c, rec := jsonCtx(http.MethodPost, "/v1/users",
			`{"event_code":"meetup","name":"Mallory","email":"mallory@example.com"}`)
		require.NoError(t, h.Signup(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "email not on the guest list", decodeBody(t, rec)["error"])
	})

	t.Run("unknown event", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM events WHERE code").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(eventDBCols))

		c, rec := jsonCtx(http.MethodPost, "/v1/users",
			`{"event_code":"nope","name":"Alice","email":"alice@example.com"}`)
		require.NoError(t, h.Signup(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("duplicate signup", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM events WHERE code").
			WithArgs("meetup").
			WillReturnRows(eventDBRow(5, "meetup", "[]"))
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		c, rec := jsonCtx(http.MethodPost, "/v1/users",
			`{"event_code":"meetup","name":"Alice","email":"alice@example.com"}`)
		require.NoError(t, h.Signup(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "already signed up", decodeBody(t, rec)["error"])
	})
}

func TestLeaderboard(t *testing.T) {
	t.Run("attendee sees their own event", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userDBRow(2, 5, "alice", "alice@example.com"))
		mock.ExpectQuery("ORDER BY points DESC").
			WithArgs(uint64(5), 50).
			WillReturnRows(sqlmock.NewRows(userDBCols).
				AddRow(3, 5, "bob", "bob@example.com", nil, 7, "qr-bob", 2, "AVAILABLE", false, handlerTestNow, handlerTestNow).
				AddRow(2, 5, "alice", "alice@example.com", nil, 4, "qr-alice", 1, "AVAILABLE", false, handlerTestNow, handlerTestNow))

		c, rec := jsonCtx(http.MethodGet, "/v1/leaderboard", "")
		c.Set("user_id", uint64(2))
		require.NoError(t, h.Leaderboard(c))
		require.Equal(t, http.StatusOK, rec.Code)

		board := decodeBody(t, rec)["leaderboard"].([]any)
		require.Len(t, board, 2)
		first := board[0].(map[string]any)
		assert.Equal(t, "bob", first["name"])
		assert.Equal(t, float64(7), first["points"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin inspects any event by id", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectQuery("ORDER BY points DESC").
			WithArgs(uint64(8), 10).
			WillReturnRows(sqlmock.NewRows(userDBCols))

		c, rec := jsonCtx(http.MethodGet, "/v1/leaderboard?event_id=8&limit=10", "")
		c.Set("user_id", uint64(9))
		c.Set("is_admin", true)
		require.NoError(t, h.Leaderboard(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateAdmin(t *testing.T) {
	t.Run("creates a password-carrying admin", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(nil, "Ops", "ops@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), "AVAILABLE").
			WillReturnResult(sqlmock.NewResult(9, 1))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(9)).
			WillReturnRows(adminDBRow(9, "ops@example.com", "$2a$04$hash"))

		c, rec := jsonCtx(http.MethodPost, "/v1/admin/users",
			`{"name":"Ops","email":" Ops@Example.com ","password":"letmein"}`)
		require.NoError(t, h.CreateAdmin(c))
		require.Equal(t, http.StatusCreated, rec.Code)

		user := decodeBody(t, rec)["user"].(map[string]any)
		assert.Equal(t, "ops@example.com", user["email"])
		assert.Equal(t, true, user["is_admin"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		c, rec := jsonCtx(http.MethodPost, "/v1/admin/users",
			`{"name":"Ops","email":"ops@example.com","password":"letmein"}`)
		require.NoError(t, h.CreateAdmin(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		h, _ := newUserTest(t)
		c, rec := jsonCtx(http.MethodPost, "/v1/admin/users",
			`{"name":"Ops","email":"ops@example.com"}`)
		require.NoError(t, h.CreateAdmin(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserDelete(t *testing.T) {
	t.Run("removes the row", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectExec("DELETE FROM users").
			WithArgs(uint64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, rec := jsonCtx(http.MethodDelete, "/v1/admin/users/4", "")
		c.SetParamNames("id")
		c.SetParamValues("4")
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		h, mock := newUserTest(t)
		mock.ExpectExec("DELETE FROM users").
			WithArgs(uint64(4)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		c, rec := jsonCtx(http.MethodDelete, "/v1/admin/users/4", "")
		c.SetParamNames("id")
		c.SetParamValues("4")
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
