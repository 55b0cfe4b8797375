package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebond/bytebond/internal/game"
	"github.com/bytebond/bytebond/internal/repository"
)

func newGameTest(t *testing.T) (*GameHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repository.NewUserRepo(db)
	svc := game.NewService(db,
		repository.NewEventRepo(db),
		users,
		repository.NewUserAnswerRepo(db),
		repository.NewConnectionRepo(db),
		repository.NewConnectionQuestionRepo(db),
		nil, nil, game.Options{})
	return NewGameHandler(users, svc), mock
}

var connDBCols = []string{"id", "event_id", "user1_id", "user2_id", "status", "start_time", "end_time", "created_at", "updated_at"}

func TestGameScan(t *testing.T) {
	t.Run("missing qr_code", func(t *testing.T) {
		h, _ := newGameTest(t)
		c, rec := jsonCtx(http.MethodPost, "/v1/game/scan", `{"qr_code":"  "}`)
		require.NoError(t, h.Scan(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		h, mock := newGameTest(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows(userDBCols))

		c, rec := jsonCtx(http.MethodPost, "/v1/game/scan", `{"qr_code":"tok"}`)
		c.Set("user_id", uint64(2))
		require.NoError(t, h.Scan(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong code maps to 401 with the reason", func(t *testing.T) {
		h, mock := newGameTest(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(3)).
			WillReturnRows(userDBRow(3, 5, "bob", "bob@example.com"))
		mock.ExpectBegin()
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), "PENDING", "ACTIVE", uint64(3), uint64(3)).
			WillReturnRows(sqlmock.NewRows(connDBCols).
				AddRow(7, 5, 2, 3, "PENDING", handlerTestNow, handlerTestNow, handlerTestNow, handlerTestNow))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userDBRow(2, 5, "alice", "alice@example.com"))
		mock.ExpectRollback()

		c, rec := jsonCtx(http.MethodPost, "/v1/game/scan", `{"qr_code":"wrong-token"}`)
		c.Set("user_id", uint64(3))
		require.NoError(t, h.Scan(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "invalid QR code")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGameCancel(t *testing.T) {
	t.Run("nothing to cancel maps to 400", func(t *testing.T) {
		h, mock := newGameTest(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(3)).
			WillReturnRows(userDBRow(3, 5, "bob", "bob@example.com"))
		mock.ExpectBegin()
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), "PENDING", "ACTIVE", uint64(3), uint64(3)).
			WillReturnRows(sqlmock.NewRows(connDBCols))
		mock.ExpectRollback()

		c, rec := jsonCtx(http.MethodPost, "/v1/game/cancel", "")
		c.Set("user_id", uint64(3))
		require.NoError(t, h.Cancel(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "no connection to cancel")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGameStatus(t *testing.T) {
	t.Run("idle attendee", func(t *testing.T) {
		h, mock := newGameTest(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userDBRow(2, 5, "alice", "alice@example.com"))
		// CurrentStatus re-reads the user, then looks for an open round.
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userDBRow(2, 5, "alice", "alice@example.com"))
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), "PENDING", "ACTIVE", uint64(2), uint64(2)).
			WillReturnRows(sqlmock.NewRows(connDBCols))

		c, rec := jsonCtx(http.MethodGet, "/v1/game/status", "")
		c.Set("user_id", uint64(2))
		require.NoError(t, h.Status(c))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "AVAILABLE", body["user_status"])
		assert.Nil(t, body["qr_code"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
