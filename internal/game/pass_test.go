package game

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebond/bytebond/internal/model"
)

var eventCols = []string{"id", "name", "code", "is_active", "whitelist", "created_at", "updated_at"}

func activeEventRow(id uint64, code string) *sqlmock.Rows {
	return sqlmock.NewRows(eventCols).
		AddRow(id, "Meetup", code, true, []byte("[]"), testNow, testNow)
}

func TestRunPass(t *testing.T) {
	ctx := context.Background()

	t.Run("no active events is a no-op", func(t *testing.T) {
		svc, mock, _, _ := newMockService(t)
		mock.ExpectQuery("FROM events WHERE is_active").
			WillReturnRows(sqlmock.NewRows(eventCols))

		require.NoError(t, svc.RunPass(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired connections are swept before pairing", func(t *testing.T) {
		svc, mock, notes, pub := newMockService(t)
		mock.ExpectQuery("FROM events WHERE is_active").
			WillReturnRows(activeEventRow(5, "meetup"))
		mock.ExpectBegin()
		// One expired pending connection between users 2 and 3.
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, testNow).
			WillReturnRows(connRow(7, 5, 2, 3, model.ConnectionStatusPending))
		mock.ExpectExec("UPDATE connections SET status").
			WithArgs(model.ConnectionStatusCancelled, uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// User IDs come out of a set, so the order is not fixed.
		mock.ExpectExec("UPDATE users SET status").
			WithArgs(model.UserStatusAvailable, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		// The freed users are AVAILABLE again but have already met, so
		// pairing finds no fresh candidate.
		mock.ExpectQuery("FROM users WHERE event_id").
			WithArgs(uint64(5), model.UserStatusAvailable).
			WillReturnRows(userRows().
				AddRow(2, 5, "alice", "alice@example.com", nil, 0, "qr-a", 0, model.UserStatusAvailable, false, testNow, testNow).
				AddRow(3, 5, "bob", "bob@example.com", nil, 0, "qr-b", 0, model.UserStatusAvailable, false, testNow, testNow))
		mock.ExpectQuery("FROM connections WHERE event_id").
			WithArgs(uint64(5)).
			WillReturnRows(connRow(7, 5, 2, 3, model.ConnectionStatusCancelled))
		mock.ExpectCommit()

		require.NoError(t, svc.RunPass(ctx))
		assert.Equal(t, 1, notes.count(2, SignalCancelled))
		assert.Equal(t, 1, notes.count(3, SignalCancelled))
		require.Len(t, pub.events, 1)
		assert.Equal(t, model.ConnectionStatusCancelled, pub.events[0].Status)
		assert.Equal(t, "deadline expired", pub.events[0].Reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second pass finds nothing left to sweep", func(t *testing.T) {
		svc, mock, notes, pub := newMockService(t)
		mock.ExpectQuery("FROM events WHERE is_active").
			WillReturnRows(activeEventRow(5, "meetup"))
		mock.ExpectBegin()
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, testNow).
			WillReturnRows(sqlmock.NewRows(connCols))
		mock.ExpectQuery("FROM users WHERE event_id").
			WithArgs(uint64(5), model.UserStatusAvailable).
			WillReturnRows(userRows())
		mock.ExpectCommit()

		require.NoError(t, svc.RunPass(ctx))
		assert.Empty(t, notes.signals)
		assert.Empty(t, pub.events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pairing creates pending connections", func(t *testing.T) {
		svc, mock, notes, _ := newMockService(t)
		mock.ExpectQuery("FROM events WHERE is_active").
			WillReturnRows(activeEventRow(5, "meetup"))
		mock.ExpectBegin()
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, testNow).
			WillReturnRows(sqlmock.NewRows(connCols))
		mock.ExpectQuery("FROM users WHERE event_id").
			WithArgs(uint64(5), model.UserStatusAvailable).
			WillReturnRows(userRows().
				AddRow(2, 5, "alice", "alice@example.com", nil, 0, "qr-a", 0, model.UserStatusAvailable, false, testNow, testNow).
				AddRow(3, 5, "bob", "bob@example.com", nil, 0, "qr-b", 0, model.UserStatusAvailable, false, testNow, testNow))
		mock.ExpectQuery("FROM connections WHERE event_id").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows(connCols))
		mock.ExpectExec("INSERT INTO connections").
			WithArgs(uint64(5), uint64(2), uint64(3), model.ConnectionStatusPending, testNow, testNow.Add(time.Hour)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE users SET status").
			WithArgs(model.UserStatusConnecting, uint64(2), uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, svc.RunPass(ctx))
		assert.Equal(t, 1, notes.count(2, SignalRefresh))
		assert.Equal(t, 1, notes.count(3, SignalRefresh))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStartEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("activates and pairs immediately", func(t *testing.T) {
		svc, mock, notes, _ := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE events SET is_active").
			WithArgs(true, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM users WHERE event_id").
			WithArgs(uint64(5), model.UserStatusAvailable).
			WillReturnRows(userRows().
				AddRow(2, 5, "alice", "alice@example.com", nil, 0, "qr-a", 0, model.UserStatusAvailable, false, testNow, testNow).
				AddRow(3, 5, "bob", "bob@example.com", nil, 0, "qr-b", 0, model.UserStatusAvailable, false, testNow, testNow))
		mock.ExpectQuery("FROM connections WHERE event_id").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows(connCols))
		mock.ExpectExec("INSERT INTO connections").
			WithArgs(uint64(5), uint64(2), uint64(3), model.ConnectionStatusPending, testNow, testNow.Add(time.Hour)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE users SET status").
			WithArgs(model.UserStatusConnecting, uint64(2), uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, svc.StartEvent(ctx, 5))
		assert.Equal(t, 1, notes.count(2, SignalRefresh))
		assert.Equal(t, 1, notes.count(3, SignalRefresh))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lone attendee stays unpaired", func(t *testing.T) {
		svc, mock, notes, _ := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE events SET is_active").
			WithArgs(true, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM users WHERE event_id").
			WithArgs(uint64(5), model.UserStatusAvailable).
			WillReturnRows(userRows().
				AddRow(2, 5, "alice", "alice@example.com", nil, 0, "qr-a", 0, model.UserStatusAvailable, false, testNow, testNow))
		mock.ExpectCommit()

		require.NoError(t, svc.StartEvent(ctx, 5))
		assert.Empty(t, notes.signals)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStopEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("force-cancels open rounds and frees users", func(t *testing.T) {
		svc, mock, notes, pub := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE events SET is_active").
			WithArgs(false, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM connections WHERE event_id").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive).
			WillReturnRows(connRow(7, 5, 2, 3, model.ConnectionStatusActive))
		mock.ExpectExec("UPDATE connections SET status").
			WithArgs(model.ConnectionStatusCancelled, uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET status").
			WithArgs(model.UserStatusAvailable, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, svc.StopEvent(ctx, 5))
		assert.Equal(t, 1, notes.count(2, SignalCancelled))
		assert.Equal(t, 1, notes.count(3, SignalCancelled))
		require.Len(t, pub.events, 1)
		assert.Equal(t, "event stopped", pub.events[0].Reason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing open deactivates only", func(t *testing.T) {
		svc, mock, notes, pub := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE events SET is_active").
			WithArgs(false, uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM connections WHERE event_id").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive).
			WillReturnRows(sqlmock.NewRows(connCols))
		mock.ExpectCommit()

		require.NoError(t, svc.StopEvent(ctx, 5))
		assert.Empty(t, notes.signals)
		assert.Empty(t, pub.events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCurrentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("available user has bare status", func(t *testing.T) {
		svc, mock, _, _ := newMockService(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userRow(2, 5, "alice", "qr-a", model.UserStatusAvailable))
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, uint64(2), uint64(2)).
			WillReturnRows(sqlmock.NewRows(connCols))

		st, err := svc.CurrentStatus(ctx, model.User{ID: 2})
		require.NoError(t, err)
		assert.Equal(t, model.UserStatusAvailable, st.UserStatus)
		assert.Nil(t, st.QRCode)
		assert.Nil(t, st.PartnerName)
		assert.Empty(t, st.Questions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("presenter sees QR code while pending", func(t *testing.T) {
		svc, mock, _, _ := newMockService(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userRow(2, 5, "alice", "qr-a", model.UserStatusConnecting))
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, uint64(2), uint64(2)).
			WillReturnRows(connRow(7, 5, 2, 3, model.ConnectionStatusPending))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(3)).
			WillReturnRows(userRow(3, 5, "bob", "qr-b", model.UserStatusConnecting))

		st, err := svc.CurrentStatus(ctx, model.User{ID: 2})
		require.NoError(t, err)
		require.NotNil(t, st.QRCode)
		assert.Equal(t, "qr-a", *st.QRCode)
		require.NotNil(t, st.PartnerName)
		assert.Equal(t, "bob", *st.PartnerName)
		assert.Empty(t, st.Questions, "questions appear only once the round is active")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scanner in active round sees questions but no QR", func(t *testing.T) {
		svc, mock, _, _ := newMockService(t)
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(3)).
			WillReturnRows(userRow(3, 5, "bob", "qr-b", model.UserStatusBusy))
		mock.ExpectQuery("FROM connections").
			WithArgs(uint64(5), model.ConnectionStatusPending, model.ConnectionStatusActive, uint64(3), uint64(3)).
			WillReturnRows(connRow(7, 5, 2, 3, model.ConnectionStatusActive))
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs(uint64(2)).
			WillReturnRows(userRow(2, 5, "alice", "qr-a", model.UserStatusBusy))
		mock.ExpectQuery("FROM connection_questions").
			WithArgs(uint64(7), uint64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "question_id", "question", "answered", "correct"}).
				AddRow(9, 44, "What is their favourite food?", false, false).
				AddRow(10, 45, "Where did they grow up?", true, true))

		st, err := svc.CurrentStatus(ctx, model.User{ID: 3})
		require.NoError(t, err)
		assert.Nil(t, st.QRCode, "only the presenter carries the QR code")
		require.NotNil(t, st.PartnerName)
		assert.Equal(t, "alice", *st.PartnerName)
		require.Len(t, st.Questions, 2)
		assert.Equal(t, "What is their favourite food?", st.Questions[0].Question)
		assert.True(t, st.Questions[1].Answered)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
