package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrConnectionNotFound is returned when no connection matches the lookup,
// including "user has no pending or active connection right now".
var ErrConnectionNotFound = errors.New("connection not found")

// ConnectionRepo provides data access to the connections table. The game
// service drives every state transition through the ...Tx variants so that
// a transition, its user updates and its question rows commit atomically.
// CurrentForUpdateTx takes a row lock, which is what serializes concurrent
// scan/answer/complete/cancel calls on the same connection.
type ConnectionRepo struct {
	db *sql.DB
}

// NewConnectionRepo returns a new ConnectionRepo bound to the given database.
func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

// DB exposes the underlying database handle so callers can open
// transactions that span multiple repositories.
func (r *ConnectionRepo) DB() *sql.DB { return r.db }

const connectionColumns = `id, event_id, user1_id, user2_id, status, start_time, end_time, created_at, updated_at`

func scanConnection(row interface{ Scan(...any) error }) (model.Connection, error) {
	var c model.Connection
	err := row.Scan(&c.ID, &c.EventID, &c.User1ID, &c.User2ID, &c.Status,
		&c.StartTime, &c.EndTime, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ConnectionRecord carries the columns needed to insert one pairing. The
// matchmaking pass builds a batch of these; User1ID must be the smaller of
// the two IDs so the symmetric unique key holds.
type ConnectionRecord struct {
	EventID   uint64
	User1ID   uint64
	User2ID   uint64
	StartTime time.Time
	EndTime   time.Time
}

// CreateBulkTx inserts multiple pending connections in one statement within
// the provided transaction. Passing an empty slice has no effect and
// returns nil. Returns ErrDuplicate when any pair already exists for the
// event, which aborts the whole pass.
func (r *ConnectionRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, records []ConnectionRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `INSERT INTO connections (event_id, user1_id, user2_id, status, start_time, end_time) VALUES `
	args := make([]interface{}, 0, len(records)*6)
	for i, rec := range records {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, rec.EventID, rec.User1ID, rec.User2ID, model.ConnectionStatusPending,
			rec.StartTime.UTC(), rec.EndTime.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID fetches a single connection by primary key.
func (r *ConnectionRepo) GetByID(ctx context.Context, id uint64) (model.Connection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return model.Connection{}, ErrConnectionNotFound
	}
	return c, err
}

// GetByIDTx is GetByID within a transaction, locking the row so an admin
// status override cannot race a concurrent game transition.
func (r *ConnectionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Connection, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ? FOR UPDATE`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return model.Connection{}, ErrConnectionNotFound
	}
	return c, err
}

// List returns every connection; admin use only.
func (r *ConnectionRepo) List(ctx context.Context) ([]model.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConnections(rows)
}

// ListByEventTx returns every connection of an event regardless of status.
// The matchmaking pass derives the already-paired set from this.
func (r *ConnectionRepo) ListByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Connection, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConnections(rows)
}

// CurrentForUser returns the unique pending or active connection the user
// participates in within their event, without locking. Used by read-only
// lookups such as the status endpoint.
func (r *ConnectionRepo) CurrentForUser(ctx context.Context, eventID, userID uint64) (model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE event_id = ? AND status IN (?, ?) AND (user1_id = ? OR user2_id = ?)
		 LIMIT 1`,
		eventID, model.ConnectionStatusPending, model.ConnectionStatusActive, userID, userID)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return model.Connection{}, ErrConnectionNotFound
	}
	return c, err
}

// CurrentForUpdateTx is CurrentForUser within a transaction, locking the
// row with SELECT ... FOR UPDATE. Every state transition goes through this
// lookup first so concurrent transitions on the same connection serialize
// at the database.
func (r *ConnectionRepo) CurrentForUpdateTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (model.Connection, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE event_id = ? AND status IN (?, ?) AND (user1_id = ? OR user2_id = ?)
		 LIMIT 1 FOR UPDATE`,
		eventID, model.ConnectionStatusPending, model.ConnectionStatusActive, userID, userID)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return model.Connection{}, ErrConnectionNotFound
	}
	return c, err
}

// ExpiredTx returns the pending and active connections of an event whose
// deadline has passed. The sweeper cancels exactly these.
func (r *ConnectionRepo) ExpiredTx(ctx context.Context, tx *sql.Tx, eventID uint64, now time.Time) ([]model.Connection, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE event_id = ? AND status IN (?, ?) AND end_time < ?`,
		eventID, model.ConnectionStatusPending, model.ConnectionStatusActive, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConnections(rows)
}

// ListOpenByEventTx returns the pending and active connections of an event.
// Stopping an event force-cancels exactly these.
func (r *ConnectionRepo) ListOpenByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Connection, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE event_id = ? AND status IN (?, ?)`,
		eventID, model.ConnectionStatusPending, model.ConnectionStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConnections(rows)
}

// UpdateStatusTx sets the status of a single connection within the provided
// transaction.
func (r *ConnectionRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE connections SET status = ? WHERE id = ?`, status, id)
	return err
}

// CancelManyTx marks every listed connection CANCELLED in one statement.
// Used by the sweeper and by stop-event. Passing an empty slice has no
// effect and returns nil.
func (r *ConnectionRepo) CancelManyTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE connections SET status = ? WHERE id IN (`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, model.ConnectionStatusCancelled)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a connection; admin use only.
func (r *ConnectionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrConnectionNotFound
	}
	return err
}

func collectConnections(rows *sql.Rows) ([]model.Connection, error) {
	var conns []model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
