package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrEventNotFound is returned when no event matches the requested ID or
// code. Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// EventRepo provides CRUD operations for events. The whitelist column is
// stored as a JSON array of email addresses and is marshalled and
// unmarshalled transparently, so callers only ever see []string. All
// timestamp columns are assumed to be stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying database handle so callers can open
// transactions that span multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, name, code, is_active, whitelist, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		ev  model.Event
		raw []byte
	)
	if err := row.Scan(&ev.ID, &ev.Name, &ev.Code, &ev.IsActive, &raw, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return model.Event{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ev.Whitelist); err != nil {
			return model.Event{}, err
		}
	}
	return ev, nil
}

// Create inserts a new event with an empty whitelist and returns the stored
// row. Returns ErrDuplicate when the code is already taken.
func (r *EventRepo) Create(ctx context.Context, name, code string) (model.Event, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (name, code, is_active, whitelist) VALUES (?, ?, 0, '[]')`,
		name, code)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Event{}, ErrDuplicate
		}
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a single event by primary key. Returns ErrEventNotFound
// when no row exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// GetByCode fetches a single event by its unique code. Returns
// ErrEventNotFound when no row exists.
func (r *EventRepo) GetByCode(ctx context.Context, code string) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE code = ?`, code)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	return ev, err
}

// List returns all events ordered by creation time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListActive returns all events whose is_active flag is set. The periodic
// driver iterates over this list each tick.
func (r *EventRepo) ListActive(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Update persists name, code, whitelist and active flag of an existing
// event. Returns ErrEventNotFound when the row does not exist and
// ErrDuplicate when the new code collides with another event.
func (r *EventRepo) Update(ctx context.Context, ev model.Event) error {
	wl, err := json.Marshal(ev.Whitelist)
	if err != nil {
		return err
	}
	if ev.Whitelist == nil {
		wl = []byte("[]")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET name = ?, code = ?, is_active = ?, whitelist = ? WHERE id = ?`,
		ev.Name, ev.Code, ev.IsActive, wl, ev.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// RowsAffected is 0 both for missing rows and no-op updates, so
		// confirm the row exists before reporting not found.
		if _, getErr := r.GetByID(ctx, ev.ID); getErr != nil {
			return getErr
		}
	}
	return err
}

// SetActiveTx flips the is_active flag within an existing transaction.
// Starting and stopping the game toggles this flag together with the
// connection cleanup, so both must commit atomically.
func (r *EventRepo) SetActiveTx(ctx context.Context, tx *sql.Tx, id uint64, active bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE events SET is_active = ? WHERE id = ?`, active, id)
	return err
}

// Delete removes an event. Dependent users and connections are removed by
// the database through ON DELETE CASCADE.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrEventNotFound
	}
	return err
}
