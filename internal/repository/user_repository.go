package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrUserNotFound is returned when no user matches the requested ID or
// email. Handlers should translate this into an HTTP 404 response (or 401
// during login).
var ErrUserNotFound = errors.New("user not found")

// UserRepo provides data access to the users table. Besides plain CRUD it
// carries the bulk status updates used by the matchmaking pass and the
// per-round point and counter increments, all of which run inside the
// caller's transaction so one engine pass commits atomically.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// DB exposes the underlying database handle so callers can open
// transactions that span multiple repositories.
func (r *UserRepo) DB() *sql.DB { return r.db }

const userColumns = `id, event_id, name, email, password_hash, points, qr_code, connection_count, status, is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u       model.User
		eventID sql.NullInt64
		pwHash  sql.NullString
	)
	err := row.Scan(&u.ID, &eventID, &u.Name, &u.Email, &pwHash, &u.Points, &u.QRCode,
		&u.ConnectionCount, &u.Status, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		u.EventID = &id
	}
	if pwHash.Valid {
		u.PasswordHash = pwHash.String
	}
	return u, nil
}

// randomToken generates a random hexadecimal string from n bytes of
// cryptographically secure random data. It is used to populate the
// qr_code column; the token is what partners scan to activate a round.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts a new attendee for an event with a freshly generated QR
// token and returns the stored row. The email is normalized to lower case.
// Returns ErrDuplicate when the email is already registered for the event.
func (r *UserRepo) Create(ctx context.Context, eventID uint64, name, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	qr, err := randomToken(16)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (event_id, name, email, qr_code, status) VALUES (?, ?, ?, ?, ?)`,
		eventID, name, email, qr, model.UserStatusAvailable)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// CreateAdmin inserts an admin account with a bcrypt password hash. Admins
// may or may not belong to an event and are never picked up by the
// matchmaking pass.
func (r *UserRepo) CreateAdmin(ctx context.Context, eventID *uint64, name, email, passwordHash string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	qr, err := randomToken(16)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (event_id, name, email, password_hash, qr_code, status, is_admin) VALUES (?, ?, ?, ?, ?, ?, 1)`,
		eventID, name, email, passwordHash, qr, model.UserStatusAvailable)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a single user by primary key. Returns ErrUserNotFound
// when no row exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByIDTx is GetByID within an existing transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByEmailAndEvent fetches a user by normalized email within one event.
// Used by the passwordless attendee login.
func (r *UserRepo) GetByEmailAndEvent(ctx context.Context, email string, eventID uint64) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND event_id = ? LIMIT 1`, email, eventID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetAdminByEmail fetches an admin account by normalized email. Used by the
// password-based admin login; non-admin rows are not considered.
func (r *UserRepo) GetAdminByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND is_admin = 1 LIMIT 1`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// ListByEvent returns all users of an event ordered by name.
func (r *UserRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE event_id = ? ORDER BY name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListAvailableByEventTx returns all non-admin users of an event whose
// status is AVAILABLE. The matchmaking pass calls this at the start of each
// tick within the pass transaction.
func (r *UserRepo) ListAvailableByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.User, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE event_id = ? AND status = ? AND is_admin = 0`,
		eventID, model.UserStatusAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateStatusTx sets the status of every listed user within the provided
// transaction. Passing an empty slice has no effect and returns nil.
func (r *UserRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, userIDs []uint64, status string) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `UPDATE users SET status = ? WHERE id IN (`
	args := make([]interface{}, 0, len(userIDs)+1)
	args = append(args, status)
	for i, id := range userIDs {
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

// AwardPointTx increments the points of both listed users by one. Called
// together with marking a connection question correct so the award and the
// marking commit atomically.
func (r *UserRepo) AwardPointTx(ctx context.Context, tx *sql.Tx, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `UPDATE users SET points = points + 1 WHERE id IN (`
	args := make([]interface{}, 0, len(userIDs))
	for i, id := range userIDs {
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

// FinishRoundTx releases the listed users after a completed round: status
// back to AVAILABLE and connection_count incremented by one.
func (r *UserRepo) FinishRoundTx(ctx context.Context, tx *sql.Tx, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `UPDATE users SET status = ?, connection_count = connection_count + 1 WHERE id IN (`
	args := make([]interface{}, 0, len(userIDs)+1)
	args = append(args, model.UserStatusAvailable)
	for i, id := range userIDs {
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

// Leaderboard returns the event's non-admin users ordered by points
// descending, ties broken by completed rounds then name.
func (r *UserRepo) Leaderboard(ctx context.Context, eventID uint64, limit int) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE event_id = ? AND is_admin = 0
		 ORDER BY points DESC, connection_count DESC, name
		 LIMIT ?`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Delete removes a user. Answers and connection assignments follow through
// ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrUserNotFound
	}
	return err
}
