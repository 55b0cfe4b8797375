package model

import "time"

// User status values as stored in the users.status column. A user is
// AVAILABLE when they can be picked up by the matchmaking pass, CONNECTING
// once a pending connection has been created for them, and BUSY while a
// round is actively being played.
const (
	UserStatusAvailable  = "AVAILABLE"
	UserStatusConnecting = "CONNECTING"
	UserStatusBusy       = "BUSY"
)

// User represents an attendee (or admin) record as stored in the `users`
// table. Regular attendees have no password; they authenticate with their
// email plus the event code. Admin accounts carry a bcrypt PasswordHash and
// are excluded from pairing. Email is unique within an event, so the same
// address may attend different events.
//
// Fields:
//  ID              – primary key identifier of the user.
//  EventID         – event this user belongs to; nil for global admins.
//  Name            – display name shown to partners and on the leaderboard.
//  Email           – email address, unique per event.
//  PasswordHash    – bcrypt hash, set for admin accounts only.
//  Points          – leaderboard points earned from correct answers.
//  QRCode          – opaque token presented as a QR code to partners.
//  ConnectionCount – number of completed rounds.
//  Status          – AVAILABLE, CONNECTING or BUSY.
//  IsAdmin         – whether this user may manage events and questions.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64
	EventID         *uint64
	Name            string
	Email           string
	PasswordHash    string
	Points          int
	QRCode          string
	ConnectionCount int
	Status          string
	IsAdmin         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
