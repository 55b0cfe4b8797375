package model

import "time"

// Connection status values as stored in the connections.status column.
// PENDING means the pair has been created but the QR code has not been
// scanned yet; ACTIVE means the round is being played; COMPLETED and
// CANCELLED are terminal.
const (
	ConnectionStatusPending   = "PENDING"
	ConnectionStatusActive    = "ACTIVE"
	ConnectionStatusCompleted = "COMPLETED"
	ConnectionStatusCancelled = "CANCELLED"
)

// Connection pairs two users of an event for one round of the game, as
// stored in the `connections` table. User1 presents their QR code and user2
// scans it. User1ID is always the smaller of the two user IDs so the unique
// key on (event_id, user1_id, user2_id) acts as a symmetric constraint: the
// same pair can never be stored twice in either order.
//
// EndTime is the deadline after which the sweeper cancels the connection
// and frees both users.
type Connection struct {
	ID        uint64
	EventID   uint64
	User1ID   uint64
	User2ID   uint64
	Status    string
	StartTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Partner returns the ID of the other participant. It returns 0 when the
// given user is not part of this connection.
func (c *Connection) Partner(userID uint64) uint64 {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return 0
}
