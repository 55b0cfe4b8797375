package model

import "time"

// Event represents a single gathering with its own pool of attendees, as
// stored in the `events` table. The Code is what attendees type in when
// signing up or logging in; IsActive controls whether the matchmaking pass
// considers this event at all. Whitelist holds the set of email addresses
// permitted to sign up and is persisted as a JSON array.
//
// Fields:
//  ID        – primary key identifier of the event.
//  Name      – human readable event name.
//  Code      – unique short code used for signup and login.
//  IsActive  – true while pairing rounds are running.
//  Whitelist – emails permitted to sign up for this event.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Event struct {
	ID        uint64
	Name      string
	Code      string
	IsActive  bool
	Whitelist []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
