// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// ConnectionEvent is published whenever a connection reaches a terminal
// state (completed or cancelled). It carries enough information for
// downstream consumers to log or analyze rounds without querying the
// primary database.
type ConnectionEvent struct {
	ConnectionID uint64 `json:"connection_id"`
	EventID      uint64 `json:"event_id"`
	User1ID      uint64 `json:"user1_id"`
	User2ID      uint64 `json:"user2_id"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	OccurredAt   string `json:"occurred_at"`
}
