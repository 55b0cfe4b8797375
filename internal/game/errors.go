// Package game implements the matchmaking and round-progression core:
// pairing available users of an active event, sweeping expired
// connections, and driving a single connection through its
// scan/answer/complete/cancel lifecycle.
package game

import "errors"

// Error taxonomy of the game core. Every failure a caller can recover from
// wraps exactly one of these sentinels, so handlers map them to HTTP
// statuses with errors.Is and never have to parse messages. Anything else
// coming out of the package is an infrastructure error and bubbles up as-is.
var (
	// ErrNotAuthorized: the acting user may not perform this step, e.g.
	// the QR presenter trying to scan, or a scanned token that does not
	// match the presenter's code.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrValidation: the data needed to proceed does not exist, e.g. a
	// participant with too few signup answers to build a round from.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: the entity the step operates on is absent, e.g. no
	// active connection, or no stored partner answer for a question.
	ErrNotFound = errors.New("not found")

	// ErrPermission: the acting user is not assigned to the question they
	// tried to answer.
	ErrPermission = errors.New("permission denied")

	// ErrClient: the step is invalid in the current state, e.g. answering
	// twice, completing with unanswered questions, cancelling a finished
	// round.
	ErrClient = errors.New("invalid request")
)
