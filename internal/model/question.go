package model

import "time"

// Question is a predefined trivia question from the `questions` table.
// Questions flagged as signup questions are answered by attendees during
// onboarding; questions flagged as game questions may be assigned during a
// connection round. A question can carry both flags.
type Question struct {
	ID               uint64
	Question         string
	IsSignupQuestion bool
	IsGameQuestion   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
