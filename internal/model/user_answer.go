package model

import "time"

// UserAnswer stores the answer a user gave to a signup question, as stored
// in the `user_answers` table. During a round these rows are the expected
// answers the partner has to guess. A user can answer each question at most
// once (unique on user_id + question_id).
type UserAnswer struct {
	ID         uint64
	UserID     uint64
	QuestionID uint64
	Answer     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
