package model

import "time"

// ConnectionQuestion assigns one question to one user within one connection,
// as stored in the `connection_questions` table. The assigned user has to
// guess their partner's signup answer to the question. Answered flips to
// true on the first submission; Correct records whether that submission
// matched. Unique on (connection_id, user_id, question_id).
type ConnectionQuestion struct {
	ID           uint64
	ConnectionID uint64
	UserID       uint64
	QuestionID   uint64
	Answered     bool
	Correct      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
