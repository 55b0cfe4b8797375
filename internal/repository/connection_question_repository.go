package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrAssignmentNotFound is returned when the acting user has no question
// assignment matching (connection, question). The game service maps this to
// a permission failure: the question exists, it just is not yours.
var ErrAssignmentNotFound = errors.New("connection question not found")

// ConnectionQuestionRepo provides data access to the connection_questions
// table: the per-user question assignments of a round. Created in bulk when
// a QR scan activates a connection, then marked answered one by one.
type ConnectionQuestionRepo struct {
	db *sql.DB
}

// NewConnectionQuestionRepo returns a new ConnectionQuestionRepo bound to
// the given database.
func NewConnectionQuestionRepo(db *sql.DB) *ConnectionQuestionRepo {
	return &ConnectionQuestionRepo{db: db}
}

const connQuestionColumns = `id, connection_id, user_id, question_id, answered, correct, created_at, updated_at`

func scanConnQuestion(row interface{ Scan(...any) error }) (model.ConnectionQuestion, error) {
	var cq model.ConnectionQuestion
	err := row.Scan(&cq.ID, &cq.ConnectionID, &cq.UserID, &cq.QuestionID,
		&cq.Answered, &cq.Correct, &cq.CreatedAt, &cq.UpdatedAt)
	return cq, err
}

// AssignmentRecord carries the columns needed to insert one question
// assignment.
type AssignmentRecord struct {
	ConnectionID uint64
	UserID       uint64
	QuestionID   uint64
}

// CreateBulkTx inserts multiple assignments in one statement within the
// provided transaction. Passing an empty slice has no effect and returns
// nil.
func (r *ConnectionQuestionRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, records []AssignmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `INSERT INTO connection_questions (connection_id, user_id, question_id, answered, correct) VALUES `
	args := make([]interface{}, 0, len(records)*3)
	for i, rec := range records {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, 0, 0)"
		args = append(args, rec.ConnectionID, rec.UserID, rec.QuestionID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetAssignmentTx fetches the assignment of one question to one user within
// one connection, inside the provided transaction. Returns
// ErrAssignmentNotFound when the user was not assigned this question.
func (r *ConnectionQuestionRepo) GetAssignmentTx(ctx context.Context, tx *sql.Tx, connectionID, userID, questionID uint64) (model.ConnectionQuestion, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+connQuestionColumns+` FROM connection_questions
		 WHERE connection_id = ? AND user_id = ? AND question_id = ? LIMIT 1`,
		connectionID, userID, questionID)
	cq, err := scanConnQuestion(row)
	if err == sql.ErrNoRows {
		return model.ConnectionQuestion{}, ErrAssignmentNotFound
	}
	return cq, err
}

// MarkAnsweredTx records the outcome of a submission: answered flips to
// true and correct records whether the guess matched.
func (r *ConnectionQuestionRepo) MarkAnsweredTx(ctx context.Context, tx *sql.Tx, id uint64, correct bool) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE connection_questions SET answered = 1, correct = ? WHERE id = ?`, correct, id)
	return err
}

// CountUnansweredTx returns how many assignments of a connection are still
// unanswered. Completing a round requires this to be zero.
func (r *ConnectionQuestionRepo) CountUnansweredTx(ctx context.Context, tx *sql.Tx, connectionID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connection_questions WHERE connection_id = ? AND answered = 0`,
		connectionID).Scan(&n)
	return n, err
}

// AssignedQuestion is an assignment joined with its question text, shaped
// for the game status response.
type AssignedQuestion struct {
	ID         uint64 `json:"id"`
	QuestionID uint64 `json:"question_id"`
	Question   string `json:"question_text"`
	Answered   bool   `json:"question_answered"`
	Correct    bool   `json:"answered_correctly"`
}

// ListForUser returns the assignments of one user within one connection
// together with the question text, ordered by assignment ID.
func (r *ConnectionQuestionRepo) ListForUser(ctx context.Context, connectionID, userID uint64) ([]AssignedQuestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cq.id, cq.question_id, q.question, cq.answered, cq.correct
		 FROM connection_questions cq
		 JOIN questions q ON q.id = cq.question_id
		 WHERE cq.connection_id = ? AND cq.user_id = ?
		 ORDER BY cq.id`,
		connectionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assigned []AssignedQuestion
	for rows.Next() {
		var aq AssignedQuestion
		if err := rows.Scan(&aq.ID, &aq.QuestionID, &aq.Question, &aq.Answered, &aq.Correct); err != nil {
			return nil, err
		}
		assigned = append(assigned, aq)
	}
	return assigned, rows.Err()
}
