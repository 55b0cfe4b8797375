package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrAnswerNotFound is returned when a user has no stored answer for the
// requested question. During a round this surfaces as "nothing to compare
// the guess against".
var ErrAnswerNotFound = errors.New("user answer not found")

// UserAnswerRepo provides data access to the user_answers table: the
// answers attendees give to signup questions. These rows double as the
// expected answers during a round, so the game service reads them through
// the ...Tx variants inside the round transaction.
type UserAnswerRepo struct {
	db *sql.DB
}

// NewUserAnswerRepo returns a new UserAnswerRepo bound to the given database.
func NewUserAnswerRepo(db *sql.DB) *UserAnswerRepo { return &UserAnswerRepo{db: db} }

const userAnswerColumns = `id, user_id, question_id, answer, created_at, updated_at`

func scanUserAnswer(row interface{ Scan(...any) error }) (model.UserAnswer, error) {
	var ua model.UserAnswer
	err := row.Scan(&ua.ID, &ua.UserID, &ua.QuestionID, &ua.Answer, &ua.CreatedAt, &ua.UpdatedAt)
	return ua, err
}

// Create inserts a signup answer. Returns ErrDuplicate when the user has
// already answered this question.
func (r *UserAnswerRepo) Create(ctx context.Context, userID, questionID uint64, answer string) (model.UserAnswer, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_answers (user_id, question_id, answer) VALUES (?, ?, ?)`,
		userID, questionID, answer)
	if err != nil {
		if isDuplicateKey(err) {
			return model.UserAnswer{}, ErrDuplicate
		}
		return model.UserAnswer{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.UserAnswer{}, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userAnswerColumns+` FROM user_answers WHERE id = ?`, uint64(id))
	return scanUserAnswer(row)
}

// GetByID fetches a single answer row. Returns ErrAnswerNotFound when no
// row exists.
func (r *UserAnswerRepo) GetByID(ctx context.Context, id uint64) (model.UserAnswer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userAnswerColumns+` FROM user_answers WHERE id = ?`, id)
	ua, err := scanUserAnswer(row)
	if err == sql.ErrNoRows {
		return model.UserAnswer{}, ErrAnswerNotFound
	}
	return ua, err
}

// Update overwrites the answer text of an existing row.
func (r *UserAnswerRepo) Update(ctx context.Context, id uint64, answer string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE user_answers SET answer = ? WHERE id = ?`, answer, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
	}
	return err
}

// Delete removes an answer row.
func (r *UserAnswerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_answers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrAnswerNotFound
	}
	return err
}

// ListByUser returns all signup answers of one user.
func (r *UserAnswerRepo) ListByUser(ctx context.Context, userID uint64) ([]model.UserAnswer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userAnswerColumns+` FROM user_answers WHERE user_id = ? ORDER BY question_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserAnswers(rows)
}

// ListByUserTx is ListByUser within an existing transaction. The scan step
// reads both partners' answers through this to pick the round's questions.
func (r *UserAnswerRepo) ListByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]model.UserAnswer, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+userAnswerColumns+` FROM user_answers WHERE user_id = ? ORDER BY question_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserAnswers(rows)
}

// GetAnswerTx returns the stored answer text of one user for one question
// within an existing transaction. Returns ErrAnswerNotFound when the user
// never answered the question.
func (r *UserAnswerRepo) GetAnswerTx(ctx context.Context, tx *sql.Tx, userID, questionID uint64) (string, error) {
	var answer string
	err := tx.QueryRowContext(ctx,
		`SELECT answer FROM user_answers WHERE user_id = ? AND question_id = ? LIMIT 1`,
		userID, questionID).Scan(&answer)
	if err == sql.ErrNoRows {
		return "", ErrAnswerNotFound
	}
	return answer, err
}

// ListAll returns every answer row; admin use only.
func (r *UserAnswerRepo) ListAll(ctx context.Context) ([]model.UserAnswer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userAnswerColumns+` FROM user_answers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserAnswers(rows)
}

func collectUserAnswers(rows *sql.Rows) ([]model.UserAnswer, error) {
	var answers []model.UserAnswer
	for rows.Next() {
		ua, err := scanUserAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, ua)
	}
	return answers, rows.Err()
}
