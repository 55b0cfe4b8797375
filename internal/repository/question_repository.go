package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bytebond/bytebond/internal/model"
)

// ErrQuestionNotFound is returned when no question matches the requested ID.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionRepo provides CRUD operations for the static question catalogue.
type QuestionRepo struct {
	db *sql.DB
}

// NewQuestionRepo returns a new QuestionRepo bound to the given database.
func NewQuestionRepo(db *sql.DB) *QuestionRepo { return &QuestionRepo{db: db} }

const questionColumns = `id, question, is_signup_question, is_game_question, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.Question, &q.IsSignupQuestion, &q.IsGameQuestion, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// Create inserts a new question and returns the stored row.
func (r *QuestionRepo) Create(ctx context.Context, text string, isSignup, isGame bool) (model.Question, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO questions (question, is_signup_question, is_game_question) VALUES (?, ?, ?)`,
		text, isSignup, isGame)
	if err != nil {
		return model.Question{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Question{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a single question. Returns ErrQuestionNotFound when no
// row exists.
func (r *QuestionRepo) GetByID(ctx context.Context, id uint64) (model.Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return model.Question{}, ErrQuestionNotFound
	}
	return q, err
}

// List returns all questions in insertion order.
func (r *QuestionRepo) List(ctx context.Context) ([]model.Question, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListRandom returns up to limit questions in random order. With onboarding
// set, signup questions sort first so new attendees see them before any
// game-only filler.
func (r *QuestionRepo) ListRandom(ctx context.Context, limit int, onboarding bool) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions ORDER BY `
	if onboarding {
		query += `is_signup_question DESC, is_game_question ASC, RAND()`
	} else {
		query += `RAND()`
	}
	query += ` LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Update persists the text and flags of an existing question.
func (r *QuestionRepo) Update(ctx context.Context, q model.Question) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE questions SET question = ?, is_signup_question = ?, is_game_question = ? WHERE id = ?`,
		q.Question, q.IsSignupQuestion, q.IsGameQuestion, q.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		if _, getErr := r.GetByID(ctx, q.ID); getErr != nil {
			return getErr
		}
	}
	return err
}

// Delete removes a question together with its dependent answers and
// assignments (ON DELETE CASCADE).
func (r *QuestionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrQuestionNotFound
	}
	return err
}
