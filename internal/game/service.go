package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/queue"
	"github.com/bytebond/bytebond/internal/repository"
)

// Signal names pushed to connected clients over the notification channel.
// Refresh tells a client to re-fetch its game status; Cancelled tells it
// the partner walked away from the round.
const (
	SignalRefresh   = "refresh"
	SignalCancelled = "cancelled"
)

// Notifier fans a signal out to whoever is subscribed to a user's topic.
// Delivery is at-most-once and best effort; the game never waits for it.
type Notifier interface {
	Notify(userID uint64, signal string)
}

// Publisher emits connection lifecycle events to the message broker for
// downstream consumers. Failures are logged by the caller and never roll
// back the transition that produced the event.
type Publisher interface {
	PublishConnectionEvent(ctx context.Context, ev queue.ConnectionEvent) error
}

// NopNotifier discards all signals. Used when no websocket hub is wired up
// and in tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(uint64, string) {}

// NopPublisher discards all events. Used when no broker is configured and
// in tests.
type NopPublisher struct{}

// PublishConnectionEvent implements Publisher.
func (NopPublisher) PublishConnectionEvent(context.Context, queue.ConnectionEvent) error { return nil }

// Options tunes the game core. Zero values fall back to the defaults the
// product shipped with: rounds expire after an hour and each participant
// guesses three of their partner's answers (six questions per round).
type Options struct {
	PairTTL          time.Duration
	QuestionsPerUser int
}

// Service drives the matchmaking pass and the per-connection state
// machine. All state lives in the database; every transition runs in a
// transaction that locks the connection row first, so concurrent calls on
// the same connection serialize there. The service itself holds no
// per-connection state and is safe for concurrent use.
type Service struct {
	db          *sql.DB
	events      *repository.EventRepo
	users       *repository.UserRepo
	answers     *repository.UserAnswerRepo
	conns       *repository.ConnectionRepo
	assignments *repository.ConnectionQuestionRepo
	notifier    Notifier
	publisher   Publisher

	pairTTL          time.Duration
	questionsPerUser int

	// swapped out by tests for determinism
	now func() time.Time
	rng *rand.Rand
}

// NewService wires a Service. All repositories must be non-nil; notifier
// and publisher may be nil, in which case signals and events are dropped.
func NewService(
	db *sql.DB,
	events *repository.EventRepo,
	users *repository.UserRepo,
	answers *repository.UserAnswerRepo,
	conns *repository.ConnectionRepo,
	assignments *repository.ConnectionQuestionRepo,
	notifier Notifier,
	publisher Publisher,
	opts Options,
) *Service {
	if db == nil || events == nil || users == nil || answers == nil || conns == nil || assignments == nil {
		panic("nil dependency passed to game.NewService")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if opts.PairTTL <= 0 {
		opts.PairTTL = time.Hour
	}
	if opts.QuestionsPerUser <= 0 {
		opts.QuestionsPerUser = 3
	}
	return &Service{
		db:               db,
		events:           events,
		users:            users,
		answers:          answers,
		conns:            conns,
		assignments:      assignments,
		notifier:         notifier,
		publisher:        publisher,
		pairTTL:          opts.PairTTL,
		questionsPerUser: opts.QuestionsPerUser,
		now:              time.Now,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// eventIDOf guards actions that only make sense for users attached to an
// event.
func eventIDOf(u model.User) (uint64, error) {
	if u.EventID == nil {
		return 0, fmt.Errorf("%w: user belongs to no event", ErrNotFound)
	}
	return *u.EventID, nil
}

// Scan activates the actor's pending connection. Only user2 (the scanner)
// may call this, and the scanned token must equal user1's QR code. On
// success the connection turns ACTIVE, both users turn BUSY and each gets
// assigned questionsPerUser random questions drawn from the partner's
// signup answers.
func (s *Service) Scan(ctx context.Context, actor model.User, qrToken string) error {
	eventID, err := eventIDOf(actor)
	if err != nil {
		// Wrong actor rather than missing data: scanning without an
		// event can never be legitimate.
		return fmt.Errorf("%w: user belongs to no event", ErrNotAuthorized)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conn, err := s.conns.CurrentForUpdateTx(ctx, tx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return fmt.Errorf("%w: no connection to activate", ErrNotAuthorized)
		}
		return err
	}
	if conn.User1ID == actor.ID {
		return fmt.Errorf("%w: presenter cannot scan their own code", ErrNotAuthorized)
	}
	// Only a pending round can be activated. Re-scanning an active one
	// must not rebuild the question assignments.
	if conn.Status != model.ConnectionStatusPending {
		return fmt.Errorf("%w: round is already active", ErrClient)
	}

	presenter, err := s.users.GetByIDTx(ctx, tx, conn.User1ID)
	if err != nil {
		return err
	}
	if presenter.QRCode != qrToken {
		return fmt.Errorf("%w: invalid QR code scanned", ErrNotAuthorized)
	}

	presenterAnswers, err := s.answers.ListByUserTx(ctx, tx, conn.User1ID)
	if err != nil {
		return err
	}
	scannerAnswers, err := s.answers.ListByUserTx(ctx, tx, conn.User2ID)
	if err != nil {
		return err
	}
	if len(presenterAnswers) < s.questionsPerUser || len(scannerAnswers) < s.questionsPerUser {
		return fmt.Errorf("%w: both users need at least %d signup answers", ErrValidation, s.questionsPerUser)
	}

	// Each user is quizzed about their partner: user1 gets questions from
	// user2's answers and vice versa.
	records := make([]repository.AssignmentRecord, 0, 2*s.questionsPerUser)
	for _, qid := range s.pickQuestions(scannerAnswers) {
		records = append(records, repository.AssignmentRecord{ConnectionID: conn.ID, UserID: conn.User1ID, QuestionID: qid})
	}
	for _, qid := range s.pickQuestions(presenterAnswers) {
		records = append(records, repository.AssignmentRecord{ConnectionID: conn.ID, UserID: conn.User2ID, QuestionID: qid})
	}

	if err := s.conns.UpdateStatusTx(ctx, tx, conn.ID, model.ConnectionStatusActive); err != nil {
		return err
	}
	if err := s.users.UpdateStatusTx(ctx, tx, []uint64{conn.User1ID, conn.User2ID}, model.UserStatusBusy); err != nil {
		return err
	}
	if err := s.assignments.CreateBulkTx(ctx, tx, records); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.notifier.Notify(conn.User1ID, SignalRefresh)
	s.notifier.Notify(conn.User2ID, SignalRefresh)
	return nil
}

// pickQuestions selects questionsPerUser distinct question IDs at random
// from a partner's signup answers.
func (s *Service) pickQuestions(answers []model.UserAnswer) []uint64 {
	idx := s.rng.Perm(len(answers))
	picked := make([]uint64, 0, s.questionsPerUser)
	for _, i := range idx[:s.questionsPerUser] {
		picked = append(picked, answers[i].QuestionID)
	}
	return picked
}

// AnswerResult reports the outcome of one submission back to the guesser.
type AnswerResult struct {
	Correct        bool   `json:"correct"`
	ExpectedAnswer string `json:"expected_answer"`
	YourAnswer     string `json:"your_answer"`
}

// Answer records the actor's guess for one of their assigned questions.
// The connection must be ACTIVE and the question must be assigned to the
// actor and still unanswered. A correct guess awards one point to both
// participants in the same transaction that marks the question answered.
func (s *Service) Answer(ctx context.Context, actor model.User, questionID uint64, submitted string) (AnswerResult, error) {
	eventID, err := eventIDOf(actor)
	if err != nil {
		return AnswerResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AnswerResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conn, err := s.conns.CurrentForUpdateTx(ctx, tx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return AnswerResult{}, fmt.Errorf("%w: no active connection", ErrNotFound)
		}
		return AnswerResult{}, err
	}
	if conn.Status != model.ConnectionStatusActive {
		return AnswerResult{}, fmt.Errorf("%w: no active connection", ErrNotFound)
	}

	assignment, err := s.assignments.GetAssignmentTx(ctx, tx, conn.ID, actor.ID, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return AnswerResult{}, fmt.Errorf("%w: question is not assigned to you", ErrPermission)
		}
		return AnswerResult{}, err
	}
	if assignment.Answered {
		return AnswerResult{}, fmt.Errorf("%w: question already answered", ErrClient)
	}

	expected, err := s.answers.GetAnswerTx(ctx, tx, conn.Partner(actor.ID), questionID)
	if err != nil {
		if errors.Is(err, repository.ErrAnswerNotFound) {
			return AnswerResult{}, fmt.Errorf("%w: partner never answered this question", ErrNotFound)
		}
		return AnswerResult{}, err
	}

	correct := AnswerMatches(submitted, expected)
	if err := s.assignments.MarkAnsweredTx(ctx, tx, assignment.ID, correct); err != nil {
		return AnswerResult{}, err
	}
	if correct {
		if err := s.users.AwardPointTx(ctx, tx, conn.User1ID, conn.User2ID); err != nil {
			return AnswerResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return AnswerResult{}, err
	}
	committed = true

	s.notifier.Notify(conn.User1ID, SignalRefresh)
	s.notifier.Notify(conn.User2ID, SignalRefresh)
	return AnswerResult{Correct: correct, ExpectedAnswer: expected, YourAnswer: submitted}, nil
}

// Complete finishes the actor's active connection once every assigned
// question has been answered. Both users go back to AVAILABLE with their
// completed-round counter incremented.
func (s *Service) Complete(ctx context.Context, actor model.User) error {
	eventID, err := eventIDOf(actor)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conn, err := s.conns.CurrentForUpdateTx(ctx, tx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return fmt.Errorf("%w: no active connection", ErrNotFound)
		}
		return err
	}
	if conn.Status != model.ConnectionStatusActive {
		return fmt.Errorf("%w: no active connection", ErrNotFound)
	}

	unanswered, err := s.assignments.CountUnansweredTx(ctx, tx, conn.ID)
	if err != nil {
		return err
	}
	if unanswered > 0 {
		return fmt.Errorf("%w: %d questions remain unanswered", ErrClient, unanswered)
	}

	if err := s.conns.UpdateStatusTx(ctx, tx, conn.ID, model.ConnectionStatusCompleted); err != nil {
		return err
	}
	if err := s.users.FinishRoundTx(ctx, tx, conn.User1ID, conn.User2ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.notifier.Notify(conn.User1ID, SignalRefresh)
	s.notifier.Notify(conn.User2ID, SignalRefresh)
	s.publishEvent(ctx, conn, model.ConnectionStatusCompleted, "all questions answered")
	return nil
}

// Cancel abandons the actor's pending or active connection. Both users go
// back to AVAILABLE without credit and the partner is told the round was
// cancelled.
func (s *Service) Cancel(ctx context.Context, actor model.User) error {
	eventID, err := eventIDOf(actor)
	if err != nil {
		return fmt.Errorf("%w: user belongs to no event", ErrClient)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	conn, err := s.conns.CurrentForUpdateTx(ctx, tx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return fmt.Errorf("%w: no connection to cancel", ErrClient)
		}
		return err
	}

	if err := s.conns.UpdateStatusTx(ctx, tx, conn.ID, model.ConnectionStatusCancelled); err != nil {
		return err
	}
	if err := s.users.UpdateStatusTx(ctx, tx, []uint64{conn.User1ID, conn.User2ID}, model.UserStatusAvailable); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.notifier.Notify(conn.Partner(actor.ID), SignalCancelled)
	s.notifier.Notify(conn.User1ID, SignalRefresh)
	s.notifier.Notify(conn.User2ID, SignalRefresh)
	s.publishEvent(ctx, conn, model.ConnectionStatusCancelled, "cancelled by participant")
	return nil
}

// Status describes the actor's view of the game: their own state, the QR
// code to present (user1 only), the partner's name and the questions
// assigned to them once the round is active.
type Status struct {
	UserStatus  string                        `json:"user_status"`
	QRCode      *string                       `json:"qr_code"`
	PartnerName *string                       `json:"partner_name"`
	Questions   []repository.AssignedQuestion `json:"connection_questions"`
}

// CurrentStatus assembles the Status response for the actor. Purely a
// read; no locks are taken.
func (s *Service) CurrentStatus(ctx context.Context, actor model.User) (Status, error) {
	// Re-read the user so a status changed by the matchmaking pass since
	// authentication is reflected.
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return Status{}, err
	}
	st := Status{UserStatus: user.Status}

	if user.EventID == nil {
		return st, nil
	}
	conn, err := s.conns.CurrentForUser(ctx, *user.EventID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			return st, nil
		}
		return Status{}, err
	}

	if conn.User1ID == user.ID {
		qr := user.QRCode
		st.QRCode = &qr
	}
	partner, err := s.users.GetByID(ctx, conn.Partner(user.ID))
	if err != nil {
		return Status{}, err
	}
	st.PartnerName = &partner.Name

	if conn.Status == model.ConnectionStatusActive {
		st.Questions, err = s.assignments.ListForUser(ctx, conn.ID, user.ID)
		if err != nil {
			return Status{}, err
		}
	}
	return st, nil
}
