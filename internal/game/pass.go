package game

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/bytebond/bytebond/internal/model"
	"github.com/bytebond/bytebond/internal/queue"
	"github.com/bytebond/bytebond/internal/repository"
)

// RunPass executes one matchmaking tick: for every active event it sweeps
// expired connections and then pairs the available users, all inside one
// transaction per event. A failing event is logged and skipped; the next
// tick retries it naturally. Events are processed sequentially.
func (s *Service) RunPass(ctx context.Context) error {
	active, err := s.events.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active events: %w", err)
	}
	for _, ev := range active {
		if err := s.runEventPass(ctx, ev); err != nil {
			log.Printf("game: pass failed for event %d (%s): %v", ev.ID, ev.Code, err)
		}
	}
	return nil
}

// runEventPass runs sweeper-then-pairing for one event atomically. The
// sweep must come first so users freed by expiry are eligible for pairing
// within the same pass.
func (s *Service) runEventPass(ctx context.Context, ev model.Event) error {
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

	swept, err := s.sweepEventTx(ctx, tx, ev.ID)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	paired, err := s.pairEventTx(ctx, tx, ev.ID)
	if err != nil {
		return fmt.Errorf("pair: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for _, c := range swept {
		s.notifier.Notify(c.User1ID, SignalCancelled)
		s.notifier.Notify(c.User2ID, SignalCancelled)
		s.publishEvent(ctx, c, model.ConnectionStatusCancelled, "deadline expired")
	}
	for _, rec := range paired {
		s.notifier.Notify(rec.User1ID, SignalRefresh)
		s.notifier.Notify(rec.User2ID, SignalRefresh)
	}
	return nil
}

// pairEventTx computes and persists new pairings for one event within the
// given transaction: bulk-insert the pending connections, then flip every
// paired user to CONNECTING. Returns the created records for post-commit
// notification.
func (s *Service) pairEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]repository.ConnectionRecord, error) {
	available, err := s.users.ListAvailableByEventTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if len(available) < 2 {
		return nil, nil
	}
	existing, err := s.conns.ListByEventTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	pairs := buildPairs(available, pairedSet(existing), s.rng)
	if len(pairs) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	records := make([]repository.ConnectionRecord, 0, len(pairs))
	userIDs := make([]uint64, 0, len(pairs)*2)
	for _, p := range pairs {
		records = append(records, repository.ConnectionRecord{
			EventID:   eventID,
			User1ID:   p[0],
			User2ID:   p[1],
			StartTime: now,
			EndTime:   now.Add(s.pairTTL),
		})
		userIDs = append(userIDs, p[0], p[1])
	}
	if err := s.conns.CreateBulkTx(ctx, tx, records); err != nil {
		return nil, err
	}
	if err := s.users.UpdateStatusTx(ctx, tx, userIDs, model.UserStatusConnecting); err != nil {
		return nil, err
	}
	return records, nil
}

// StartEvent activates an event and immediately runs one pass for it so
// attendees are paired without waiting for the next tick.
func (s *Service) StartEvent(ctx context.Context, eventID uint64) error {
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

	if err := s.events.SetActiveTx(ctx, tx, eventID, true); err != nil {
		return err
	}
	paired, err := s.pairEventTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for _, rec := range paired {
		s.notifier.Notify(rec.User1ID, SignalRefresh)
		s.notifier.Notify(rec.User2ID, SignalRefresh)
	}
	return nil
}

// StopEvent deactivates an event, force-cancels all its pending and active
// connections regardless of per-connection state, and frees every user
// they reference.
func (s *Service) StopEvent(ctx context.Context, eventID uint64) error {
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

	if err := s.events.SetActiveTx(ctx, tx, eventID, false); err != nil {
		return err
	}
	open, err := s.conns.ListOpenByEventTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		ids := make([]uint64, 0, len(open))
		users := make(map[uint64]struct{}, len(open)*2)
		for _, c := range open {
			ids = append(ids, c.ID)
			users[c.User1ID] = struct{}{}
			users[c.User2ID] = struct{}{}
		}
		if err := s.conns.CancelManyTx(ctx, tx, ids); err != nil {
			return err
		}
		userIDs := make([]uint64, 0, len(users))
		for id := range users {
			userIDs = append(userIDs, id)
		}
		if err := s.users.UpdateStatusTx(ctx, tx, userIDs, model.UserStatusAvailable); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for _, c := range open {
		s.notifier.Notify(c.User1ID, SignalCancelled)
		s.notifier.Notify(c.User2ID, SignalCancelled)
		s.publishEvent(ctx, c, model.ConnectionStatusCancelled, "event stopped")
	}
	return nil
}

// publishEvent emits a lifecycle event to the broker. Broker trouble never
// affects the committed transition, so errors are only logged.
func (s *Service) publishEvent(ctx context.Context, c model.Connection, status, reason string) {
	ev := queue.ConnectionEvent{
		ConnectionID: c.ID,
		EventID:      c.EventID,
		User1ID:      c.User1ID,
		User2ID:      c.User2ID,
		Status:       status,
		Reason:       reason,
		OccurredAt:   s.now().UTC().Format("2006-01-02 15:04:05"),
	}
	if err := s.publisher.PublishConnectionEvent(ctx, ev); err != nil {
		log.Printf("game: publish connection event failed: %v", err)
	}
}
