package game

import (
	"context"
	"database/sql"

	"github.com/bytebond/bytebond/internal/model"
)

// sweepEventTx cancels every pending or active connection of the event
// whose deadline has passed and sets each user they reference back to
// AVAILABLE. It returns the cancelled connections so the caller can notify
// participants after commit. Running it twice in a row changes nothing the
// second time: the first run leaves no expired connection behind.
func (s *Service) sweepEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Connection, error) {
	expired, err := s.conns.ExpiredTx(ctx, tx, eventID, s.now())
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(expired))
	users := make(map[uint64]struct{}, len(expired)*2)
	for _, c := range expired {
		ids = append(ids, c.ID)
		users[c.User1ID] = struct{}{}
		users[c.User2ID] = struct{}{}
	}
	if err := s.conns.CancelManyTx(ctx, tx, ids); err != nil {
		return nil, err
	}
	userIDs := make([]uint64, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	if err := s.users.UpdateStatusTx(ctx, tx, userIDs, model.UserStatusAvailable); err != nil {
		return nil, err
	}
	return expired, nil
}
