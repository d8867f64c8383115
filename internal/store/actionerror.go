package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// CreateActionError audits a rejected client action. roundID is nil when
// the action was rejected before a round existed to attribute it to.
func (s *Store) CreateActionError(ctx context.Context, player domain.PlayerID, roundID *int64, action, message string, createdAt time.Time) error {
	var rid sql.NullInt64
	if roundID != nil {
		rid = sql.NullInt64{Int64: *roundID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_errors (player_id, round_id, action, message, created) VALUES (?, ?, ?, ?, ?)`,
		int64(player), rid, action, message, createdAt,
	)
	if err != nil {
		return fmt.Errorf("store: create action error for player %d: %w", player, err)
	}
	return nil
}
