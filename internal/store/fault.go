package store

import (
	"context"
	"fmt"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// CreateFault records a disciplinary mark against a player for a round.
func (s *Store) CreateFault(ctx context.Context, roundID int64, player domain.PlayerID, category domain.FaultCategory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faults (round_id, player_id, category, value) VALUES (?, ?, ?, ?)`,
		roundID, int64(player), string(category), domain.FaultValue(category),
	)
	if err != nil {
		return fmt.Errorf("store: create fault for round %d player %d: %w", roundID, player, err)
	}
	return nil
}

// PlayerFaultWeight sums a single player's accumulated fault weight across a
// game, the value IsDisqualified tests against.
func (s *Store) PlayerFaultWeight(ctx context.Context, gameID int64, player domain.PlayerID) (int, error) {
	var weight int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(f.value), 0) FROM faults f JOIN rounds r ON r.id = f.round_id
		 WHERE r.game_id = ? AND f.player_id = ?`, gameID, int64(player)).Scan(&weight)
	if err != nil {
		return 0, fmt.Errorf("store: fault weight for game %d player %d: %w", gameID, player, err)
	}
	return weight, nil
}

// AllPlayerFaultWeights returns every roster member's accumulated fault
// weight for a game, for building ActivePlayers without one query per
// player.
func (s *Store) AllPlayerFaultWeights(ctx context.Context, gameID int64) (map[domain.PlayerID]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.player_id, SUM(f.value) FROM faults f JOIN rounds r ON r.id = f.round_id
		 WHERE r.game_id = ? GROUP BY f.player_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: fault weights for game %d: %w", gameID, err)
	}
	defer rows.Close()

	weights := map[domain.PlayerID]int{}
	for rows.Next() {
		var id int64
		var weight int
		if err := rows.Scan(&id, &weight); err != nil {
			return nil, err
		}
		weights[domain.PlayerID(id)] = weight
	}
	return weights, rows.Err()
}
