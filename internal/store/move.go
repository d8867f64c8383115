package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// CreateMove records a player's submission for a round. It returns
// ErrDuplicateMove if the player already submitted one, which the
// orchestrator rejects with an error message to the player.
func (s *Store) CreateMove(ctx context.Context, roundID int64, player domain.PlayerID, answer string, autoEvaluation bool, createdAt time.Time) (*domain.Move, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (round_id, player_id, answer, auto_evaluation, created) VALUES (?, ?, ?, ?, ?)`,
		roundID, int64(player), answer, autoEvaluation, createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateMove
		}
		return nil, fmt.Errorf("store: create move for round %d player %d: %w", roundID, player, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: move id: %w", err)
	}
	return &domain.Move{ID: id, RoundID: roundID, Player: player, Answer: answer, AutoEvaluation: autoEvaluation, Created: createdAt}, nil
}

// MovesForRound returns every move of a round ordered by submission time,
// the ordering BuildQualifications's cursor walk depends on.
func (s *Store) MovesForRound(ctx context.Context, roundID int64) ([]domain.Move, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, round_id, player_id, answer, evaluation, auto_evaluation, created, evaluated
		 FROM moves WHERE round_id = ? ORDER BY created ASC`, roundID)
	if err != nil {
		return nil, fmt.Errorf("store: moves for round %d: %w", roundID, err)
	}
	defer rows.Close()
	return scanMoves(rows)
}

// MoveByPlayer finds a single player's move for a round, or ErrNotFound.
func (s *Store) MoveByPlayer(ctx context.Context, roundID int64, player domain.PlayerID) (*domain.Move, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, round_id, player_id, answer, evaluation, auto_evaluation, created, evaluated
		 FROM moves WHERE round_id = ? AND player_id = ?`, roundID, int64(player))

	m := &domain.Move{}
	var playerID int64
	var evaluation sql.NullInt64
	var evaluated sql.NullTime
	if err := row.Scan(&m.ID, &m.RoundID, &playerID, &m.Answer, &evaluation, &m.AutoEvaluation, &m.Created, &evaluated); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: move for round %d player %d: %w", roundID, player, err)
	}
	m.Player = domain.PlayerID(playerID)
	if evaluation.Valid {
		v := int(evaluation.Int64)
		m.Evaluation = &v
	}
	if evaluated.Valid {
		t := evaluated.Time
		m.Evaluated = &t
	}
	return m, nil
}

// SetEvaluation records the grade the nosy gave a move during the
// qualifying phase.
func (s *Store) SetEvaluation(ctx context.Context, moveID int64, evaluation int, evaluatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE moves SET evaluation = ?, evaluated = ? WHERE id = ?`, evaluation, evaluatedAt, moveID)
	if err != nil {
		return fmt.Errorf("store: set evaluation for move %d: %w", moveID, err)
	}
	return nil
}

// SetAutoEvaluation records an evaluation the system assigned on qualify
// timeout rather than one the nosy submitted, flagging auto_evaluation so
// the move is distinguishable from a player-graded one.
func (s *Store) SetAutoEvaluation(ctx context.Context, moveID int64, evaluation int, evaluatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE moves SET evaluation = ?, auto_evaluation = 1, evaluated = ? WHERE id = ?`, evaluation, evaluatedAt, moveID)
	if err != nil {
		return fmt.Errorf("store: set auto evaluation for move %d: %w", moveID, err)
	}
	return nil
}

// MovesForGame returns every move made across a game, ordered by
// submission time.
func (s *Store) MovesForGame(ctx context.Context, gameID int64) ([]domain.Move, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.round_id, m.player_id, m.answer, m.evaluation, m.auto_evaluation, m.created, m.evaluated
		 FROM moves m JOIN rounds r ON r.id = m.round_id WHERE r.game_id = ? ORDER BY m.created ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: moves for game %d: %w", gameID, err)
	}
	defer rows.Close()
	return scanMoves(rows)
}

func scanMoves(rows *sql.Rows) ([]domain.Move, error) {
	var moves []domain.Move
	for rows.Next() {
		m := domain.Move{}
		var playerID int64
		var evaluation sql.NullInt64
		var evaluated sql.NullTime
		if err := rows.Scan(&m.ID, &m.RoundID, &playerID, &m.Answer, &evaluation, &m.AutoEvaluation, &m.Created, &evaluated); err != nil {
			return nil, fmt.Errorf("store: scan move: %w", err)
		}
		m.Player = domain.PlayerID(playerID)
		if evaluation.Valid {
			v := int(evaluation.Int64)
			m.Evaluation = &v
		}
		if evaluated.Valid {
			t := evaluated.Time
			m.Evaluated = &t
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
