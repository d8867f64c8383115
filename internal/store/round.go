package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// CreateRound starts a new round for a game under the given nosy.
func (s *Store) CreateRound(ctx context.Context, gameID int64, number int, nosy domain.PlayerID, startedAt time.Time) (*domain.Round, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (game_id, number, nosy, started) VALUES (?, ?, ?, ?)`,
		gameID, number, int64(nosy), startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create round for game %d: %w", gameID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: round id: %w", err)
	}
	return &domain.Round{ID: id, GameID: gameID, Number: number, Nosy: nosy, Started: startedAt}, nil
}

// CurrentRound returns the most recently started round of a game, or
// ErrNotFound if the game has no rounds yet.
func (s *Store) CurrentRound(ctx context.Context, gameID int64) (*domain.Round, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, number, nosy, question, started, question_arrived, answer_ended, qualify_ended, ended
		 FROM rounds WHERE game_id = ? ORDER BY number DESC LIMIT 1`, gameID)
	return scanRound(row)
}

// RoundByID loads a single round.
func (s *Store) RoundByID(ctx context.Context, id int64) (*domain.Round, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, number, nosy, question, started, question_arrived, answer_ended, qualify_ended, ended
		 FROM rounds WHERE id = ?`, id)
	return scanRound(row)
}

func scanRound(row *sql.Row) (*domain.Round, error) {
	r := &domain.Round{}
	var nosy int64
	var question sql.NullString
	var questionArrived, answerEnded, qualifyEnded, ended sql.NullTime

	if err := row.Scan(&r.ID, &r.GameID, &r.Number, &nosy, &question, &r.Started, &questionArrived, &answerEnded, &qualifyEnded, &ended); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan round: %w", err)
	}
	r.Nosy = domain.PlayerID(nosy)
	r.Question = question.String
	if questionArrived.Valid {
		t := questionArrived.Time
		r.QuestionArrived = &t
	}
	if answerEnded.Valid {
		t := answerEnded.Time
		r.AnswerEnded = &t
	}
	if qualifyEnded.Valid {
		t := qualifyEnded.Time
		r.QualifyEnded = &t
	}
	if ended.Valid {
		t := ended.Time
		r.Ended = &t
	}
	return r, nil
}

// SetRoundNosy reassigns a round's nosy and started timestamp, used by
// restart_round after a question timeout. The round row is reused rather
// than recreated.
func (s *Store) SetRoundNosy(ctx context.Context, roundID int64, nosy domain.PlayerID, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET nosy = ?, started = ? WHERE id = ?`, int64(nosy), startedAt, roundID)
	if err != nil {
		return fmt.Errorf("store: set nosy for round %d: %w", roundID, err)
	}
	return nil
}

// SetQuestion records the nosy's submitted question, advancing the round
// into the answering phase.
func (s *Store) SetQuestion(ctx context.Context, roundID int64, question string, arrivedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET question = ?, question_arrived = ? WHERE id = ?`, question, arrivedAt, roundID)
	if err != nil {
		return fmt.Errorf("store: set question for round %d: %w", roundID, err)
	}
	return nil
}

// SetAnswerEnded closes the answering phase.
func (s *Store) SetAnswerEnded(ctx context.Context, roundID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rounds SET answer_ended = ? WHERE id = ?`, at, roundID)
	if err != nil {
		return fmt.Errorf("store: set answer_ended for round %d: %w", roundID, err)
	}
	return nil
}

// SetQualifyEnded closes the qualifying phase.
func (s *Store) SetQualifyEnded(ctx context.Context, roundID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rounds SET qualify_ended = ? WHERE id = ?`, at, roundID)
	if err != nil {
		return fmt.Errorf("store: set qualify_ended for round %d: %w", roundID, err)
	}
	return nil
}

// SetRoundEnded closes the round.
func (s *Store) SetRoundEnded(ctx context.Context, roundID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rounds SET ended = ? WHERE id = ?`, at, roundID)
	if err != nil {
		return fmt.Errorf("store: set ended for round %d: %w", roundID, err)
	}
	return nil
}

// RoundsCount returns how many rounds a game has started.
func (s *Store) RoundsCount(ctx context.Context, gameID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds WHERE game_id = ?`, gameID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: rounds count for game %d: %w", gameID, err)
	}
	return n, nil
}

// ServedNosies returns the set of players who have been nosy at least once
// in the game, for NextNosy's unserved-candidate pass.
func (s *Store) ServedNosies(ctx context.Context, gameID int64) (map[domain.PlayerID]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT nosy FROM rounds WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: served nosies for game %d: %w", gameID, err)
	}
	defer rows.Close()

	served := map[domain.PlayerID]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		served[domain.PlayerID(id)] = true
	}
	return served, rows.Err()
}

// EndedRounds returns every finished round of a game, ordered by number, for
// rebuilding the game's running score.
func (s *Store) EndedRounds(ctx context.Context, gameID int64) ([]*domain.Round, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, number, nosy, question, started, question_arrived, answer_ended, qualify_ended, ended
		 FROM rounds WHERE game_id = ? AND ended IS NOT NULL ORDER BY number ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: ended rounds for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var rounds []*domain.Round
	for rows.Next() {
		r := &domain.Round{}
		var nosy int64
		var question sql.NullString
		var questionArrived, answerEnded, qualifyEnded, ended sql.NullTime
		if err := rows.Scan(&r.ID, &r.GameID, &r.Number, &nosy, &question, &r.Started, &questionArrived, &answerEnded, &qualifyEnded, &ended); err != nil {
			return nil, fmt.Errorf("store: scan ended round: %w", err)
		}
		r.Nosy = domain.PlayerID(nosy)
		r.Question = question.String
		if questionArrived.Valid {
			t := questionArrived.Time
			r.QuestionArrived = &t
		}
		if answerEnded.Valid {
			t := answerEnded.Time
			r.AnswerEnded = &t
		}
		if qualifyEnded.Valid {
			t := qualifyEnded.Time
			r.QualifyEnded = &t
		}
		if ended.Valid {
			t := ended.Time
			r.Ended = &t
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
