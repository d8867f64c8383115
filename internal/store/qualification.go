package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
	"go.uber.org/multierr"
)

// CreateQualifications inserts every Qualification BuildQualifications
// produced for a round in a single transaction. It does not short-circuit
// on the first failing row: every row is attempted, failures are combined
// with multierr, and only the combined error is returned (after rollback),
// so the caller sees exactly which assignments failed rather than just the
// first one.
func (s *Store) CreateQualifications(ctx context.Context, roundID int64, quals []domain.Qualification, createdAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var errs error
		for _, q := range quals {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO qualifications (round_id, player_id, move_id, created) VALUES (?, ?, ?, ?)`,
				roundID, int64(q.Player), q.MoveID, createdAt,
			)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("store: qualification for player %d: %w", q.Player, err))
			}
		}
		return errs
	})
}

// QualificationsForRound returns a round's qualifications.
func (s *Store) QualificationsForRound(ctx context.Context, roundID int64) ([]domain.Qualification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, move_id, is_correct, created, qualified FROM qualifications WHERE round_id = ?`, roundID)
	if err != nil {
		return nil, fmt.Errorf("store: qualifications for round %d: %w", roundID, err)
	}
	defer rows.Close()

	var quals []domain.Qualification
	for rows.Next() {
		q := domain.Qualification{}
		var playerID int64
		var isCorrect sql.NullBool
		var qualified sql.NullTime
		if err := rows.Scan(&q.ID, &playerID, &q.MoveID, &isCorrect, &q.Created, &qualified); err != nil {
			return nil, fmt.Errorf("store: scan qualification: %w", err)
		}
		q.Player = domain.PlayerID(playerID)
		if isCorrect.Valid {
			v := isCorrect.Bool
			q.IsCorrect = &v
		}
		if qualified.Valid {
			t := qualified.Time
			q.Qualified = &t
		}
		quals = append(quals, q)
	}
	return quals, rows.Err()
}

// QualificationByPlayer finds the qualification assigned to a specific
// player for a round, or ErrNotFound.
func (s *Store) QualificationByPlayer(ctx context.Context, roundID int64, player domain.PlayerID) (*domain.Qualification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, player_id, move_id, is_correct, created, qualified FROM qualifications WHERE round_id = ? AND player_id = ?`,
		roundID, int64(player))

	q := &domain.Qualification{}
	var playerID int64
	var isCorrect sql.NullBool
	var qualified sql.NullTime
	if err := row.Scan(&q.ID, &playerID, &q.MoveID, &isCorrect, &q.Created, &qualified); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: qualification for round %d player %d: %w", roundID, player, err)
	}
	q.Player = domain.PlayerID(playerID)
	if isCorrect.Valid {
		v := isCorrect.Bool
		q.IsCorrect = &v
	}
	if qualified.Valid {
		t := qualified.Time
		q.Qualified = &t
	}
	return q, nil
}

// SetAssessment records a qualifier's correct/incorrect verdict.
func (s *Store) SetAssessment(ctx context.Context, qualificationID int64, isCorrect bool, qualifiedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE qualifications SET is_correct = ?, qualified = ? WHERE id = ?`, isCorrect, qualifiedAt, qualificationID)
	if err != nil {
		return fmt.Errorf("store: set assessment for qualification %d: %w", qualificationID, err)
	}
	return nil
}
