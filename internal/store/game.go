package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// CreateGame inserts a new open Game with its creator as the first roster
// member, matching GameViewSet.perform_create's creator-joins-automatically
// behavior.
func (s *Store) CreateGame(ctx context.Context, name string, creator domain.Player, questionTime, answerTime int) (*domain.Game, error) {
	var g *domain.Game

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertPlayer(ctx, tx, creator); err != nil {
			return err
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO games (name, creator_id, created, question_time, answer_time) VALUES (?, ?, ?, ?, ?)`,
			name, int64(creator.ID), now, questionTime, answerTime,
		)
		if err != nil {
			return fmt.Errorf("store: insert game: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: game id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, player_id, joined) VALUES (?, ?, ?)`,
			id, int64(creator.ID), now,
		); err != nil {
			return fmt.Errorf("store: add creator to roster: %w", err)
		}

		g = &domain.Game{
			ID:           id,
			Name:         name,
			CreatorID:    creator.ID,
			Created:      now,
			QuestionTime: questionTime,
			AnswerTime:   answerTime,
			Players:      []domain.Player{creator},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func upsertPlayer(ctx context.Context, tx *sql.Tx, p domain.Player) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO players (id, username) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET username = excluded.username`,
		int64(p.ID), p.Username,
	)
	if err != nil {
		return fmt.Errorf("store: upsert player %d: %w", p.ID, err)
	}
	return nil
}

// GetGame loads a Game with its full roster.
func (s *Store) GetGame(ctx context.Context, id int64) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, creator_id, created, question_time, answer_time, rounds_number, started, ended FROM games WHERE id = ?`, id)

	g := &domain.Game{}
	var roundsNumber sql.NullInt64
	var started, ended sql.NullTime
	var creatorID int64

	if err := row.Scan(&g.ID, &g.Name, &creatorID, &g.Created, &g.QuestionTime, &g.AnswerTime, &roundsNumber, &started, &ended); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get game %d: %w", id, err)
	}
	g.CreatorID = domain.PlayerID(creatorID)
	if roundsNumber.Valid {
		n := int(roundsNumber.Int64)
		g.RoundsNumber = &n
	}
	if started.Valid {
		t := started.Time
		g.Started = &t
	}
	if ended.Valid {
		t := ended.Time
		g.Ended = &t
	}

	players, err := s.gameRoster(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Players = players
	return g, nil
}

func (s *Store) gameRoster(ctx context.Context, gameID int64) ([]domain.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.username FROM game_players gp JOIN players p ON p.id = gp.player_id WHERE gp.game_id = ? ORDER BY gp.joined ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: roster for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("store: scan roster row: %w", err)
		}
		players = append(players, domain.Player{ID: domain.PlayerID(id), Username: username})
	}
	return players, rows.Err()
}

// ListOpenGames returns every Game that has not yet started.
func (s *Store) ListOpenGames(ctx context.Context) ([]*domain.Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM games WHERE started IS NULL ORDER BY created DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list open games: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	games := make([]*domain.Game, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// AddPlayer joins a player to an open game's roster.
func (s *Store) AddPlayer(ctx context.Context, gameID int64, player domain.Player) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertPlayer(ctx, tx, player); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, player_id, joined) VALUES (?, ?, ?)`,
			gameID, int64(player.ID), time.Now(),
		)
		if err != nil {
			return fmt.Errorf("store: add player %d to game %d: %w", player.ID, gameID, err)
		}
		return nil
	})
}

// RemovePlayer drops a player from an open game's roster.
func (s *Store) RemovePlayer(ctx context.Context, gameID int64, player domain.PlayerID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_players WHERE game_id = ? AND player_id = ?`, gameID, int64(player))
	if err != nil {
		return fmt.Errorf("store: remove player %d from game %d: %w", player, gameID, err)
	}
	return nil
}

// StartGame freezes the roster by recording Started and the chosen
// RoundsNumber.
func (s *Store) StartGame(ctx context.Context, gameID int64, roundsNumber int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE games SET started = ?, rounds_number = ? WHERE id = ?`, startedAt, roundsNumber, gameID)
	if err != nil {
		return fmt.Errorf("store: start game %d: %w", gameID, err)
	}
	return nil
}

// EndGame records the game's end timestamp (natural exhaustion or cancel).
func (s *Store) EndGame(ctx context.Context, gameID int64, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE games SET ended = ? WHERE id = ?`, endedAt, gameID)
	if err != nil {
		return fmt.Errorf("store: end game %d: %w", gameID, err)
	}
	return nil
}

// DeleteGame removes a game and every row that references it. Only valid
// while the game is open; the caller enforces that rule.
func (s *Store) DeleteGame(ctx context.Context, gameID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM faults WHERE round_id IN (SELECT id FROM rounds WHERE game_id = ?)`,
			`DELETE FROM qualifications WHERE round_id IN (SELECT id FROM rounds WHERE game_id = ?)`,
			`DELETE FROM moves WHERE round_id IN (SELECT id FROM rounds WHERE game_id = ?)`,
			`DELETE FROM action_errors WHERE round_id IN (SELECT id FROM rounds WHERE game_id = ?)`,
			`DELETE FROM rounds WHERE game_id = ?`,
			`DELETE FROM game_players WHERE game_id = ?`,
			`DELETE FROM games WHERE id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, gameID); err != nil {
				return fmt.Errorf("store: delete game %d: %w", gameID, err)
			}
		}
		return nil
	})
}
