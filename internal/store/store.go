// Package store is the Record Store: transactional SQLite persistence for
// Game, Round, Move, Qualification, Fault and ActionError rows. Methods
// that write several rows at once (CreateGame, AddPlayer, DeleteGame,
// CreateQualifications) run inside a single *sql.Tx so a partial failure
// rolls back cleanly. Every other method autocommits on its own; an
// orchestrator action that calls several of them in sequence is not
// wrapped in one transaction, and a failure part-way through leaves the
// earlier writes in place.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateMove is returned by CreateMove when the player already has a
// Move recorded for the round. The orchestrator answers it with an error
// message to the player and keeps the first Move.
var ErrDuplicateMove = errors.New("store: player already has a move for this round")

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id       INTEGER PRIMARY KEY,
	username TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	creator_id    INTEGER NOT NULL,
	created       DATETIME NOT NULL,
	question_time INTEGER NOT NULL,
	answer_time   INTEGER NOT NULL,
	rounds_number INTEGER,
	started       DATETIME,
	ended         DATETIME
);

CREATE TABLE IF NOT EXISTS game_players (
	game_id   INTEGER NOT NULL REFERENCES games(id),
	player_id INTEGER NOT NULL REFERENCES players(id),
	joined    DATETIME NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS rounds (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id          INTEGER NOT NULL REFERENCES games(id),
	number           INTEGER NOT NULL,
	nosy             INTEGER NOT NULL,
	question         TEXT,
	started          DATETIME NOT NULL,
	question_arrived DATETIME,
	answer_ended     DATETIME,
	qualify_ended    DATETIME,
	ended            DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	round_id        INTEGER NOT NULL REFERENCES rounds(id),
	player_id       INTEGER NOT NULL,
	answer          TEXT,
	evaluation      INTEGER,
	auto_evaluation BOOLEAN NOT NULL DEFAULT 0,
	created         DATETIME NOT NULL,
	evaluated       DATETIME,
	UNIQUE (round_id, player_id)
);

CREATE TABLE IF NOT EXISTS qualifications (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	round_id   INTEGER NOT NULL REFERENCES rounds(id),
	player_id  INTEGER NOT NULL,
	move_id    INTEGER NOT NULL REFERENCES moves(id),
	is_correct BOOLEAN,
	created    DATETIME NOT NULL,
	qualified  DATETIME
);

CREATE TABLE IF NOT EXISTS faults (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	round_id  INTEGER NOT NULL REFERENCES rounds(id),
	player_id INTEGER NOT NULL,
	category  TEXT NOT NULL,
	value     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS action_errors (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL,
	round_id  INTEGER,
	action    TEXT NOT NULL,
	message   TEXT NOT NULL,
	created   DATETIME NOT NULL
);
`

// Store wraps a SQLite connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the SQLite file at path and applies
// the schema. Callers should Close the returned Store on shutdown.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite write-serializes anyway; avoid SQLITE_BUSY storms.

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing SQLite file without creating it, for
// operator tooling that must never write to a live game's store.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s read-only: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which it re-raises after rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
