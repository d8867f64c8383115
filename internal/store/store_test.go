package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trivia.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGameJoinsCreator(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	creator := domain.Player{ID: 1, Username: "ana"}
	g, err := s.CreateGame(ctx, "friday trivia", creator, 60, 90)
	require.NoError(t, err)
	require.Len(t, g.Players, 1)
	require.Equal(t, creator, g.Players[0])

	loaded, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.True(t, loaded.IsOpen())
	require.Equal(t, 1, loaded.PlayersCount())
}

func TestAddAndRemovePlayer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, "game", domain.Player{ID: 1, Username: "ana"}, 60, 90)
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer(ctx, g.ID, domain.Player{ID: 2, Username: "beto"}))
	loaded, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Players, 2)

	require.NoError(t, s.RemovePlayer(ctx, g.ID, 2))
	loaded, err = s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Players, 1)
}

func TestCreateMoveRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, "game", domain.Player{ID: 1, Username: "ana"}, 60, 90)
	require.NoError(t, err)
	r, err := s.CreateRound(ctx, g.ID, 1, 1, time.Now())
	require.NoError(t, err)

	_, err = s.CreateMove(ctx, r.ID, 2, "first", false, time.Now())
	require.NoError(t, err)

	_, err = s.CreateMove(ctx, r.ID, 2, "second", false, time.Now())
	require.ErrorIs(t, err, ErrDuplicateMove)
}

func TestCreateQualificationsRollsBackOnFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, "game", domain.Player{ID: 1, Username: "ana"}, 60, 90)
	require.NoError(t, err)
	r, err := s.CreateRound(ctx, g.ID, 1, 1, time.Now())
	require.NoError(t, err)

	m, err := s.CreateMove(ctx, r.ID, 2, "answer", false, time.Now())
	require.NoError(t, err)

	good := domain.Qualification{Player: 2, MoveID: m.ID}
	bad := domain.Qualification{Player: 3, MoveID: 999999}

	err = s.CreateQualifications(ctx, r.ID, []domain.Qualification{good, bad}, time.Now())
	require.Error(t, err)

	// the whole transaction rolled back, including the row that would have
	// succeeded on its own.
	quals, err := s.QualificationsForRound(ctx, r.ID)
	require.NoError(t, err)
	require.Empty(t, quals)
}

func TestFaultWeightAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, "game", domain.Player{ID: 1, Username: "ana"}, 60, 90)
	require.NoError(t, err)
	r, err := s.CreateRound(ctx, g.ID, 1, 1, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.CreateFault(ctx, r.ID, 2, domain.FaultQuestionTimeout))
	require.NoError(t, s.CreateFault(ctx, r.ID, 2, domain.FaultFocus))

	weight, err := s.PlayerFaultWeight(ctx, g.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 3, weight)
	require.True(t, domain.IsDisqualified(weight))
}

func TestDeleteGameCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, "game", domain.Player{ID: 1, Username: "ana"}, 60, 90)
	require.NoError(t, err)
	_, err = s.CreateRound(ctx, g.ID, 1, 1, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.DeleteGame(ctx, g.ID))
	_, err = s.GetGame(ctx, g.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
