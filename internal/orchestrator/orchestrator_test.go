package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// recordingClient collects every Envelope delivered to it, for assertions
// against the broadcast protocol without a real websocket connection.
type recordingClient struct {
	id domain.PlayerID

	mu   sync.Mutex
	envs []hub.Envelope
}

func (c *recordingClient) Player() domain.PlayerID { return c.id }

func (c *recordingClient) Send(env hub.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return true
}

func (c *recordingClient) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.envs))
	for i, e := range c.envs {
		out[i] = e.Type
	}
	return out
}

func testConfig() *config.EnvConfig {
	return &config.EnvConfig{
		MinPlayers:     2,
		MaxPlayers:     16,
		DeltaSeconds:   0,
		StartSeconds:   0,
		QualifySeconds: 0,
		AssessSeconds:  0,
	}
}

// firstOf always hands back the first candidate, making nosy selection
// deterministic in tests.
func firstOf(candidates []domain.Player) domain.Player {
	return candidates[0]
}

func setup(t *testing.T) (*Orchestrator, *store.Store, *hub.Registry) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trivia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	rooms := hub.NewRegistry()
	o := New(s, rooms, testConfig(), firstOf)
	return o, s, rooms
}

func TestStartRejectsNonCreator(t *testing.T) {
	o, s, _ := setup(t)
	ctx := context.Background()

	a := domain.Player{ID: 1, Username: "a"}
	b := domain.Player{ID: 2, Username: "b"}
	g, err := s.CreateGame(ctx, "game", a, 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer(ctx, g.ID, b))

	room := roomFor(t, o, g.ID)
	bc := &recordingClient{id: b.ID}
	room.Join(bc)

	err = o.Start(ctx, g.ID, b, 2)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(bc.types()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{EventError}, bc.types())
}

func TestHappyRoundToRoundResult(t *testing.T) {
	o, s, _ := setup(t)
	// keep the qualify phase open long enough for the nosy to grade.
	o.cfg.QualifySeconds = 5
	ctx := context.Background()

	a := domain.Player{ID: 1, Username: "a"}
	b := domain.Player{ID: 2, Username: "b"}
	g, err := s.CreateGame(ctx, "game", a, 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer(ctx, g.ID, b))

	room := roomFor(t, o, g.ID)
	ac := &recordingClient{id: a.ID}
	bc := &recordingClient{id: b.ID}
	room.Join(ac)
	room.Join(bc)

	require.NoError(t, o.Start(ctx, g.ID, a, 2))

	// warmup is zero in testConfig, but it still runs on its own goroutine.
	require.Eventually(t, func() bool {
		r, err := s.CurrentRound(ctx, g.ID)
		return err == nil && r != nil
	}, time.Second, 10*time.Millisecond)

	round, err := s.CurrentRound(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, round.Nosy, "firstOf picker always returns the first candidate")

	require.NoError(t, o.Question(ctx, g.ID, a, "42?"))
	require.NoError(t, o.Answer(ctx, g.ID, b, "forty-two"))

	// grading opens once the answer timer (answer_time 1s + delta 0) expires.
	require.Eventually(t, func() bool {
		r, err := s.CurrentRound(ctx, g.ID)
		return err == nil && r.CurrentPhase() == domain.PhaseQualify
	}, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, o.Qualify(ctx, g.ID, a, b.ID, 3))

	require.Eventually(t, func() bool {
		for _, typ := range bc.types() {
			if typ == EventRoundReview {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, o.Assess(ctx, g.ID, b, true))

	require.Eventually(t, func() bool {
		for _, typ := range ac.types() {
			if typ == EventRoundResult {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnswerRejectsDuplicate(t *testing.T) {
	o, s, _ := setup(t)
	ctx := context.Background()

	a := domain.Player{ID: 1, Username: "a"}
	b := domain.Player{ID: 2, Username: "b"}
	g, err := s.CreateGame(ctx, "game", a, 1, 1)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer(ctx, g.ID, b))

	room := roomFor(t, o, g.ID)
	bc := &recordingClient{id: b.ID}
	room.Join(bc)

	require.NoError(t, o.Start(ctx, g.ID, a, 2))
	require.Eventually(t, func() bool {
		r, err := s.CurrentRound(ctx, g.ID)
		return err == nil && r != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, o.Question(ctx, g.ID, a, "42?"))
	require.NoError(t, o.Answer(ctx, g.ID, b, "x"))
	require.NoError(t, o.Answer(ctx, g.ID, b, "y"))

	require.Eventually(t, func() bool {
		for _, typ := range bc.types() {
			if typ == EventError {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	move, err := s.MoveByPlayer(ctx, mustCurrentRound(t, s, g.ID).ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", move.Answer)
}

func roomFor(t *testing.T, o *Orchestrator, gameID int64) *hub.Room {
	t.Helper()
	return o.rooms.GetOrCreate(gameID)
}

func mustCurrentRound(t *testing.T, s *store.Store, gameID int64) *domain.Round {
	t.Helper()
	r, err := s.CurrentRound(context.Background(), gameID)
	require.NoError(t, err)
	return r
}
