package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivePlayersExcludesDisqualified(t *testing.T) {
	roster := []Player{{ID: 1}, {ID: 2}, {ID: 3}}
	faults := map[PlayerID]int{2: 3, 3: 1}

	active := ActivePlayers(roster, faults)

	assert.Equal(t, []Player{{ID: 1}, {ID: 3}}, active)
}

func TestIsDisqualifiedThreshold(t *testing.T) {
	assert.False(t, IsDisqualified(2))
	assert.True(t, IsDisqualified(3))
	assert.True(t, IsDisqualified(4))
}

func TestNextNosyPrefersUnservedCandidate(t *testing.T) {
	active := []Player{{ID: 1}, {ID: 2}, {ID: 3}}
	served := map[PlayerID]bool{1: true}
	scores := map[PlayerID]int{1: 10, 2: 0, 3: 0}

	var picked []Player
	pick := func(candidates []Player) Player {
		picked = candidates
		return candidates[0]
	}

	chosen := NextNosy(active, served, scores, nil, pick)

	assert.ElementsMatch(t, []Player{{ID: 2}, {ID: 3}}, picked)
	assert.Equal(t, Player{ID: 2}, chosen)
}

func TestNextNosyFallsBackToLowestScoreExcludingPrevious(t *testing.T) {
	active := []Player{{ID: 1}, {ID: 2}, {ID: 3}}
	served := map[PlayerID]bool{1: true, 2: true, 3: true}
	scores := map[PlayerID]int{1: 5, 2: 5, 3: 9}
	previous := PlayerID(1)

	pick := func(_ []Player) Player { t.Fatal("pick should not be called once everyone has served"); return Player{} }

	chosen := NextNosy(active, served, scores, &previous, pick)

	// 1 and 2 tie at score 5; id tie-break picks 1, but 1 is the previous
	// nosy so the fallback must skip to the next-ranked candidate, id 2.
	assert.Equal(t, Player{ID: 2}, chosen)
}

func TestNextNosyAllowsRepeatWhenForced(t *testing.T) {
	// the previous nosy is the only active player left, so no other
	// candidate exists and the repeat is forced.
	active := []Player{{ID: 1}}
	served := map[PlayerID]bool{1: true}
	scores := map[PlayerID]int{1: 1}
	previous := PlayerID(1)

	pick := func(_ []Player) Player { return Player{} }

	chosen := NextNosy(active, served, scores, &previous, pick)

	assert.Equal(t, Player{ID: 1}, chosen)
}

func TestBuildQualificationsDerangesWithTwoOrMoreMoves(t *testing.T) {
	players := []Player{{ID: 1}, {ID: 2}, {ID: 3}}
	moves := []Move{
		{ID: 100, Player: 1},
		{ID: 200, Player: 2},
		{ID: 300, Player: 3},
	}

	quals := BuildQualifications(moves, players)

	require.Len(t, quals, 3)
	byPlayer := map[PlayerID]int64{}
	for _, q := range quals {
		byPlayer[q.Player] = q.MoveID
	}
	moveOwner := map[int64]PlayerID{100: 1, 200: 2, 300: 3}
	for player, moveID := range byPlayer {
		assert.NotEqual(t, player, moveOwner[moveID], "player should never review their own move")
	}
}

func TestBuildQualificationsDegenerateSingleMove(t *testing.T) {
	players := []Player{{ID: 1}}
	moves := []Move{{ID: 100, Player: 1}}

	quals := BuildQualifications(moves, players)

	require.Len(t, quals, 1)
	assert.Equal(t, PlayerID(1), quals[0].Player)
	assert.Equal(t, int64(100), quals[0].MoveID)
}

func TestBuildQualificationsNoMoves(t *testing.T) {
	assert.Nil(t, BuildQualifications(nil, []Player{{ID: 1}}))
}

func TestNosyScoreBands(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	assert.Equal(t, 3, NosyScore(nil), "zero qualifications scores +3")

	allCorrect := []Qualification{{IsCorrect: boolPtr(true)}, {IsCorrect: boolPtr(true)}}
	assert.Equal(t, 3, NosyScore(allCorrect))

	halfCorrect := []Qualification{{IsCorrect: boolPtr(true)}, {IsCorrect: boolPtr(false)}}
	assert.Equal(t, 1, NosyScore(halfCorrect))

	mostlyWrong := []Qualification{
		{IsCorrect: boolPtr(false)}, {IsCorrect: boolPtr(false)}, {IsCorrect: boolPtr(true)},
	}
	assert.Equal(t, -2, NosyScore(mostlyWrong))
}

func TestRoundResultsDefaultsAndOverrides(t *testing.T) {
	active := []Player{{ID: 1}, {ID: 2}, {ID: 3}}
	eval := 2
	moves := []Move{{Player: 2, Evaluation: &eval}}

	results := RoundResults(active, 1, 3, moves)

	assert.Equal(t, map[PlayerID]int{1: 3, 2: 2, 3: 0}, results)
}
