package domain

import "sort"

// IsDisqualified reports whether an accumulated fault weight disqualifies a
// player for the remainder of the game.
func IsDisqualified(faultWeight int) bool {
	return faultWeight >= DisqualifyThreshold
}

// ActivePlayers filters a roster down to players whose fault weight keeps
// them eligible, preserving roster order.
func ActivePlayers(roster []Player, faultWeight map[PlayerID]int) []Player {
	active := make([]Player, 0, len(roster))
	for _, p := range roster {
		if !IsDisqualified(faultWeight[p.ID]) {
			active = append(active, p)
		}
	}
	return active
}

// PlayersWithoutNosy filters active players down to everyone but the nosy,
// preserving order. Mirrors Round.players_without_nosy.
func PlayersWithoutNosy(active []Player, nosy PlayerID) []Player {
	out := make([]Player, 0, len(active))
	for _, p := range active {
		if p.ID != nosy {
			out = append(out, p)
		}
	}
	return out
}

// NextNosy picks the nosy for a new round. served is the set of players who
// have already been nosy at least once this game; scores is each active
// player's current game score; previousNosy is the nosy of the round just
// finished (nil if there is none yet, e.g. the first round). pick selects
// uniformly among the still-unserved candidates — callers pass a
// math/rand-backed picker in production and a deterministic one in tests.
//
// Mirrors Game.next_nosy in the original model: first pass without repeats,
// then fall back to the lowest-scoring active player, tie-broken by player
// id, skipping a repeat of previousNosy when another candidate exists.
func NextNosy(active []Player, served map[PlayerID]bool, scores map[PlayerID]int, previousNosy *PlayerID, pick func([]Player) Player) Player {
	available := make([]Player, 0, len(active))
	for _, p := range active {
		if !served[p.ID] {
			available = append(available, p)
		}
	}
	if len(available) > 0 {
		return pick(available)
	}

	ranked := make([]Player, len(active))
	copy(ranked, active)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].ID], scores[ranked[j].ID]
		if si != sj {
			return si < sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) < 2 || previousNosy == nil || ranked[0].ID != *previousNosy {
		return ranked[0]
	}
	return ranked[1]
}

// BuildQualifications assigns each player in players (the active, non-nosy
// players for a round, in roster order) a Qualification pointing at another
// player's Move. moves must be the round's non-nosy Moves ordered by
// Created ascending. It is a faithful port of Round.create_qualifications's
// cursor-walk: whenever the move under the cursor belongs to the player
// being assigned, it is swapped with its neighbor first, guaranteeing a
// derangement whenever len(moves) >= 2. With exactly one Move, that sole
// player reviews their own answer. With zero Moves, it returns nil.
func BuildQualifications(moves []Move, players []Player) []Qualification {
	if len(moves) == 0 {
		return nil
	}

	cursor := make([]Move, len(moves))
	copy(cursor, moves)
	n := len(cursor)

	quals := make([]Qualification, 0, len(players))
	k := 0
	for _, p := range players {
		if cursor[k].Player == p.ID {
			next := (k + 1) % n
			cursor[k], cursor[next] = cursor[next], cursor[k]
		}
		quals = append(quals, Qualification{Player: p.ID, MoveID: cursor[k].ID})
		k = (k + 1) % n
	}
	return quals
}

// NosyScore computes a round's nosy score from its Qualifications. Zero
// Qualifications (no non-nosy player submitted a Move) scores +3, matching
// Round.nosy_score's `else: return 3` branch.
func NosyScore(qualifications []Qualification) int {
	n := len(qualifications)
	if n == 0 {
		return 3
	}

	negative := 0
	for _, q := range qualifications {
		if q.IsCorrect != nil && !*q.IsCorrect {
			negative++
		}
	}

	ratio := float64(n-negative) / float64(n)
	switch {
	case ratio >= 0.8:
		return 3
	case ratio >= 0.5:
		return 1
	default:
		return -2
	}
}

// RoundResults builds the per-player result map for a finished round: the
// nosy gets nosyScore, everyone else defaults to 0, overridden by their own
// Move's evaluation when they submitted and were graded. Mirrors
// Round.get_results.
func RoundResults(activePlayers []Player, nosy PlayerID, nosyScore int, moves []Move) map[PlayerID]int {
	results := make(map[PlayerID]int, len(activePlayers))
	for _, p := range activePlayers {
		if p.ID == nosy {
			results[p.ID] = nosyScore
		} else {
			results[p.ID] = 0
		}
	}
	for _, m := range moves {
		if m.Evaluation != nil {
			results[m.Player] = *m.Evaluation
		}
	}
	return results
}

// GameScore sums a player's move evaluations and nosy scores across the
// whole game. Mirrors Game.player_score.
func GameScore(evaluationSum, nosyScoreSum int) int {
	return evaluationSum + nosyScoreSum
}
