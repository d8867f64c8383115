package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// activePlayers loads the current roster and fault weights and returns the
// still-eligible players, preserving roster order.
func (o *Orchestrator) activePlayers(ctx context.Context, gameID int64) ([]domain.Player, error) {
	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	weights, err := o.store.AllPlayerFaultWeights(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return domain.ActivePlayers(game.Players, weights), nil
}

// gameScores rebuilds each roster member's cumulative score from every
// ended round, per Game.player_score: move evaluations plus nosy scores
// for rounds where they served as nosy. It covers the full roster, not
// just currently-active players, so a player's history survives their
// later disqualification.
func (o *Orchestrator) gameScores(ctx context.Context, gameID int64) (map[domain.PlayerID]int, error) {
	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rounds, err := o.store.EndedRounds(ctx, gameID)
	if err != nil {
		return nil, err
	}

	scores := make(map[domain.PlayerID]int, len(game.Players))
	for _, p := range game.Players {
		scores[p.ID] = 0
	}

	for _, r := range rounds {
		quals, err := o.store.QualificationsForRound(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		moves, err := o.store.MovesForRound(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		nosyScore := domain.NosyScore(quals)
		results := domain.RoundResults(game.Players, r.Nosy, nosyScore, moves)
		for p, v := range results {
			scores[p] += v
		}
	}
	return scores, nil
}

// missingAnswerers returns the active, non-nosy players of round who have
// not yet submitted a Move.
func (o *Orchestrator) missingAnswerers(ctx context.Context, round *domain.Round, active []domain.Player) ([]domain.Player, error) {
	candidates := domain.PlayersWithoutNosy(active, round.Nosy)
	moves, err := o.store.MovesForRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	submitted := make(map[domain.PlayerID]bool, len(moves))
	for _, m := range moves {
		submitted[m.Player] = true
	}

	var missing []domain.Player
	for _, p := range candidates {
		if !submitted[p.ID] {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// nonNosyMoves returns round's Moves excluding the nosy's own, ordered by
// submission time — the input BuildQualifications expects.
func (o *Orchestrator) nonNosyMoves(ctx context.Context, round *domain.Round) ([]domain.Move, error) {
	moves, err := o.store.MovesForRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Move, 0, len(moves))
	for _, m := range moves {
		if m.Player != round.Nosy {
			out = append(out, m)
		}
	}
	return out, nil
}

// createFault records a Fault and broadcasts user_fault, followed by
// user_disqualified when the player's accumulated fault weight is at or
// over the disqualification threshold. It returns only a store error.
func (o *Orchestrator) createFault(ctx context.Context, gameID int64, roundID int64, player domain.PlayerID, category domain.FaultCategory) error {
	if err := o.store.CreateFault(ctx, roundID, player, category); err != nil {
		return fmt.Errorf("orchestrator: create fault: %w", err)
	}

	weight, err := o.store.PlayerFaultWeight(ctx, gameID, player)
	if err != nil {
		return fmt.Errorf("orchestrator: fault weight: %w", err)
	}

	o.broadcast(gameID, EventUserFault, map[string]any{"player_id": player, "category": category})

	if domain.IsDisqualified(weight) {
		o.broadcast(gameID, EventUserDisqualified, map[string]any{"player_id": player})
	}
	return nil
}

// selectNosy picks the next round's nosy per NextNosy, given the round
// just finished (nil for the game's first round).
func (o *Orchestrator) selectNosy(ctx context.Context, gameID int64, active []domain.Player, previousNosy *domain.PlayerID) (domain.Player, error) {
	served, err := o.store.ServedNosies(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	scores, err := o.gameScores(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	return domain.NextNosy(active, served, scores, previousNosy, o.pick), nil
}

// beginRound creates a fresh Round row for gameID under nosy, schedules the
// question timer, and broadcasts round_started. Used for round 1 after the
// start warmup, for every subsequent round, and is distinct from
// restartRound which reuses the existing round row after a question
// timeout (§9: "reassign nosy" rather than a two-step null-then-value
// write).
func (o *Orchestrator) beginRound(ctx context.Context, gs *gameState, gameID int64, number int, nosy domain.PlayerID) error {
	round, err := o.store.CreateRound(ctx, gameID, number, nosy, time.Now())
	if err != nil {
		return err
	}

	o.broadcast(gameID, EventRoundStarted, map[string]any{"round_number": number, "nosy_id": nosy})
	o.scheduleQuestionTimer(gs, gameID, round.ID)
	return nil
}

// restartRound keeps the same Round number but reassigns its nosy and
// resets its started timestamp, used after a question timeout.
func (o *Orchestrator) restartRound(ctx context.Context, gs *gameState, gameID int64, round *domain.Round, nosy domain.PlayerID) error {
	if err := o.store.SetRoundNosy(ctx, round.ID, nosy, time.Now()); err != nil {
		return err
	}
	o.broadcast(gameID, EventRoundStarted, map[string]any{"round_number": round.Number, "nosy_id": nosy})
	o.scheduleQuestionTimer(gs, gameID, round.ID)
	return nil
}

// finishRound closes out an ended round: computes and broadcasts its
// result, then either advances to the next round, ends the game on round
// exhaustion, or cancels the game if too few active players remain.
func (o *Orchestrator) finishRound(ctx context.Context, gs *gameState, gameID int64, round *domain.Round) error {
	quals, err := o.store.QualificationsForRound(ctx, round.ID)
	if err != nil {
		return err
	}
	moves, err := o.store.MovesForRound(ctx, round.ID)
	if err != nil {
		return err
	}
	active, err := o.activePlayers(ctx, gameID)
	if err != nil {
		return err
	}
	nosyScore := domain.NosyScore(quals)
	roundResults := domain.RoundResults(active, round.Nosy, nosyScore, moves)

	scores, err := o.gameScores(ctx, gameID)
	if err != nil {
		return err
	}

	o.broadcast(gameID, EventRoundResult, map[string]any{"round_results": roundResults, "game_scores": scores})

	if len(active) < 3 {
		o.broadcast(gameID, EventGameCanceled, map[string]any{
			"message":     "El juego se cancela porque quedan menos de 3 jugadores activos",
			"game_scores": scores,
		})
		return o.store.EndGame(ctx, gameID, time.Now())
	}

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.RoundsNumber != nil && round.Number >= *game.RoundsNumber {
		o.broadcast(gameID, EventGameResult, map[string]any{"game_scores": scores})
		return o.store.EndGame(ctx, gameID, time.Now())
	}

	previous := round.Nosy
	nosy, err := o.selectNosy(ctx, gameID, active, &previous)
	if err != nil {
		return err
	}
	return o.beginRound(ctx, gs, gameID, round.Number+1, nosy.ID)
}
