package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/store"
)

func (o *Orchestrator) scheduleQuestionTimer(gs *gameState, gameID, roundID int64) {
	game, err := o.store.GetGame(context.Background(), gameID)
	if err != nil {
		zap.L().Error("orchestrator: load game for question timer", zap.Error(err))
		return
	}
	d := time.Duration(game.QuestionTime)*time.Second + o.cfg.Delta()
	gs.scheduleTimer(d, func(gen int64) { o.onQuestionTimeout(gameID, roundID, gen) })
}

func (o *Orchestrator) scheduleAnswerTimer(gs *gameState, gameID, roundID int64) {
	game, err := o.store.GetGame(context.Background(), gameID)
	if err != nil {
		zap.L().Error("orchestrator: load game for answer timer", zap.Error(err))
		return
	}
	d := time.Duration(game.AnswerTime)*time.Second + o.cfg.Delta()
	gs.scheduleTimer(d, func(gen int64) { o.onAnswerTimeout(gameID, roundID, gen) })
}

func (o *Orchestrator) scheduleQualifyTimer(gs *gameState, gameID, roundID int64) {
	d := o.cfg.Qualify() + o.cfg.Delta()
	gs.scheduleTimer(d, func(gen int64) { o.onQualifyTimeout(gameID, roundID, gen) })
}

func (o *Orchestrator) scheduleAssessTimer(gs *gameState, gameID, roundID int64) {
	d := o.cfg.Assess() + o.cfg.Delta()
	gs.scheduleTimer(d, func(gen int64) { o.onAssessTimeout(gameID, roundID, gen) })
}

// stale reports whether a fired timer's captured generation no longer
// matches gs's current one, meaning the phase it was guarding has already
// legitimately advanced. Must be called with gs.mu held.
func stale(gs *gameState, gen int64) bool {
	return gen != gs.generation
}

func (o *Orchestrator) onQuestionTimeout(gameID, roundID int64, gen int64) {
	ctx := context.Background()
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if stale(gs, gen) {
		return
	}

	round, err := o.store.RoundByID(ctx, roundID)
	if err != nil || round.CurrentPhase() != domain.PhaseQuestion {
		return
	}

	o.broadcast(gameID, EventQuestionTimeEnded, nil)
	if err := o.createFault(ctx, gameID, roundID, round.Nosy, domain.FaultQuestionTimeout); err != nil {
		zap.L().Error("orchestrator: question timeout fault", zap.Error(err))
		return
	}

	active, err := o.activePlayers(ctx, gameID)
	if err != nil {
		zap.L().Error("orchestrator: question timeout active players", zap.Error(err))
		return
	}
	if len(active) < 3 {
		scores, _ := o.gameScores(ctx, gameID)
		o.broadcast(gameID, EventGameCanceled, map[string]any{
			"message":     "El juego se cancela porque quedan menos de 3 jugadores activos",
			"game_scores": scores,
		})
		_ = o.store.EndGame(ctx, gameID, time.Now())
		return
	}

	previous := round.Nosy
	nosy, err := o.selectNosy(ctx, gameID, active, &previous)
	if err != nil {
		zap.L().Error("orchestrator: question timeout nosy selection", zap.Error(err))
		return
	}
	if err := o.restartRound(ctx, gs, gameID, round, nosy.ID); err != nil {
		zap.L().Error("orchestrator: restart round after question timeout", zap.Error(err))
	}
}

func (o *Orchestrator) onAnswerTimeout(gameID, roundID int64, gen int64) {
	ctx := context.Background()
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if stale(gs, gen) {
		return
	}

	round, err := o.store.RoundByID(ctx, roundID)
	if err != nil || round.CurrentPhase() != domain.PhaseAnswering {
		return
	}

	o.broadcast(gameID, EventAnswerTimeEnded, nil)
	now := time.Now()
	if err := o.store.SetAnswerEnded(ctx, roundID, now); err != nil {
		zap.L().Error("orchestrator: set answer ended", zap.Error(err))
		return
	}

	active, err := o.activePlayers(ctx, gameID)
	if err != nil {
		zap.L().Error("orchestrator: answer timeout active players", zap.Error(err))
		return
	}
	missing, err := o.missingAnswerers(ctx, round, active)
	if err != nil {
		zap.L().Error("orchestrator: missing answerers", zap.Error(err))
		return
	}
	for _, p := range missing {
		if err := o.createFault(ctx, gameID, roundID, p.ID, domain.FaultAnswerTimeout); err != nil {
			zap.L().Error("orchestrator: answer timeout fault", zap.Error(err))
		}
	}

	o.enterQualifying(ctx, gs, gameID, roundID)
}

// enterQualifying starts the qualify phase: if there are no non-nosy moves
// to grade, qualify closes immediately with zero Qualifications, matching
// BuildQualifications's "no non-nosy moves, round still ends" rule.
// Otherwise it schedules the qualify timer and waits for qualify() calls.
func (o *Orchestrator) enterQualifying(ctx context.Context, gs *gameState, gameID, roundID int64) {
	round, err := o.store.RoundByID(ctx, roundID)
	if err != nil {
		zap.L().Error("orchestrator: load round entering qualifying", zap.Error(err))
		return
	}
	moves, err := o.nonNosyMoves(ctx, round)
	if err != nil {
		zap.L().Error("orchestrator: load moves entering qualifying", zap.Error(err))
		return
	}
	if len(moves) == 0 {
		o.closeQualifying(ctx, gs, gameID, round)
		return
	}
	o.scheduleQualifyTimer(gs, gameID, roundID)
}

func (o *Orchestrator) onQualifyTimeout(gameID, roundID int64, gen int64) {
	ctx := context.Background()
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if stale(gs, gen) {
		return
	}

	round, err := o.store.RoundByID(ctx, roundID)
	if err != nil || round.CurrentPhase() != domain.PhaseQualify {
		return
	}

	moves, err := o.nonNosyMoves(ctx, round)
	if err != nil {
		zap.L().Error("orchestrator: load moves at qualify timeout", zap.Error(err))
		return
	}
	missing := false
	for _, m := range moves {
		if m.Evaluation == nil {
			missing = true
			break
		}
	}
	if !missing {
		o.closeQualifying(ctx, gs, gameID, round)
		return
	}

	o.broadcast(gameID, EventQualifyTimeout, nil)
	now := time.Now()
	for _, m := range moves {
		if m.Evaluation == nil {
			auto := 2
			if err := o.store.SetAutoEvaluation(ctx, m.ID, auto, now); err != nil {
				zap.L().Error("orchestrator: auto-grade move", zap.Error(err))
			}
		}
	}
	if err := o.createFault(ctx, gameID, roundID, round.Nosy, domain.FaultEvaluationTimeout); err != nil {
		zap.L().Error("orchestrator: qualify timeout fault", zap.Error(err))
	}

	o.closeQualifying(ctx, gs, gameID, round)
}

// closeQualifying sets qualify_ended, builds and persists the round's
// Qualifications, unicasts each qualifier their review packet, and
// schedules the assess timer.
func (o *Orchestrator) closeQualifying(ctx context.Context, gs *gameState, gameID int64, round *domain.Round) {
	now := time.Now()
	if err := o.store.SetQualifyEnded(ctx, round.ID, now); err != nil {
		zap.L().Error("orchestrator: set qualify ended", zap.Error(err))
		return
	}

	active, err := o.activePlayers(ctx, gameID)
	if err != nil {
		zap.L().Error("orchestrator: active players closing qualify", zap.Error(err))
		return
	}
	moves, err := o.nonNosyMoves(ctx, round)
	if err != nil {
		zap.L().Error("orchestrator: load moves closing qualify", zap.Error(err))
		return
	}

	if len(moves) > 0 {
		qualifiers := domain.PlayersWithoutNosy(active, round.Nosy)
		quals := domain.BuildQualifications(moves, qualifiers)
		if err := o.store.CreateQualifications(ctx, round.ID, quals, now); err != nil {
			zap.L().Error("orchestrator: create qualifications", zap.Error(err))
			return
		}

		stored, err := o.store.QualificationsForRound(ctx, round.ID)
		if err != nil {
			zap.L().Error("orchestrator: load qualifications", zap.Error(err))
			return
		}
		var correctAnswer string
		nosyMove, err := o.store.MoveByPlayer(ctx, round.ID, round.Nosy)
		if err != nil && err != store.ErrNotFound {
			zap.L().Error("orchestrator: load nosy move closing qualify", zap.Error(err))
			return
		}
		if nosyMove != nil {
			correctAnswer = nosyMove.Answer
		}
		movesByID := make(map[int64]domain.Move, len(moves))
		for _, m := range moves {
			movesByID[m.ID] = m
		}
		for _, q := range stored {
			m := movesByID[q.MoveID]
			o.unicast(gameID, q.Player, EventRoundReview, map[string]any{
				"correct_answer": correctAnswer,
				"graded_answer":  m.Answer,
				"grade":          deref(m.Evaluation),
			})
		}
	}

	o.scheduleAssessTimer(gs, gameID, round.ID)
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (o *Orchestrator) onAssessTimeout(gameID, roundID int64, gen int64) {
	ctx := context.Background()
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if stale(gs, gen) {
		return
	}

	round, err := o.store.RoundByID(ctx, roundID)
	if err != nil || round.CurrentPhase() != domain.PhaseEvaluate {
		return
	}

	o.broadcast(gameID, EventAssessTimeout, nil)
	now := time.Now()
	if err := o.store.SetRoundEnded(ctx, roundID, now); err != nil {
		zap.L().Error("orchestrator: set round ended", zap.Error(err))
		return
	}

	quals, err := o.store.QualificationsForRound(ctx, roundID)
	if err != nil {
		zap.L().Error("orchestrator: load qualifications at assess timeout", zap.Error(err))
		return
	}
	for _, q := range quals {
		if q.Qualified == nil {
			if err := o.createFault(ctx, gameID, roundID, q.Player, domain.FaultQualifyTimeout); err != nil {
				zap.L().Error("orchestrator: assess timeout fault", zap.Error(err))
			}
		}
	}

	if err := o.finishRound(ctx, gs, gameID, round); err != nil {
		zap.L().Error("orchestrator: finish round", zap.Error(err))
	}
}
