package orchestrator

import (
	"context"
	"time"

	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// Start admits a start action only from the creator of an open game with
// at least two players and rounds >= players_count. It freezes the
// roster, schedules the warmup, and advances to round 1 afterward.
func (o *Orchestrator) Start(ctx context.Context, gameID int64, actor domain.Player, rounds int) error {
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "start", err)
	}

	if actor.ID != game.CreatorID {
		return o.reject(gameID, actor.ID, "La partida solo la puede iniciar quien la creó")
	}
	if game.PlayersCount() <= 1 {
		return o.reject(gameID, actor.ID, "Para iniciar la partida debe tener al menos 2 jugadores inscritos")
	}
	if !game.IsOpen() {
		return o.reject(gameID, actor.ID, "La partida ya había sido iniciada")
	}
	if rounds < game.PlayersCount() {
		return o.reject(gameID, actor.ID, "El número de rondas debe ser mayor o igual al número de jugadores")
	}

	now := time.Now()
	if err := o.store.StartGame(ctx, gameID, rounds, now); err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "start", err)
	}

	o.broadcast(gameID, EventGameStarted, map[string]any{"rounds": rounds, "players": game.Players})

	gs.scheduleTimer(o.cfg.Start(), func(gen int64) { o.onStartWarmupElapsed(gameID, gen) })
	return nil
}

func (o *Orchestrator) onStartWarmupElapsed(gameID int64, gen int64) {
	ctx := context.Background()
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if stale(gs, gen) {
		return
	}

	active, err := o.activePlayers(ctx, gameID)
	if err != nil {
		return
	}
	nosy, err := o.selectNosy(ctx, gameID, active, nil)
	if err != nil {
		return
	}
	_ = o.beginRound(ctx, gs, gameID, 1, nosy.ID)
}

// Question admits a question action only from the current round's nosy
// while the round is still in the question phase.
func (o *Orchestrator) Question(ctx context.Context, gameID int64, actor domain.Player, text string) error {
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "question", err)
	}
	if game.IsOpen() {
		return o.reject(gameID, actor.ID, "El juego aun no comienza")
	}

	round, err := o.store.CurrentRound(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "question", err)
	}
	if actor.ID != round.Nosy {
		return o.reject(gameID, actor.ID, "Solo el pregunton puede enviar la pregunta de la ronda")
	}
	if round.CurrentPhase() != domain.PhaseQuestion {
		return o.reject(gameID, actor.ID, "Ya se entregó la pregunta de esta ronda")
	}

	now := time.Now()
	if err := o.store.SetQuestion(ctx, round.ID, text, now); err != nil {
		return o.fail(ctx, gameID, actor.ID, &round.ID, "question", err)
	}

	o.broadcast(gameID, EventRoundQuestion, map[string]any{"question": text})
	o.scheduleAnswerTimer(gs, gameID, round.ID)
	return nil
}

// Answer admits an answer action while the round is in the answering
// phase and the actor has no prior Move. The nosy may also submit their
// own Move, which carries the correct answer for grading purposes.
func (o *Orchestrator) Answer(ctx context.Context, gameID int64, actor domain.Player, text string) error {
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "answer", err)
	}
	if game.IsOpen() {
		return o.reject(gameID, actor.ID, "El juego aun no comienza")
	}

	round, err := o.store.CurrentRound(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "answer", err)
	}
	if round.QuestionArrived == nil {
		return o.reject(gameID, actor.ID, "Aun no está la pregunta de la ronda")
	}
	if round.AnswerEnded != nil {
		return o.reject(gameID, actor.ID, "Ya no se aceptan respuestas en esta ronda")
	}

	_, err = o.store.CreateMove(ctx, round.ID, actor.ID, text, false, time.Now())
	if err != nil {
		if err == store.ErrDuplicateMove {
			return o.reject(gameID, actor.ID, "No se puede cambiar la respuesta previamente enviada")
		}
		return o.fail(ctx, gameID, actor.ID, &round.ID, "answer", err)
	}

	if actor.ID != round.Nosy {
		o.unicast(gameID, round.Nosy, EventRoundAnswer, map[string]any{"answer": text, "userid": actor.ID})
	}
	return nil
}

// Qualify admits a qualify action only from the nosy while the round is in
// the qualifying phase (answering has closed and grading has not), and
// only for a target who submitted a Move.
// Once every non-nosy Move has an evaluation, qualifying closes early.
func (o *Orchestrator) Qualify(ctx context.Context, gameID int64, actor domain.Player, target domain.PlayerID, grade int) error {
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "qualify", err)
	}
	if game.IsOpen() {
		return o.reject(gameID, actor.ID, "El juego aun no comienza")
	}

	round, err := o.store.CurrentRound(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "qualify", err)
	}
	if actor.ID != round.Nosy {
		return o.reject(gameID, actor.ID, "Solo el pregunton puede calificar las respuestas")
	}
	if round.AnswerEnded == nil {
		return o.reject(gameID, actor.ID, "Aun no termina el tiempo de respuestas")
	}
	if round.QualifyEnded != nil {
		return o.reject(gameID, actor.ID, "Ya no se aceptan calificaciones")
	}

	move, err := o.store.MoveByPlayer(ctx, round.ID, target)
	if err != nil {
		if err == store.ErrNotFound {
			return o.reject(gameID, actor.ID, "Este usuario no ha enviado una respuesta para ser evaluada")
		}
		return o.fail(ctx, gameID, actor.ID, &round.ID, "qualify", err)
	}

	if err := o.store.SetEvaluation(ctx, move.ID, grade, time.Now()); err != nil {
		return o.fail(ctx, gameID, actor.ID, &round.ID, "qualify", err)
	}

	moves, err := o.nonNosyMoves(ctx, round)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, &round.ID, "qualify", err)
	}
	for _, m := range moves {
		if m.Evaluation == nil {
			return nil
		}
	}

	gs.cancelTimer()
	o.closeQualifying(ctx, gs, gameID, round)
	return nil
}

// Assess admits an assess action only while the round is in the
// evaluating phase, recording the actor's verdict on their assigned
// Qualification. It never advances the phase; the round always runs the
// full assess timer.
func (o *Orchestrator) Assess(ctx context.Context, gameID int64, actor domain.Player, isCorrect bool) error {
	gs := o.state(gameID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	game, err := o.store.GetGame(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "assess", err)
	}
	if game.IsOpen() {
		return o.reject(gameID, actor.ID, "El juego aun no comienza")
	}

	round, err := o.store.CurrentRound(ctx, gameID)
	if err != nil {
		return o.fail(ctx, gameID, actor.ID, nil, "assess", err)
	}
	if round.QualifyEnded == nil || round.Ended != nil {
		return o.reject(gameID, actor.ID, "Ya no se aceptan evaluaciones en esta ronda")
	}

	qual, err := o.store.QualificationByPlayer(ctx, round.ID, actor.ID)
	if err != nil {
		if err == store.ErrNotFound {
			return o.reject(gameID, actor.ID, "No hay una evaluación activa para este usuario")
		}
		return o.fail(ctx, gameID, actor.ID, &round.ID, "assess", err)
	}

	if err := o.store.SetAssessment(ctx, qual.ID, isCorrect, time.Now()); err != nil {
		return o.fail(ctx, gameID, actor.ID, &round.ID, "assess", err)
	}
	return nil
}
