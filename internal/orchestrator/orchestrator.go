// Package orchestrator is the Round Orchestrator and Timer Scheduler: the
// per-game state machine that drives a game through its rounds, schedules
// the phase timers, mutates the Record Store, and emits the broadcast
// protocol over the Room Hub. It is the only component permitted to
// mutate Round, Move, Qualification and Fault records.
package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// Picker selects one candidate uniformly at random, the seam NextNosy uses
// so tests can inject a deterministic choice instead of math/rand.
type Picker func([]domain.Player) domain.Player

func randomPick(candidates []domain.Player) domain.Player {
	return candidates[rand.Intn(len(candidates))]
}

// gameState is the per-game lock plus the single active timer handle. Every
// orchestrator action and every timer expiry acquires mu before touching
// round state, matching the single-logical-lock-per-game serialization
// model: operations on one game are totally ordered, across games they
// run independently.
type gameState struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation int64 // bumped on every legitimate phase transition; stale timers compare against the value they captured at scheduling time
}

// Orchestrator holds one gameState per live game plus the shared Record
// Store and Room Hub every action and timer reads and writes through.
type Orchestrator struct {
	store *store.Store
	rooms *hub.Registry
	cfg   *config.EnvConfig
	pick  Picker

	statesMu sync.Mutex
	states   map[int64]*gameState
}

// New builds an Orchestrator. pick may be nil, in which case a
// math/rand-backed picker is used; tests pass a deterministic one.
func New(s *store.Store, rooms *hub.Registry, cfg *config.EnvConfig, pick Picker) *Orchestrator {
	if pick == nil {
		pick = randomPick
	}
	return &Orchestrator{
		store:  s,
		rooms:  rooms,
		cfg:    cfg,
		pick:   pick,
		states: make(map[int64]*gameState),
	}
}

func (o *Orchestrator) state(gameID int64) *gameState {
	o.statesMu.Lock()
	defer o.statesMu.Unlock()
	gs, ok := o.states[gameID]
	if !ok {
		gs = &gameState{}
		o.states[gameID] = gs
	}
	return gs
}

// Forget drops a game's scheduling state once it has ended or been
// deleted, so a long-running server does not accumulate one gameState per
// historical game forever.
func (o *Orchestrator) Forget(gameID int64) {
	o.statesMu.Lock()
	gs, ok := o.states[gameID]
	delete(o.states, gameID)
	o.statesMu.Unlock()

	if ok {
		gs.mu.Lock()
		if gs.timer != nil {
			gs.timer.Stop()
		}
		gs.mu.Unlock()
	}
}

// cancelTimer must be called with gs.mu held. It stops the active timer (if
// any) and invalidates it by bumping the generation counter, so a timer
// that already fired and is waiting on the lock becomes a no-op.
func (gs *gameState) cancelTimer() {
	gs.generation++
	if gs.timer != nil {
		gs.timer.Stop()
		gs.timer = nil
	}
}

// scheduleTimer must be called with gs.mu held. fn is invoked on its own
// goroutine after d with the generation that was current at scheduling
// time; fn must re-acquire gs.mu and compare generations before acting.
func (gs *gameState) scheduleTimer(d time.Duration, fn func(generation int64)) {
	gs.cancelTimer()
	gen := gs.generation
	gs.timer = time.AfterFunc(d, func() { fn(gen) })
}

func (o *Orchestrator) room(gameID int64) *hub.Room {
	return o.rooms.GetOrCreate(gameID)
}

func (o *Orchestrator) broadcast(gameID int64, eventType string, payload any) {
	o.room(gameID).Broadcast(hub.Envelope{Type: eventType, Payload: payload})
}

func (o *Orchestrator) unicast(gameID int64, player domain.PlayerID, eventType string, payload any) {
	o.room(gameID).Unicast(player, hub.Envelope{Type: eventType, Payload: payload})
}

// reject unicasts a Spanish-language admission error to the offending
// player, preserving the original system's protocol strings verbatim.
func (o *Orchestrator) reject(gameID int64, actor domain.PlayerID, message string) error {
	o.unicast(gameID, actor, EventError, map[string]string{"message": message})
	return nil
}

// fail records an integrity error (a store failure, not a bad client
// action) as an ActionError and unicasts a generic error to the actor.
func (o *Orchestrator) fail(ctx context.Context, gameID int64, actor domain.PlayerID, roundID *int64, action string, err error) error {
	zap.L().Error("orchestrator: integrity error", zap.Int64("game_id", gameID), zap.String("action", action), zap.Error(err))
	if auditErr := o.store.CreateActionError(ctx, actor, roundID, action, err.Error(), time.Now()); auditErr != nil {
		zap.L().Error("orchestrator: failed to audit action error", zap.Error(auditErr))
	}
	o.unicast(gameID, actor, EventError, map[string]string{"message": "Ocurrió un error interno, intenta nuevamente"})
	return err
}
