// Package hub is the Room Hub: one goroutine per open game that owns the
// set of connected clients and is the only thing allowed to touch that set,
// generalizing the teacher's GameLifeCycle select-loop (register/unregister/
// broadcast over channels instead of a shared map behind a mutex).
package hub

import (
	"go.uber.org/zap"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// Envelope is an outbound websocket message. Type is the discriminator the
// client switches on; Payload is marshaled as the "data" field.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"data,omitempty"`
}

// Client is anything a Room can deliver an Envelope to. *session.Session
// implements this; the interface exists so hub does not import session
// (which imports hub to join/leave).
type Client interface {
	Player() domain.PlayerID
	Send(Envelope) bool // false if the client's outbound buffer was full and it was dropped
}

type unicast struct {
	player domain.PlayerID
	env    Envelope
}

// Room is the single goroutine that owns one game's connected clients. All
// access to the client set goes through its channels; nothing outside the
// run loop ever reads or writes the clients map.
type Room struct {
	GameID int64

	register   chan Client
	unregister chan domain.PlayerID
	broadcast  chan Envelope
	unicasts   chan unicast
	closed     chan struct{}
	stop       chan struct{}
}

// NewRoom allocates a Room and starts its run loop. Call Close when the
// game ends to release the goroutine.
func NewRoom(gameID int64) *Room {
	r := &Room{
		GameID:     gameID,
		register:   make(chan Client),
		unregister: make(chan domain.PlayerID),
		broadcast:  make(chan Envelope, 16),
		unicasts:   make(chan unicast, 16),
		closed:     make(chan struct{}),
		stop:       make(chan struct{}),
	}
	go r.run()
	return r
}

// Join registers a client to receive broadcasts and unicasts. Blocks until
// accepted by the run loop or the Room is closed.
func (r *Room) Join(c Client) {
	select {
	case r.register <- c:
	case <-r.closed:
	}
}

// Leave unregisters a player. Safe to call even if they were never joined.
func (r *Room) Leave(player domain.PlayerID) {
	select {
	case r.unregister <- player:
	case <-r.closed:
	}
}

// Broadcast delivers an Envelope to every currently joined client.
func (r *Room) Broadcast(env Envelope) {
	select {
	case r.broadcast <- env:
	case <-r.closed:
	}
}

// Unicast delivers an Envelope to a single joined player. A no-op if the
// player is not currently connected.
func (r *Room) Unicast(player domain.PlayerID, env Envelope) {
	select {
	case r.unicasts <- unicast{player: player, env: env}:
	case <-r.closed:
	}
}

// Close stops the run loop and releases its resources. Idempotent.
func (r *Room) Close() {
	select {
	case <-r.closed:
		return
	default:
	}
	close(r.stop)
	<-r.closed
}

func (r *Room) run() {
	defer close(r.closed)
	clients := make(map[domain.PlayerID]Client)

	for {
		select {
		case <-r.stop:
			return

		case c := <-r.register:
			clients[c.Player()] = c

		case player := <-r.unregister:
			delete(clients, player)

		case env := <-r.broadcast:
			for player, c := range clients {
				if !c.Send(env) {
					zap.L().Warn("hub: dropping unresponsive client",
						zap.Int64("player", int64(player)), zap.Int64("game_id", r.GameID))
					delete(clients, player)
				}
			}

		case u := <-r.unicasts:
			if c, ok := clients[u.player]; ok {
				if !c.Send(u.env) {
					delete(clients, u.player)
				}
			}
		}
	}
}
