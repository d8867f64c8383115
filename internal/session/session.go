// Package session owns a single websocket connection: it verifies the
// connecting player is a roster member of the game, joins the Room Hub,
// decodes inbound action messages, and dispatches them to the Round
// Orchestrator. It holds no authoritative state of its own.
package session

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/orchestrator"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// inbound mirrors the client->server action envelope from the protocol
// table: {action, ...}. Every field beyond "action" is action-specific;
// correctness is kept as raw JSON because clients send it either as a
// string or as a boolean.
type inbound struct {
	Action      string          `json:"action"`
	Rounds      int             `json:"rounds"`
	Text        string          `json:"text"`
	UserID      int64           `json:"userid"`
	Grade       int             `json:"grade"`
	Correctness json.RawMessage `json:"correctness"`
}

// wsClient adapts a websocket connection to the hub.Client interface; Send
// is non-blocking from the hub's perspective, draining into outbox which a
// dedicated writer goroutine flushes to the wire.
type wsClient struct {
	player domain.PlayerID
	outbox chan hub.Envelope
}

func (c *wsClient) Player() domain.PlayerID { return c.player }

func (c *wsClient) Send(env hub.Envelope) bool {
	select {
	case c.outbox <- env:
		return true
	default:
		return false
	}
}

// Handler builds the websocket.Handler for a chi route, closing over the
// dependencies every connection needs to resolve its game and dispatch
// actions.
func Handler(s *store.Store, rooms *hub.Registry, orch *orchestrator.Orchestrator, verifier auth.Verifier) websocket.Handler {
	return func(ws *websocket.Conn) {
		defer ws.Close()
		serve(ws, s, rooms, orch, verifier)
	}
}

func serve(ws *websocket.Conn, s *store.Store, rooms *hub.Registry, orch *orchestrator.Orchestrator, verifier auth.Verifier) {
	req := ws.Request()

	player, err := verifier.Verify(req)
	if err != nil {
		websocket.JSON.Send(ws, map[string]any{"type": "error", "message": "No autorizado"})
		return
	}

	gameIDStr := chi.URLParam(req, "gameID")
	gameID, err := strconv.ParseInt(gameIDStr, 10, 64)
	if err != nil {
		websocket.JSON.Send(ws, map[string]any{"type": "error", "message": "Identificador de partida inválido"})
		return
	}

	ctx := context.Background()
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		websocket.JSON.Send(ws, map[string]any{"type": "error", "message": "La partida no existe"})
		return
	}
	if _, ok := game.PlayerByID(player.ID); !ok {
		websocket.JSON.Send(ws, map[string]any{"type": "error", "message": "No eres parte de esta partida"})
		return
	}

	client := &wsClient{player: player.ID, outbox: make(chan hub.Envelope, 64)}
	room := rooms.GetOrCreate(gameID)
	room.Join(client)
	defer room.Leave(client.Player())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for env := range client.outbox {
			if err := websocket.JSON.Send(ws, flatten(env)); err != nil {
				return
			}
		}
	}()

	for {
		var msg inbound
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			break
		}
		dispatch(ctx, orch, gameID, player, msg)
	}

	close(client.outbox)
	<-writerDone
}

// flatten merges an envelope's payload fields alongside its "type"
// discriminator into one flat JSON object, matching the outbound protocol
// table (e.g. round_question {question}) rather than nesting payload under
// its own key.
func flatten(env hub.Envelope) map[string]any {
	out := map[string]any{"type": env.Type}
	switch fields := env.Payload.(type) {
	case map[string]any:
		for k, v := range fields {
			out[k] = v
		}
	case map[string]string:
		for k, v := range fields {
			out[k] = v
		}
	}
	return out
}

func dispatch(ctx context.Context, orch *orchestrator.Orchestrator, gameID int64, player domain.Player, msg inbound) {
	switch msg.Action {
	case "start":
		_ = orch.Start(ctx, gameID, player, msg.Rounds)
	case "question":
		_ = orch.Question(ctx, gameID, player, msg.Text)
	case "answer":
		_ = orch.Answer(ctx, gameID, player, msg.Text)
	case "qualify":
		_ = orch.Qualify(ctx, gameID, player, domain.PlayerID(msg.UserID), msg.Grade)
	case "assess":
		correct := decodeCorrectness(msg.Correctness)
		_ = orch.Assess(ctx, gameID, player, correct)
	}
}

// decodeCorrectness accepts the "true"/"false" string form the protocol
// table specifies as well as a bare JSON boolean, since both show up across
// hand-written test clients.
func decodeCorrectness(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true"
	}
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}

