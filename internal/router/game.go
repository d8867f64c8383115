package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/handler/game"
	"github.com/mrecabarren/trivia-server/internal/handler/profile"
	"github.com/mrecabarren/trivia-server/internal/hub"
	mw "github.com/mrecabarren/trivia-server/internal/middleware"
	"github.com/mrecabarren/trivia-server/internal/orchestrator"
	"github.com/mrecabarren/trivia-server/internal/session"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// GameRouter mounts the REST CRUD surface and the per-game websocket
// endpoint behind the shared auth.Verifier.
func GameRouter(r chi.Router, s *store.Store, rooms *hub.Registry, orch *orchestrator.Orchestrator, cfg *config.EnvConfig, verifier auth.Verifier) {
	h := game.New(s, rooms, cfg)

	r.Route("/games", func(r chi.Router) {
		r.Use(mw.RequireAuth(verifier))

		r.Get("/recent_states", h.RecentStates)
		r.Post("/", h.NewGame)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Post("/state", h.GetGameState)
			r.Post("/join_game", h.JoinGame)
			r.Post("/unjoin_game", h.UnjoinGame)
			r.Delete("/", h.DeleteGame)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(mw.RequireAuth(verifier))
		r.Get("/", profile.Get)
	})

	r.Route("/ws/trivia/{gameID}", func(r chi.Router) {
		r.Handle("/", session.Handler(s, rooms, orch, verifier))
	})
}
