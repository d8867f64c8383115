// Package game implements the REST CRUD surface for creating, joining,
// leaving, inspecting and deleting games — everything outside the
// websocket-driven round orchestration.
package game

import (
	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
)

// Handler holds the dependencies every CRUD endpoint needs: the record
// store for persistence and the Room Hub to broadcast roster changes to
// any already-connected sessions.
type Handler struct {
	Store *store.Store
	Rooms *hub.Registry
	Cfg   *config.EnvConfig
}

// New builds a Handler.
func New(s *store.Store, rooms *hub.Registry, cfg *config.EnvConfig) *Handler {
	return &Handler{Store: s, Rooms: rooms, Cfg: cfg}
}
