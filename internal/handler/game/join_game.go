package game

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

// JoinGame adds the authenticated caller to an open game's roster and
// broadcasts player_joined to anyone already connected to its room.
//
// @Summary      Join a game
// @Tags         games
// @Produce      json
// @Param        gameID path int true "game id"
// @Success      200 {object} object
// @Failure      423 {object} object "game already started"
// @Router       /games/{gameID}/join_game [post]
func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	player, ok := auth.PlayerFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	gameID, err := parseGameID(r)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Identificador de partida inválido", "INVALID_GAME_ID")
		return
	}

	g, err := h.Store.GetGame(r.Context(), gameID)
	if err == store.ErrNotFound {
		response.RespondWithError(w, http.StatusNotFound, "La partida no existe", "GAME_NOT_FOUND")
		return
	} else if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo cargar la partida", "LOAD_FAILED")
		return
	}

	if !g.IsOpen() {
		response.RespondWithStatus(w, http.StatusLocked, map[string]any{
			"message": "El juego ya comenzó, no permite inscripción.",
			"game_id": gameID,
		})
		return
	}

	if err := h.Store.AddPlayer(r.Context(), gameID, player); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo unir al juego", "JOIN_FAILED")
		return
	}

	h.Rooms.GetOrCreate(gameID).Broadcast(hub.Envelope{
		Type:    "player_joined",
		Payload: map[string]any{"userid": player.ID, "username": player.Username},
	})

	response.RespondWithData(w, map[string]any{
		"message": "Te has unido correctamente al juego.",
		"game_id": gameID,
	})
}

// UnjoinGame removes the authenticated caller from an open game's roster,
// refusing the game's own creator.
//
// @Summary      Leave a game
// @Tags         games
// @Produce      json
// @Param        gameID path int true "game id"
// @Success      200 {object} object
// @Failure      400 {object} object
// @Failure      423 {object} object "game already started"
// @Router       /games/{gameID}/unjoin_game [post]
func (h *Handler) UnjoinGame(w http.ResponseWriter, r *http.Request) {
	player, ok := auth.PlayerFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	gameID, err := parseGameID(r)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Identificador de partida inválido", "INVALID_GAME_ID")
		return
	}

	g, err := h.Store.GetGame(r.Context(), gameID)
	if err == store.ErrNotFound {
		response.RespondWithError(w, http.StatusNotFound, "La partida no existe", "GAME_NOT_FOUND")
		return
	} else if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo cargar la partida", "LOAD_FAILED")
		return
	}

	if !g.IsOpen() {
		response.RespondWithStatus(w, http.StatusLocked, map[string]any{
			"message": "El juego ya comenzó, no permite desvincularse.",
			"game_id": gameID,
		})
		return
	}

	if player.ID == g.CreatorID {
		response.RespondWithStatus(w, http.StatusBadRequest, map[string]any{
			"message": "El creador del juego no puede desvincularse.",
			"game_id": gameID,
		})
		return
	}

	if _, member := g.PlayerByID(player.ID); !member {
		response.RespondWithStatus(w, http.StatusBadRequest, map[string]any{
			"message": "El usuario que se quiere desvincular no está inscrito en el juego.",
			"game_id": gameID,
		})
		return
	}

	if err := h.Store.RemovePlayer(r.Context(), gameID, player.ID); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo desvincular del juego", "UNJOIN_FAILED")
		return
	}

	h.Rooms.GetOrCreate(gameID).Broadcast(hub.Envelope{
		Type:    "player_unjoined",
		Payload: map[string]any{"userid": player.ID, "username": player.Username},
	})

	response.RespondWithData(w, map[string]any{
		"message": "Te has desvinculado correctamente del juego.",
		"game_id": gameID,
	})
}

func parseGameID(r *http.Request) (int64, error) {
	return parseInt64(chi.URLParam(r, "gameID"))
}
