package game

import (
	"net/http"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

// DeleteGame removes an open game, creator-only, broadcasting game_deleted
// to its room before the record store row disappears.
//
// @Summary      Delete a game
// @Tags         games
// @Produce      json
// @Param        gameID path int true "game id"
// @Success      200 {object} object
// @Failure      403 {object} object
// @Failure      423 {object} object "game already started"
// @Router       /games/{gameID} [delete]
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
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

	if player.ID != g.CreatorID {
		response.RespondWithError(w, http.StatusForbidden, "You are not allowed to perform this action.", "FORBIDDEN")
		return
	}

	if !g.IsOpen() {
		response.RespondWithStatus(w, http.StatusLocked, map[string]any{
			"message": "El juego ya comenzó, no se puede eliminar.",
			"game_id": gameID,
		})
		return
	}

	h.Rooms.GetOrCreate(gameID).Broadcast(hub.Envelope{
		Type:    "game_deleted",
		Payload: map[string]any{"userid": gameID},
	})
	h.Rooms.Remove(gameID)

	if err := h.Store.DeleteGame(r.Context(), gameID); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo eliminar la partida", "DELETE_FAILED")
		return
	}

	response.RespondWithData(w, map[string]any{"game_id": gameID})
}
