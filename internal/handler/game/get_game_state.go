package game

import (
	"net/http"
	"strconv"

	"github.com/mrecabarren/trivia-server/internal/store"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// GetGameState returns a game's current roster, configuration and lifecycle
// timestamps.
//
// @Summary      Get game state
// @Tags         games
// @Produce      json
// @Param        gameID path int true "game id"
// @Success      200 {object} domain.Game
// @Failure      404 {object} object
// @Router       /games/{gameID}/state [post]
func (h *Handler) GetGameState(w http.ResponseWriter, r *http.Request) {
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

	response.RespondWithData(w, g)
}

// RecentStates lists every currently open game, for a lobby view.
//
// @Summary      List open games
// @Tags         games
// @Produce      json
// @Success      200 {array} domain.Game
// @Router       /games/recent_states [get]
func (h *Handler) RecentStates(w http.ResponseWriter, r *http.Request) {
	games, err := h.Store.ListOpenGames(r.Context())
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudieron listar las partidas", "LIST_FAILED")
		return
	}
	response.RespondWithData(w, games)
}
