package game

import (
	"encoding/json"
	"net/http"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

type newGameRequest struct {
	Name         string `json:"name"`
	QuestionTime int    `json:"question_time"`
	AnswerTime   int    `json:"answer_time"`
}

// NewGame creates an open game with the authenticated caller as its creator
// and sole initial roster member.
//
// @Summary      Create a game
// @Tags         games
// @Accept       json
// @Produce      json
// @Param        body body newGameRequest true "game configuration"
// @Success      200 {object} domain.Game
// @Failure      400 {object} object
// @Router       /games [post]
func (h *Handler) NewGame(w http.ResponseWriter, r *http.Request) {
	player, ok := auth.PlayerFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req newGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Cuerpo de la petición inválido", "INVALID_BODY")
		return
	}
	if len(req.Name) < 3 {
		response.RespondWithError(w, http.StatusBadRequest, "El nombre de un juego debe tener al menos 3 caracteres", "INVALID_NAME")
		return
	}

	if req.QuestionTime == 0 {
		req.QuestionTime = h.Cfg.DefaultQuestionTime
	}
	if req.AnswerTime == 0 {
		req.AnswerTime = h.Cfg.DefaultAnswerTime
	}
	if !config.ValidRoundTime(req.QuestionTime) {
		response.RespondWithError(w, http.StatusBadRequest, "El valor para QUESTION TIME no es uno de los permitidos", "INVALID_QUESTION_TIME")
		return
	}
	if !config.ValidRoundTime(req.AnswerTime) {
		response.RespondWithError(w, http.StatusBadRequest, "El valor para ANSWER TIME no es uno de los permitidos", "INVALID_ANSWER_TIME")
		return
	}

	g, err := h.Store.CreateGame(r.Context(), req.Name, player, req.QuestionTime, req.AnswerTime)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "No se pudo crear el juego", "CREATE_FAILED")
		return
	}

	response.RespondWithData(w, g)
}
