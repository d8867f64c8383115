// Package profile exposes the authenticated caller's own identity.
package profile

import (
	"net/http"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

// Get returns the authenticated player's id and username.
//
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Success      200 {object} domain.Player
// @Router       /profile [get]
func Get(w http.ResponseWriter, r *http.Request) {
	player, ok := auth.PlayerFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}
	response.RespondWithData(w, player)
}
