package middleware

import (
	"net/http"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/pkg/response"
)

// RequireAuth resolves the request's identity through verifier and attaches
// it to the request context, rejecting with 401 on failure. The websocket
// route is not mounted behind this middleware; session.Handler calls the
// same Verifier itself on the upgrade request.
func RequireAuth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			player, err := verifier.Verify(r)
			if err != nil {
				response.RespondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
				return
			}

			ctx := auth.WithPlayer(r.Context(), player)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
