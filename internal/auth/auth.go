// Package auth defines the seam between the HTTP layer and whatever
// identity provider actually authenticates a request. The server owns
// everything downstream of a Player identity; it does not own how that
// identity is established.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrecabarren/trivia-server/internal/domain"
)

// ErrInvalidToken is returned by a Verifier when the credential does not
// resolve to a player.
var ErrInvalidToken = errors.New("auth: invalid or missing token")

// Verifier resolves an inbound HTTP request to a Player identity. A real
// deployment plugs in OAuth, a session cookie, or an SSO gateway here;
// this package only defines the seam and a development stand-in.
type Verifier interface {
	Verify(r *http.Request) (domain.Player, error)
}

type playerContextKey struct{}

// WithPlayer attaches a Player identity to a context, for handlers and the
// websocket session to read back with PlayerFromContext.
func WithPlayer(ctx context.Context, p domain.Player) context.Context {
	return context.WithValue(ctx, playerContextKey{}, p)
}

// PlayerFromContext retrieves the Player identity attached by RequireAuth.
func PlayerFromContext(ctx context.Context) (domain.Player, bool) {
	p, ok := ctx.Value(playerContextKey{}).(domain.Player)
	return p, ok
}

// BearerVerifier is a development Verifier: it trusts the bearer token
// verbatim as "<player-id>:<username>", with no signature or expiry
// checking. It exists so the server runs end-to-end without a real
// identity provider wired in; production deployments replace it with a
// Verifier backed by their actual auth system.
type BearerVerifier struct{}

// Verify implements Verifier.
func (BearerVerifier) Verify(r *http.Request) (domain.Player, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return domain.Player{}, ErrInvalidToken
	}

	id, username, ok := strings.Cut(token, ":")
	if !ok || username == "" {
		return domain.Player{}, ErrInvalidToken
	}

	playerID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.Player{}, ErrInvalidToken
	}

	return domain.Player{ID: domain.PlayerID(playerID), Username: username}, nil
}
