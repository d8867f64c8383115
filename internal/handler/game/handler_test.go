package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrecabarren/trivia-server/internal/auth"
	"github.com/mrecabarren/trivia-server/internal/config"
	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/hub"
	"github.com/mrecabarren/trivia-server/internal/store"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trivia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := &config.EnvConfig{DefaultQuestionTime: 60, DefaultAnswerTime: 60}
	return New(s, hub.NewRegistry(), cfg)
}

func withPlayer(req *http.Request, p domain.Player) *http.Request {
	return req.WithContext(auth.WithPlayer(req.Context(), p))
}

func TestNewGameRejectsShortName(t *testing.T) {
	h := testHandler(t)
	creator := domain.Player{ID: 1, Username: "ana"}

	body := strings.NewReader(`{"name":"ab"}`)
	req := withPlayer(httptest.NewRequest(http.MethodPost, "/games", body), creator)
	w := httptest.NewRecorder()

	h.NewGame(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewGameCreatesOpenGameWithCreatorJoined(t *testing.T) {
	h := testHandler(t)
	creator := domain.Player{ID: 1, Username: "ana"}

	body := strings.NewReader(`{"name":"trivia night"}`)
	req := withPlayer(httptest.NewRequest(http.MethodPost, "/games", body), creator)
	w := httptest.NewRecorder()

	h.NewGame(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Data domain.Game `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Data.IsOpen())
	assert.Equal(t, creator.ID, out.Data.CreatorID)
	assert.Len(t, out.Data.Players, 1)
}

func TestJoinGameRejectsOnceStarted(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()
	creator := domain.Player{ID: 1, Username: "ana"}
	g, err := h.Store.CreateGame(ctx, "trivia night", creator, 60, 60)
	require.NoError(t, err)
	require.NoError(t, h.Store.StartGame(ctx, g.ID, 2, time.Now()))

	joiner := domain.Player{ID: 2, Username: "bea"}
	req := withPlayer(httptest.NewRequest(http.MethodPost, "/games/"+strconv.FormatInt(g.ID, 10)+"/join_game", nil), joiner)
	req = withURLParam(req, "gameID", strconv.FormatInt(g.ID, 10))
	w := httptest.NewRecorder()

	h.JoinGame(w, req)

	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestUnjoinGameRejectsCreator(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()
	creator := domain.Player{ID: 1, Username: "ana"}
	g, err := h.Store.CreateGame(ctx, "trivia night", creator, 60, 60)
	require.NoError(t, err)

	req := withPlayer(httptest.NewRequest(http.MethodPost, "/games/"+strconv.FormatInt(g.ID, 10)+"/unjoin_game", nil), creator)
	req = withURLParam(req, "gameID", strconv.FormatInt(g.ID, 10))
	w := httptest.NewRecorder()

	h.UnjoinGame(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteGameRejectsNonCreator(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()
	creator := domain.Player{ID: 1, Username: "ana"}
	g, err := h.Store.CreateGame(ctx, "trivia night", creator, 60, 60)
	require.NoError(t, err)

	other := domain.Player{ID: 2, Username: "bea"}
	req := withPlayer(httptest.NewRequest(http.MethodDelete, "/games/"+strconv.FormatInt(g.ID, 10), nil), other)
	req = withURLParam(req, "gameID", strconv.FormatInt(g.ID, 10))
	w := httptest.NewRecorder()

	h.DeleteGame(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
