// Package response centralizes the JSON envelope every HTTP handler
// responds with, so success and error bodies stay consistent across
// handler/game.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// RespondWithData writes data as a 200 JSON response.
func RespondWithData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: data})
}

// RespondWithStatus writes data in the same data envelope with the given
// status code, for responses other than a plain 200 that still carry a
// data body (the game handlers' 400 and 423 refusals).
func RespondWithStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Data: data})
}

// RespondWithError writes a structured error body with the given status,
// message and machine-readable code.
func RespondWithError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Message: message, Code: code}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("response: failed to encode body", zap.Error(err))
	}
}
