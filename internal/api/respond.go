package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"multimind.ai/server/internal/core"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type contentResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

func readJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Message: msg})
}

// handleErr writes err as a {success:false} envelope. ServiceErrors keep their status;
// anything else is a 500.
func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	var se *core.ServiceError
	if errors.As(err, &se) {
		status = se.StatusCode
		msg = se.Msg
	}

	logger := hlog.FromRequest(r)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	case status == http.StatusTooManyRequests:
		logger.Warn().Err(err).Msg("Provider rate limited")
	default:
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeFailure(w, status, msg)
}
