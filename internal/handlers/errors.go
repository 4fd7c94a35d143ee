package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"summerfest/internal/badge"
	"summerfest/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			slog.Error(logMsg, "status", status, "error", err)
		} else {
			slog.Warn(logMsg, "status", status, "error", err)
		}
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondWithServiceError maps a service failure onto a status code
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	status, msg := errorStatus(err)
	if status < http.StatusInternalServerError {
		msg = err.Error()
	}
	respondWithError(w, status, msg, logMsg, err)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnknownChild), errors.Is(err, service.ErrUnknownFamily):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, badge.ErrInvalidBadge),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidPassType),
		errors.Is(err, service.ErrInvalidChild):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrAlreadyCheckedOut),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrDuplicateCheckIn),
		errors.Is(err, service.ErrPaymentAlreadyRecorded):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, service.ErrAccountFrozen):
		return http.StatusLocked, "Account frozen"
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}
