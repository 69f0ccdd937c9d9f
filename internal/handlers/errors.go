package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"alphabettutor/internal/audio"
	"alphabettutor/internal/repository"
	"alphabettutor/internal/security"
	"alphabettutor/internal/service"
	"alphabettutor/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			logger.Error(logMsg, zap.Error(err))
		} else {
			logger.Debug(logMsg, zap.Error(err))
		}
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondServiceError maps service sentinels onto HTTP statuses. Validation
// messages are returned to the caller; anything unexpected is logged and hidden.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, logMsg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidConfiguration),
		errors.Is(err, audio.ErrInvalidLetter):
		respondWithError(w, logger, http.StatusBadRequest, err.Error(), logMsg, err)
	case errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, logger, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, logger, http.StatusForbidden, err.Error(), logMsg, err)
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, logger, http.StatusNotFound, ErrSessionNotFound, logMsg, err)
	case errors.Is(err, repository.ErrProfileNotFound):
		respondWithError(w, logger, http.StatusNotFound, ErrProfileNotFound, logMsg, err)
	case errors.Is(err, service.ErrReportsDisabled):
		respondWithError(w, logger, http.StatusServiceUnavailable, err.Error(), logMsg, err)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a request body into v. An empty body is accepted when
// optional is set and leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
