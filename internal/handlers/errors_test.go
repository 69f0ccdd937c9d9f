package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"alphabettutor/internal/repository"
	"alphabettutor/internal/security"
	"alphabettutor/internal/service"
	"alphabettutor/internal/session"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), 418, "Teapot", "", nil)

	assert.Equal(t, 418, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Teapot"}`, recorder.Body.String())
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), 500, "Internal server error", "", errors.New("boom"))

	entries := logs.FilterMessage("Internal server error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestRespondServiceErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: age", session.ErrInvalidConfiguration), http.StatusBadRequest},
		{security.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", repository.ErrProfileNotFound), http.StatusNotFound},
		{service.ErrReportsDisabled, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondServiceError(recorder, zap.NewNop(), "request failed", tt.err)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestRespondServiceErrorHidesInternalDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondServiceError(recorder, zap.NewNop(), "request failed", errors.New("dial tcp 10.0.0.1:5432"))
	assert.JSONEq(t, `{"error":"Internal server error"}`, recorder.Body.String())
}
