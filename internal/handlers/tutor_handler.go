package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"alphabettutor/internal/models"
	"alphabettutor/internal/security"
	"alphabettutor/internal/service"
)

// TutorHandler serves the session API
type TutorHandler struct {
	service *service.TutorService
	tokens  *security.TokenIssuer
	logger  *zap.Logger
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(tutorService *service.TutorService, tokens *security.TokenIssuer, logger *zap.Logger) *TutorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorHandler{
		service: tutorService,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register mounts the session routes on mux
func (h *TutorHandler) Register(mux *http.ServeMux, m *Middleware) {
	mux.HandleFunc("POST /api/sessions", m.RateLimit(h.StartSession))
	mux.HandleFunc("POST /api/sessions/{id}/messages", m.RateLimit(m.RequireSession(h.SendMessage)))
	mux.HandleFunc("POST /api/sessions/{id}/turns", m.RequireSession(h.RecordTurn))
	mux.HandleFunc("GET /api/sessions/{id}/state", m.RequireSession(h.GetState))
	mux.HandleFunc("GET /api/sessions/{id}/memory", m.RequireSession(h.GetMemory))
	mux.HandleFunc("GET /api/sessions/{id}/next-letter", m.RequireSession(h.GetNextLetter))
	mux.HandleFunc("GET /api/sessions/{id}/settings", m.RequireSession(h.GetSettings))
	mux.HandleFunc("PUT /api/sessions/{id}/settings", m.RequireSession(h.UpdateSettings))
	mux.HandleFunc("PUT /api/sessions/{id}/child", m.RequireSession(h.OverrideChild))
	mux.HandleFunc("POST /api/sessions/{id}/reset", m.RequireSession(h.ResetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", m.RequireSession(h.EndSession))
	mux.HandleFunc("POST /api/sessions/{id}/stars", m.RequireSession(h.AwardStar))
	mux.HandleFunc("GET /api/sessions/{id}/progress", m.RequireSession(h.GetProgress))
	mux.HandleFunc("POST /api/sessions/{id}/progress/reset", m.RequireSession(h.ResetProgress))
	mux.HandleFunc("POST /api/sessions/{id}/report", m.RateLimit(m.RequireSession(h.SendReport)))
}

type startSessionRequest struct {
	AgeRange   string `json:"age_range"`
	ProfileID  string `json:"profile_id"`
	NewProfile bool   `json:"new_profile"`
	ParentPIN  string `json:"parent_pin"`
	ChildName  string `json:"child_name"`
	MaxTurns   int    `json:"max_turns"`
}

type startSessionResponse struct {
	service.StartResult
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StartSession creates a session and issues its bearer token
func (h *TutorHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	result, err := h.service.StartSession(r.Context(), service.StartOptions{
		AgeRange:   req.AgeRange,
		ProfileID:  req.ProfileID,
		NewProfile: req.NewProfile,
		ParentPIN:  req.ParentPIN,
		ChildName:  req.ChildName,
		MaxTurns:   req.MaxTurns,
	})
	if err != nil {
		respondServiceError(w, h.logger, "failed to start session", err)
		return
	}

	token, expires, err := h.tokens.IssueSessionToken(result.SessionID, result.ProfileID)
	if err != nil {
		_ = h.service.EndSession(r.Context(), result.SessionID)
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "failed to issue session token", err)
		return
	}

	respondJSON(w, http.StatusCreated, startSessionResponse{StartResult: result, Token: token, ExpiresAt: expires})
}

type messageRequest struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// SendMessage runs a child utterance through the tutor
func (h *TutorHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	result, err := h.service.HandleMessage(r.Context(), r.PathValue("id"), req.Text, req.Confidence)
	if err != nil {
		respondServiceError(w, h.logger, "failed to handle message", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// RecordTurn stores a turn produced by an external agent
func (h *TutorHandler) RecordTurn(w http.ResponseWriter, r *http.Request) {
	var req service.TurnInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	result, err := h.service.RecordTurn(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondServiceError(w, h.logger, "failed to record turn", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetState returns the derived state snapshot
func (h *TutorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to load state", err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// GetMemory returns the formatted memory as plain text
func (h *TutorHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	memory, err := h.service.Memory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to load memory", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(memory))
}

// GetNextLetter recommends the next letter to practise
func (h *TutorHandler) GetNextLetter(w http.ResponseWriter, r *http.Request) {
	letter, err := h.service.NextLetter(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to select next letter", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"next_letter": letter})
}

type settingsResponse struct {
	models.SessionSettings
	AgeRange models.AgeRange `json:"age_range"`
}

type updateSettingsRequest struct {
	models.SettingsUpdate
	ParentPIN string `json:"parent_pin"`
}

// GetSettings returns the session settings
func (h *TutorHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.respondSettings(w, r)
}

// UpdateSettings changes age range and channel flags
func (h *TutorHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	if _, err := h.service.UpdateSettings(r.Context(), r.PathValue("id"), req.ParentPIN, req.SettingsUpdate); err != nil {
		respondServiceError(w, h.logger, "failed to update settings", err)
		return
	}
	h.respondSettings(w, r)
}

func (h *TutorHandler) respondSettings(w http.ResponseWriter, r *http.Request) {
	settings, ageRange, err := h.service.Settings(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to load settings", err)
		return
	}
	respondJSON(w, http.StatusOK, settingsResponse{SessionSettings: settings, AgeRange: ageRange})
}

// OverrideChild sets the child's name or current letter
func (h *TutorHandler) OverrideChild(w http.ResponseWriter, r *http.Request) {
	var req service.ChildOverride
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	state, err := h.service.OverrideChild(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondServiceError(w, h.logger, "failed to override child", err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// ResetSession clears the conversation
func (h *TutorHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ResetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to reset session", err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// EndSession drops the session
func (h *TutorHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EndSession(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, "failed to end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type starRequest struct {
	Letter     string   `json:"letter"`
	Confidence *float64 `json:"confidence"`
}

type starResponse struct {
	Star          *models.Star   `json:"star"`
	Badges        []models.Badge `json:"badges"`
	NewlyMastered bool           `json:"newly_mastered"`
}

// AwardStar scores a pronunciation attempt
func (h *TutorHandler) AwardStar(w http.ResponseWriter, r *http.Request) {
	var req starRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}
	if req.Confidence == nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "confidence is required", "", nil)
		return
	}

	award, err := h.service.AwardStar(r.Context(), r.PathValue("id"), req.Letter, *req.Confidence)
	if err != nil {
		respondServiceError(w, h.logger, "failed to award star", err)
		return
	}
	badges := award.Badges
	if badges == nil {
		badges = []models.Badge{}
	}
	respondJSON(w, http.StatusOK, starResponse{Star: award.Star, Badges: badges, NewlyMastered: award.NewlyMastered})
}

// GetProgress returns the learner's progress summary
func (h *TutorHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, "failed to load progress", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type pinRequest struct {
	ParentPIN string `json:"parent_pin"`
}

// ResetProgress wipes the learner's progress
func (h *TutorHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	if err := h.service.ResetProgress(r.Context(), r.PathValue("id"), req.ParentPIN); err != nil {
		respondServiceError(w, h.logger, "failed to reset progress", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reportRequest struct {
	Email     string `json:"email"`
	ParentPIN string `json:"parent_pin"`
}

// SendReport e-mails the progress summary to a parent
func (h *TutorHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	if err := h.service.SendReport(r.Context(), r.PathValue("id"), req.ParentPIN, req.Email); err != nil {
		respondServiceError(w, h.logger, "failed to send report", err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
