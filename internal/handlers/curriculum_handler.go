package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"alphabettutor/internal/audio"
	"alphabettutor/internal/curriculum"
)

// CurriculumHandler serves lesson content and pronunciation clips
type CurriculumHandler struct {
	curriculum *curriculum.Curriculum
	tts        *audio.TTSService
	logger     *zap.Logger
}

// NewCurriculumHandler creates a curriculum handler. A nil tts disables audio.
func NewCurriculumHandler(c *curriculum.Curriculum, tts *audio.TTSService, logger *zap.Logger) *CurriculumHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumHandler{curriculum: c, tts: tts, logger: logger}
}

// Register mounts the curriculum routes on mux
func (h *CurriculumHandler) Register(mux *http.ServeMux, m *Middleware) {
	mux.HandleFunc("GET /api/curriculum", h.ListLetters)
	mux.HandleFunc("GET /api/curriculum/{letter}", h.GetLetter)
	mux.HandleFunc("GET /api/curriculum/{letter}/audio", m.RateLimit(h.GetLetterAudio))
}

// ListLetters returns every lesson in alphabetical order
func (h *CurriculumHandler) ListLetters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.curriculum.Letters())
}

// GetLetter returns the lesson for one letter
func (h *CurriculumHandler) GetLetter(w http.ResponseWriter, r *http.Request) {
	lesson, ok := h.curriculum.Lookup(r.PathValue("letter"))
	if !ok {
		respondWithError(w, h.logger, http.StatusNotFound, "Unknown letter", "", nil)
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

// GetLetterAudio serves the cached pronunciation clip, generating it on first use
func (h *CurriculumHandler) GetLetterAudio(w http.ResponseWriter, r *http.Request) {
	if h.tts == nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrServiceUnavailable, "", nil)
		return
	}
	lesson, ok := h.curriculum.Lookup(r.PathValue("letter"))
	if !ok {
		respondWithError(w, h.logger, http.StatusNotFound, "Unknown letter", "", nil)
		return
	}

	path, err := h.tts.LetterClip(r.Context(), lesson.Letter, spokenLesson(lesson))
	if err != nil {
		respondServiceError(w, h.logger, "failed to load letter audio", err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// spokenLesson is the text read out for a letter, e.g. "B. B is for ball."
func spokenLesson(l curriculum.Letter) string {
	example := l.FirstExample()
	if example == "" {
		return l.Letter + "."
	}
	return fmt.Sprintf("%s. %s is for %s.", l.Letter, l.Letter, strings.ToLower(example))
}
