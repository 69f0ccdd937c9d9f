package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"alphabettutor/internal/alphabet"
)

// ErrInvalidLetter is returned when a clip is requested for something that is not a letter
var ErrInvalidLetter = errors.New("invalid letter")

const (
	ttsRequestTimeout = 10 * time.Second
	googleTTSURL      = "https://translate.google.com/translate_tts"
)

// TTSService caches letter pronunciation clips on disk
type TTSService struct {
	audioDir string
	baseURL  string
	client   *http.Client
}

// NewTTSService creates a new TTS service
func NewTTSService(audioDir string) *TTSService {
	return &TTSService{
		audioDir: audioDir,
		baseURL:  googleTTSURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
}

// LetterClipName returns the cache file name for a letter, e.g. letter_b.mp3
func LetterClipName(letter string) (string, error) {
	l, ok := alphabet.Normalize(letter)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidLetter, letter)
	}
	return "letter_" + strings.ToLower(l) + ".mp3", nil
}

// LetterClip returns the path of the clip for letter, generating it from
// spoken when it is not cached yet.
func (s *TTSService) LetterClip(ctx context.Context, letter, spoken string) (string, error) {
	filename, err := LetterClipName(letter)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.audioDir, filename)

	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := s.generateUsingGoogleTTS(ctx, spoken, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return path, nil
}

// generateUsingGoogleTTS uses Google Translate's text-to-speech API
func (s *TTSService) generateUsingGoogleTTS(ctx context.Context, text, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", "en")
	params.Set("client", "tw-ob")
	params.Set("textlen", fmt.Sprintf("%d", len(text)))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never leaves a partial clip in the cache
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".clip-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}

// DeleteLetterClip removes a cached clip
func (s *TTSService) DeleteLetterClip(letter string) error {
	filename, err := LetterClipName(letter)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.audioDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetAllAudioFiles returns a list of all MP3 files in the audio directory
func (s *TTSService) GetAllAudioFiles() ([]string, error) {
	files, err := os.ReadDir(s.audioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var audioFiles []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".mp3" {
			audioFiles = append(audioFiles, file.Name())
		}
	}

	return audioFiles, nil
}
