package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"alphabettutor/internal/credentials"
	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/metrics"
	"alphabettutor/internal/models"
	"alphabettutor/internal/progress"
	"alphabettutor/internal/repository"
	"alphabettutor/internal/security"
	"alphabettutor/internal/session"
	"alphabettutor/internal/store"
	"alphabettutor/internal/tutor"
	"alphabettutor/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("parent PIN required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrReportsDisabled = errors.New("progress reports are not configured")
)

const (
	defaultMaxTurns  = 3
	maxMessageLength = 500
)

// Options wires a TutorService. Profiles and Progress may be nil, in which
// case every session is anonymous and progress lives only in the session snapshot.
type Options struct {
	Responder   tutor.Responder
	Safety      *tutor.SafetyFilter
	Store       store.SessionStore
	Profiles    *repository.ProfileRepository
	Progress    *repository.ProgressRepository
	Reports     *ReportService
	Metrics     *metrics.TutorMetrics
	Logger      *zap.Logger
	MaxTurns    int
	IdleTimeout time.Duration
}

// StartOptions describe a new session
type StartOptions struct {
	AgeRange string
	// ProfileID resumes the progress of a returning learner
	ProfileID string
	// NewProfile creates a profile with a generated nickname
	NewProfile bool
	ParentPIN  string
	ChildName  string
	MaxTurns   int
}

// StartResult identifies a new session
type StartResult struct {
	SessionID string                      `json:"session_id"`
	ProfileID string                      `json:"profile_id,omitempty"`
	Nickname  string                      `json:"nickname,omitempty"`
	State     models.DerivedStateSnapshot `json:"state"`
}

// TurnInput is a turn produced by an external agent
type TurnInput struct {
	UserInput         string   `json:"user_input"`
	AssistantResponse string   `json:"assistant_response"`
	Intent            string   `json:"intent,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	// ChildName and Letter are entities the agent recognised itself
	ChildName string `json:"child_name,omitempty"`
	Letter    string `json:"letter,omitempty"`
}

// TurnResult is what the child sees after a turn
type TurnResult struct {
	Reply      string                      `json:"reply"`
	Intent     string                      `json:"intent"`
	Backend    string                      `json:"backend"`
	Blocked    bool                        `json:"blocked"`
	State      models.DerivedStateSnapshot `json:"state"`
	NextLetter string                      `json:"next_letter"`
	Star       *models.Star                `json:"star,omitempty"`
	Badges     []models.Badge              `json:"badges,omitempty"`
}

// ChildOverride sets entities recognised outside the session
type ChildOverride struct {
	ChildName     *string `json:"child_name,omitempty"`
	CurrentLetter *string `json:"current_letter,omitempty"`
}

type sessionEntry struct {
	mu        sync.Mutex
	memory    *session.Memory
	tracker   *progress.Tracker
	profileID string
	lastSeen  time.Time
	// unsaved holds attempts whose write failed, oldest first
	unsaved []repository.Attempt
	// closed is set when the entry has been evicted from the session map
	closed bool
}

// TutorService owns live sessions. Every operation on a session holds that
// session's lock, so turns for one session are applied one at a time.
type TutorService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	responder   tutor.Responder
	safety      *tutor.SafetyFilter
	store       store.SessionStore
	profiles    *repository.ProfileRepository
	progress    *repository.ProgressRepository
	reports     *ReportService
	metrics     *metrics.TutorMetrics
	logger      *zap.Logger
	maxTurns    int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewTutorService creates a tutor service
func NewTutorService(opts Options) *TutorService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemorySessionStore(0)
	}
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	responder := opts.Responder
	if responder == nil {
		responder = tutor.NewRuleResponder(curriculum.MustLoad())
	}
	return &TutorService{
		sessions:    make(map[string]*sessionEntry),
		responder:   responder,
		safety:      opts.Safety,
		store:       st,
		profiles:    opts.Profiles,
		progress:    opts.Progress,
		reports:     opts.Reports,
		metrics:     opts.Metrics,
		logger:      logger,
		maxTurns:    maxTurns,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
	}
}

// StartSession creates a session, optionally attached to a learner profile
func (s *TutorService) StartSession(ctx context.Context, opts StartOptions) (StartResult, error) {
	if err := validation.ValidateMaxTurns(opts.MaxTurns); err != nil {
		return StartResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = s.maxTurns
	}

	mem := session.New(maxTurns, session.WithClock(s.now))
	if opts.AgeRange != "" {
		if err := mem.UpdateSettings(models.SettingsUpdate{AgeRange: &opts.AgeRange}); err != nil {
			return StartResult{}, err
		}
	}
	if opts.ChildName != "" {
		if err := validation.ValidateChildName(opts.ChildName); err != nil {
			return StartResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		mem.SetChildName(opts.ChildName)
	}

	entry := &sessionEntry{memory: mem, tracker: progress.NewTracker(progress.WithClock(s.now))}
	result := StartResult{SessionID: security.GenerateSessionID()}

	switch {
	case opts.ProfileID != "":
		profile, err := s.attachProfile(ctx, entry, opts.ProfileID, opts.ParentPIN, opts.AgeRange == "")
		if err != nil {
			return StartResult{}, err
		}
		result.ProfileID, result.Nickname = profile.ID, profile.Nickname
	case opts.NewProfile:
		profile, err := s.createProfile(ctx, mem, opts.ParentPIN)
		if err != nil {
			return StartResult{}, err
		}
		entry.profileID = profile.ID
		result.ProfileID, result.Nickname = profile.ID, profile.Nickname
	}

	entry.lastSeen = s.now()
	result.State = mem.DerivedState()

	s.mu.Lock()
	s.sessions[result.SessionID] = entry
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)

	s.save(ctx, result.SessionID, entry)
	s.logger.Info("session started",
		zap.String("session_id", result.SessionID),
		zap.String("profile_id", result.ProfileID),
		zap.Int("max_turns", maxTurns))
	return result, nil
}

// attachProfile loads a learner's progress into the entry. Profiles with a
// parent PIN require it. The stored age range applies only when the caller did
// not choose one.
func (s *TutorService) attachProfile(ctx context.Context, e *sessionEntry, profileID, pin string, useStoredAge bool) (*models.Profile, error) {
	if s.profiles == nil || s.progress == nil {
		return nil, fmt.Errorf("%w: profiles are not available", ErrInvalidInput)
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile.HasParentPIN() && !security.CheckPIN(pin, profile.ParentPINHash) {
		return nil, ErrForbidden
	}
	rec, err := s.progress.Load(ctx, profileID)
	if err != nil {
		return nil, err
	}
	e.tracker = progress.FromRecord(rec, progress.WithClock(s.now))
	e.profileID = profile.ID

	if useStoredAge {
		ageRange := string(profile.AgeRange)
		if err := e.memory.UpdateSettings(models.SettingsUpdate{AgeRange: &ageRange}); err != nil {
			s.logger.Warn("stored age range ignored", zap.String("profile_id", profile.ID), zap.Error(err))
		}
	}
	if profile.ChildName != "" && e.memory.ChildName() == "" {
		e.memory.SetChildName(profile.ChildName)
	}
	return profile, nil
}

func (s *TutorService) createProfile(ctx context.Context, mem *session.Memory, pin string) (*models.Profile, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("%w: profiles are not available", ErrInvalidInput)
	}
	var pinHash string
	if pin != "" {
		hash, err := security.HashPIN(pin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		pinHash = hash
	}
	nickname, err := credentials.GenerateUniqueNickname(ctx, s.profiles.NicknameExists)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nickname: %w", err)
	}
	state := mem.DerivedState()
	profile := &models.Profile{
		ID:            security.GenerateSessionID(),
		Nickname:      nickname,
		ChildName:     mem.ChildName(),
		AgeRange:      state.AgeRange,
		ParentPINHash: pinHash,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// HandleMessage runs one child utterance through safety, the responder and the session
func (s *TutorService) HandleMessage(ctx context.Context, id, text string, confidence *float64) (TurnResult, error) {
	if len(text) > maxMessageLength {
		return TurnResult{}, fmt.Errorf("%w: message longer than %d bytes", ErrInvalidInput, maxMessageLength)
	}
	if err := validation.ValidateConfidence(confidence); err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e, err := s.acquire(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	defer e.mu.Unlock()

	if verdict := s.safety.Check(text); verdict.Blocked {
		s.metrics.ObserveSafetyBlock()
		s.logger.Info("message blocked", zap.String("session_id", id))
		return TurnResult{
			Reply:      tutor.BlockedReply,
			Intent:     tutor.IntentBlocked,
			Backend:    tutor.BackendSafety,
			Blocked:    true,
			State:      e.memory.DerivedState(),
			NextLetter: e.memory.SuggestNextLetter(),
		}, nil
	}

	prompt := tutor.Prompt{
		UserInput:  text,
		Confidence: confidence,
		State:      e.memory.DerivedState(),
		Memory:     e.memory.FormattedMemory(),
		NextLetter: e.memory.SuggestNextLetter(),
	}
	started := time.Now()
	reply, err := s.responder.Respond(ctx, prompt)
	if err != nil {
		return TurnResult{}, fmt.Errorf("failed to generate reply: %w", err)
	}
	s.metrics.ObserveResponderLatency(reply.Backend, time.Since(started).Seconds())

	result := s.applyTurn(ctx, id, e, text, reply, confidence)
	return result, nil
}

// RecordTurn applies a turn produced outside the service, e.g. by a voice agent
func (s *TutorService) RecordTurn(ctx context.Context, id string, in TurnInput) (TurnResult, error) {
	if err := validation.ValidateConfidence(in.Confidence); err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e, err := s.acquire(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	defer e.mu.Unlock()

	reply := tutor.Reply{
		Intent:  in.Intent,
		Letter:  in.Letter,
		Name:    in.ChildName,
		Text:    in.AssistantResponse,
		Backend: "external",
	}
	return s.applyTurn(ctx, id, e, in.UserInput, reply, in.Confidence), nil
}

// applyTurn writes a reply into the session. The caller holds e.mu.
func (s *TutorService) applyTurn(ctx context.Context, id string, e *sessionEntry, text string, reply tutor.Reply, confidence *float64) TurnResult {
	mem := e.memory

	// Entities recognised by the responder; the name only fills an empty slot
	if reply.Name != "" && mem.ChildName() == "" {
		mem.SetChildName(reply.Name)
	}
	if reply.Letter != "" {
		mem.SetCurrentLetter(reply.Letter)
	}

	before := mem.Difficulty()
	mem.AddTurn(text, reply.Text, reply.Intent, confidence)
	s.metrics.ObserveTurn(reply.Intent)
	s.metrics.ObserveDifficultyChange(before.String(), mem.Difficulty().String())

	result := TurnResult{
		Reply:   reply.Text,
		Intent:  reply.Intent,
		Backend: reply.Backend,
	}

	if confidence != nil {
		award, err := s.award(ctx, e, mem.CurrentLetter(), *confidence)
		if err != nil {
			s.logger.Warn("star not awarded", zap.String("session_id", id), zap.Error(err))
		} else {
			result.Star, result.Badges = award.Star, award.Badges
		}
	}

	result.State = mem.DerivedState()
	result.NextLetter = mem.SuggestNextLetter()
	s.save(ctx, id, e)
	return result
}

// award scores an attempt and persists it. The caller holds e.mu.
func (s *TutorService) award(ctx context.Context, e *sessionEntry, letter string, confidence float64) (progress.Award, error) {
	award, err := e.tracker.AwardStar(letter, confidence)
	if err != nil {
		return award, err
	}
	if award.Star != nil {
		s.metrics.ObserveStar()
	}
	for _, b := range award.Badges {
		s.metrics.ObserveBadge(string(b.Type))
	}

	if e.profileID == "" || s.progress == nil {
		return award, nil
	}
	attempt := repository.Attempt{
		Star:     award.Star,
		Badges:   award.Badges,
		Counters: repository.CountersOf(e.tracker.Record()),
	}
	if award.NewlyMastered {
		attempt.MasteredLetter = award.Star.Letter
	}
	e.unsaved = append(e.unsaved, attempt)
	if err := s.flushAttempts(ctx, e); err != nil {
		// Kept for the next attempt; the tracker stays ahead until then
		s.logger.Error("failed to persist attempt",
			zap.String("profile_id", e.profileID),
			zap.Int("unsaved", len(e.unsaved)),
			zap.Error(err))
	}
	return award, nil
}

// flushAttempts writes unsaved attempts in order and stops at the first
// failure. Each write also stores the counters as of that attempt, so the
// last one leaves the current values. The caller holds e.mu.
func (s *TutorService) flushAttempts(ctx context.Context, e *sessionEntry) error {
	for len(e.unsaved) > 0 {
		a := e.unsaved[0]
		starID, err := s.progress.RecordAttempt(ctx, e.profileID, a)
		if err != nil {
			return err
		}
		if a.Star != nil {
			a.Star.ID = starID
		}
		e.unsaved = e.unsaved[1:]
	}
	e.unsaved = nil
	return nil
}

// dropUnsaved logs attempts that are lost with an entry. The caller holds e.mu.
func (s *TutorService) dropUnsaved(e *sessionEntry) {
	if len(e.unsaved) == 0 {
		return
	}
	stars, mastered, badges := 0, 0, 0
	for _, a := range e.unsaved {
		if a.Star != nil {
			stars++
		}
		if a.MasteredLetter != "" {
			mastered++
		}
		badges += len(a.Badges)
	}
	s.logger.Error("unsaved progress dropped",
		zap.String("profile_id", e.profileID),
		zap.Int("stars", stars),
		zap.Int("mastered_letters", mastered),
		zap.Int("badges", badges))
	e.unsaved = nil
}

// AwardStar scores a pronunciation attempt outside of a message
func (s *TutorService) AwardStar(ctx context.Context, id, letter string, confidence float64) (progress.Award, error) {
	if err := validation.ValidateLetter(letter); err != nil {
		return progress.Award{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateConfidence(&confidence); err != nil {
		return progress.Award{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e, err := s.acquire(ctx, id)
	if err != nil {
		return progress.Award{}, err
	}
	defer e.mu.Unlock()

	award, err := s.award(ctx, e, letter, confidence)
	if err != nil {
		return award, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.save(ctx, id, e)
	return award, nil
}

// State returns the derived state snapshot
func (s *TutorService) State(ctx context.Context, id string) (models.DerivedStateSnapshot, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.DerivedStateSnapshot{}, err
	}
	defer e.mu.Unlock()
	return e.memory.DerivedState(), nil
}

// Memory returns the formatted recent conversation and state
func (s *TutorService) Memory(ctx context.Context, id string) (string, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	defer e.mu.Unlock()
	return e.memory.FormattedMemory(), nil
}

// NextLetter recommends the next letter to practise
func (s *TutorService) NextLetter(ctx context.Context, id string) (string, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	defer e.mu.Unlock()
	return e.memory.SuggestNextLetter(), nil
}

// Settings returns the channel flags and age range
func (s *TutorService) Settings(ctx context.Context, id string) (models.SessionSettings, models.AgeRange, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.SessionSettings{}, "", err
	}
	defer e.mu.Unlock()
	return e.memory.Settings(), e.memory.DerivedState().AgeRange, nil
}

// UpdateSettings changes session settings. Profiles with a parent PIN require it.
func (s *TutorService) UpdateSettings(ctx context.Context, id, pin string, u models.SettingsUpdate) (models.SessionSettings, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.SessionSettings{}, err
	}
	defer e.mu.Unlock()

	if err := s.authorize(ctx, e, pin); err != nil {
		return models.SessionSettings{}, err
	}
	if err := e.memory.UpdateSettings(u); err != nil {
		return models.SessionSettings{}, err
	}
	if u.AgeRange != nil && *u.AgeRange != "" {
		s.syncProfile(ctx, e)
	}
	s.save(ctx, id, e)
	return e.memory.Settings(), nil
}

// OverrideChild sets the child's name or current letter. Invalid values are ignored.
func (s *TutorService) OverrideChild(ctx context.Context, id string, o ChildOverride) (models.DerivedStateSnapshot, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.DerivedStateSnapshot{}, err
	}
	defer e.mu.Unlock()

	if o.ChildName != nil && validation.ValidateChildName(*o.ChildName) == nil {
		if e.memory.SetChildName(*o.ChildName) {
			s.syncProfile(ctx, e)
		}
	}
	if o.CurrentLetter != nil {
		e.memory.SetCurrentLetter(*o.CurrentLetter)
	}
	s.save(ctx, id, e)
	return e.memory.DerivedState(), nil
}

// ResetSession clears the conversation and derived state; progress is kept
func (s *TutorService) ResetSession(ctx context.Context, id string) (models.DerivedStateSnapshot, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.DerivedStateSnapshot{}, err
	}
	defer e.mu.Unlock()

	e.memory.Reset()
	s.save(ctx, id, e)
	s.logger.Info("session reset", zap.String("session_id", id))
	return e.memory.DerivedState(), nil
}

// Progress returns the progress summary of the session's learner
func (s *TutorService) Progress(ctx context.Context, id string) (models.ProgressSummary, error) {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	defer e.mu.Unlock()
	return e.tracker.Summary(), nil
}

// ResetProgress wipes stars, badges and mastery. Profiles with a parent PIN require it.
func (s *TutorService) ResetProgress(ctx context.Context, id, pin string) error {
	e, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := s.authorize(ctx, e, pin); err != nil {
		return err
	}
	if e.profileID != "" && s.progress != nil {
		if err := s.progress.Reset(ctx, e.profileID); err != nil {
			return err
		}
	}
	e.tracker.Reset()
	e.unsaved = nil
	s.save(ctx, id, e)
	s.logger.Info("progress reset", zap.String("session_id", id), zap.String("profile_id", e.profileID))
	return nil
}

// SendReport e-mails the progress summary to a parent
func (s *TutorService) SendReport(ctx context.Context, id, pin, email string) error {
	if s.reports == nil || !s.reports.IsEnabled() {
		return ErrReportsDisabled
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	summary := e.tracker.Summary()
	name := e.memory.ChildName()
	err = s.authorize(ctx, e, pin)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	return s.reports.SendProgressReport(ctx, email, name, summary)
}

// EndSession drops a session and its snapshot
func (s *TutorService) EndSession(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	active := len(s.sessions)
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.closed = true
		if len(e.unsaved) > 0 {
			if err := s.flushAttempts(ctx, e); err != nil {
				s.logger.Warn("final progress write failed", zap.String("session_id", id), zap.Error(err))
			}
			s.dropUnsaved(e)
		}
		e.mu.Unlock()
	}
	s.metrics.SetActiveSessions(active)

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	s.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

// ActiveSessions returns the number of sessions held in memory
func (s *TutorService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ReapIdle evicts sessions idle for longer than the idle timeout every
// interval until ctx is done. Evicted sessions can still be restored from
// their snapshot until it expires.
func (s *TutorService) ReapIdle(ctx context.Context, interval time.Duration) {
	if s.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.reap(); n > 0 {
				s.logger.Info("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (s *TutorService) reap() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	evicted := 0
	for id, e := range s.sessions {
		// A session in use is not idle
		if !e.mu.TryLock() {
			continue
		}
		if e.lastSeen.Before(cutoff) {
			e.closed = true
			s.dropUnsaved(e)
			delete(s.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	active := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(active)
	return evicted
}

// acquire returns the locked entry for id, restoring it from the store when
// it is not in memory.
func (s *TutorService) acquire(ctx context.Context, id string) (*sessionEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrSessionNotFound
	}
	for {
		s.mu.RLock()
		e := s.sessions[id]
		s.mu.RUnlock()

		if e == nil {
			var err error
			if e, err = s.restore(ctx, id); err != nil {
				return nil, err
			}
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			continue
		}
		e.lastSeen = s.now()
		return e, nil
	}
}

func (s *TutorService) restore(ctx context.Context, id string) (*sessionEntry, error) {
	snap, err := s.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	e := &sessionEntry{
		memory:    session.Restore(snap, session.WithClock(s.now)),
		profileID: snap.ProfileID,
		lastSeen:  s.now(),
	}
	switch {
	case snap.ProfileID != "" && s.progress != nil:
		rec, err := s.progress.Load(ctx, snap.ProfileID)
		if err != nil {
			return nil, err
		}
		e.tracker = progress.FromRecord(rec, progress.WithClock(s.now))
	case snap.Progress != nil:
		e.tracker = progress.FromRecord(*snap.Progress, progress.WithClock(s.now))
	default:
		e.tracker = progress.NewTracker(progress.WithClock(s.now))
	}

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		e = existing
	} else {
		s.sessions[id] = e
	}
	active := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(active)
	s.logger.Info("session restored", zap.String("session_id", id))
	return e, nil
}

// save writes the session snapshot. Failures are logged; the live session is unaffected.
func (s *TutorService) save(ctx context.Context, id string, e *sessionEntry) {
	snap := e.memory.Snapshot()
	snap.ID = id
	snap.ProfileID = e.profileID
	if e.profileID == "" || s.progress == nil {
		rec := e.tracker.Record()
		snap.Progress = &rec
	}
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Warn("failed to save session snapshot", zap.String("session_id", id), zap.Error(err))
	}
}

// authorize checks the parent PIN of the session's profile, if it has one
func (s *TutorService) authorize(ctx context.Context, e *sessionEntry, pin string) error {
	if e.profileID == "" || s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.GetByID(ctx, e.profileID)
	if err != nil {
		return err
	}
	if profile.HasParentPIN() && !security.CheckPIN(pin, profile.ParentPINHash) {
		return ErrForbidden
	}
	return nil
}

// syncProfile stores the child's name and age range on the profile
func (s *TutorService) syncProfile(ctx context.Context, e *sessionEntry) {
	if e.profileID == "" || s.profiles == nil {
		return
	}
	state := e.memory.DerivedState()
	if err := s.profiles.UpdateChild(ctx, e.profileID, e.memory.ChildName(), state.AgeRange); err != nil {
		s.logger.Warn("failed to update profile", zap.String("profile_id", e.profileID), zap.Error(err))
	}
}
