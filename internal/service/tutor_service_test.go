package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/database"
	"alphabettutor/internal/models"
	"alphabettutor/internal/repository"
	"alphabettutor/internal/session"
	"alphabettutor/internal/store"
	"alphabettutor/internal/tutor"
	"alphabettutor/migrations"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), migrations.FS, nil))
	return db
}

func newTestService(t *testing.T, opts Options) (*TutorService, *testClock) {
	t.Helper()
	if opts.Responder == nil {
		opts.Responder = tutor.NewRuleResponder(curriculum.MustLoad())
	}
	svc := NewTutorService(opts)
	clock := newTestClock()
	svc.now = clock.Now
	return svc, clock
}

func newProfileService(t *testing.T) (*TutorService, *testClock) {
	t.Helper()
	db := openTestDB(t)
	return newTestService(t, Options{
		Profiles: repository.NewProfileRepository(db),
		Progress: repository.NewProgressRepository(db),
	})
}

func startSession(t *testing.T, svc *TutorService, opts StartOptions) StartResult {
	t.Helper()
	res, err := svc.StartSession(context.Background(), opts)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	return res
}

type failingResponder struct{}

func (failingResponder) Respond(context.Context, tutor.Prompt) (tutor.Reply, error) {
	return tutor.Reply{}, errors.New("model unavailable")
}

func TestHandleMessageLearnsName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{})

	turn, err := svc.HandleMessage(ctx, res.SessionID, "My name is Maya", nil)
	require.NoError(t, err)
	assert.Equal(t, tutor.IntentIntroduction, turn.Intent)
	assert.Equal(t, tutor.BackendRules, turn.Backend)
	assert.Contains(t, turn.Reply, "Maya")
	require.NotNil(t, turn.State.ChildName)
	assert.Equal(t, "Maya", *turn.State.ChildName)
	assert.Equal(t, 1, turn.State.TotalInteractions)
	assert.Nil(t, turn.Star)

	// The first name sticks
	turn, err = svc.HandleMessage(ctx, res.SessionID, "I am Zoe", nil)
	require.NoError(t, err)
	assert.Equal(t, "Maya", *turn.State.ChildName)
}

func TestHandleMessageAwardsStar(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{})

	turn, err := svc.HandleMessage(ctx, res.SessionID, "B", session.Score(0.9))
	require.NoError(t, err)
	assert.Equal(t, "B", turn.State.CurrentLetter)
	assert.Equal(t, []string{"B"}, turn.State.LettersCompleted)
	assert.Equal(t, 1, turn.State.StreakCount)
	require.NotNil(t, turn.Star)
	assert.Equal(t, "B", turn.Star.Letter)
	require.Len(t, turn.Badges, 1)
	assert.Equal(t, models.BadgeFirstLetter, turn.Badges[0].Type)
	assert.Contains(t, turn.Reply, "perfectly")

	turn, err = svc.HandleMessage(ctx, res.SessionID, "C", session.Score(0.3))
	require.NoError(t, err)
	assert.Nil(t, turn.Star)
	require.NotNil(t, turn.State.LastMistake)
	assert.Equal(t, "C", *turn.State.LastMistake)
	assert.Equal(t, "A", turn.NextLetter, "C is not in the easy pool")

	summary, err := svc.Progress(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StarsEarned)
	assert.Equal(t, 2, summary.TotalAttempts)
	assert.Equal(t, 0, summary.CurrentStreak)
}

func TestHandleMessageBlocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{Safety: tutor.NewSafetyFilter([]string{"darn"})})
	res := startSession(t, svc, StartOptions{})

	for _, text := range []string{"what is your address", "darn it"} {
		turn, err := svc.HandleMessage(ctx, res.SessionID, text, session.Score(0.9))
		require.NoError(t, err)
		assert.True(t, turn.Blocked)
		assert.Equal(t, tutor.BlockedReply, turn.Reply)
		assert.Equal(t, tutor.IntentBlocked, turn.Intent)
		assert.Equal(t, 0, turn.State.TotalInteractions)
		assert.Nil(t, turn.Star)
	}
}

func TestHandleMessageInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{})

	_, err := svc.HandleMessage(ctx, res.SessionID, "A", session.Score(1.5))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.HandleMessage(ctx, res.SessionID, strings.Repeat("a", maxMessageLength+1), nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.HandleMessage(ctx, "missing", "hi", nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestHandleMessageResponderError(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{Responder: failingResponder{}})
	res := startSession(t, svc, StartOptions{})

	_, err := svc.HandleMessage(ctx, res.SessionID, "teach me A", nil)
	require.Error(t, err)

	state, err := svc.State(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.TotalInteractions)
}

func TestRecordTurn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{})

	turn, err := svc.RecordTurn(ctx, res.SessionID, TurnInput{
		UserInput:         "this one",
		AssistantResponse: "Great, keep practising together!",
		Intent:            tutor.IntentLearnLetter,
		ChildName:         "Leo",
		Letter:            "k",
		Confidence:        session.Score(0.85),
	})
	require.NoError(t, err)
	assert.Equal(t, "external", turn.Backend)
	require.NotNil(t, turn.State.ChildName)
	assert.Equal(t, "Leo", *turn.State.ChildName)
	assert.Equal(t, "K", turn.State.CurrentLetter)
	require.NotNil(t, turn.Star)
	assert.Equal(t, "K", turn.Star.Letter)

	history, err := svc.Memory(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, history, "Child: this one\nBubbly: Great, keep practising together!")
}

func TestSettingsAndOverrides(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{AgeRange: "6-8"})
	assert.Equal(t, models.AgeRangeOlder, res.State.AgeRange)

	bad := "9-12"
	_, err := svc.UpdateSettings(ctx, res.SessionID, "", models.SettingsUpdate{AgeRange: &bad})
	assert.True(t, errors.Is(err, session.ErrInvalidConfiguration))

	young, vision := "3-5", true
	settings, err := svc.UpdateSettings(ctx, res.SessionID, "", models.SettingsUpdate{AgeRange: &young, Vision: &vision})
	require.NoError(t, err)
	assert.True(t, settings.VisionEnabled)
	_, age, err := svc.Settings(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.AgeRangeYounger, age)

	name, letter, badLetter := "Ana", "q", "QQ"
	state, err := svc.OverrideChild(ctx, res.SessionID, ChildOverride{ChildName: &name, CurrentLetter: &letter})
	require.NoError(t, err)
	assert.Equal(t, "Ana", *state.ChildName)
	assert.Equal(t, "Q", state.CurrentLetter)

	state, err = svc.OverrideChild(ctx, res.SessionID, ChildOverride{CurrentLetter: &badLetter})
	require.NoError(t, err)
	assert.Equal(t, "Q", state.CurrentLetter)

	state, err = svc.ResetSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Nil(t, state.ChildName)
	assert.Equal(t, "A", state.CurrentLetter)
	assert.Equal(t, models.AgeRangeYounger, state.AgeRange)

	next, err := svc.NextLetter(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "A", next)
}

func TestStartSessionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})

	_, err := svc.StartSession(ctx, StartOptions{AgeRange: "12"})
	assert.True(t, errors.Is(err, session.ErrInvalidConfiguration))

	_, err = svc.StartSession(ctx, StartOptions{MaxTurns: 100})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.StartSession(ctx, StartOptions{NewProfile: true})
	assert.True(t, errors.Is(err, ErrInvalidInput), "profiles need a database")
}

func TestProfileProgressSurvivesSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProfileService(t)

	first := startSession(t, svc, StartOptions{NewProfile: true, ParentPIN: "2468", ChildName: "Maya", AgeRange: "6-8"})
	require.NotEmpty(t, first.ProfileID)
	assert.Regexp(t, `^[a-z]+-[a-z]+-\d{2}$`, first.Nickname)

	for _, l := range []string{"A", "E"} {
		_, err := svc.AwardStar(ctx, first.SessionID, l, 0.97)
		require.NoError(t, err)
	}
	require.NoError(t, svc.EndSession(ctx, first.SessionID))

	_, err := svc.StartSession(ctx, StartOptions{ProfileID: first.ProfileID})
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = svc.StartSession(ctx, StartOptions{ProfileID: first.ProfileID, ParentPIN: "1357"})
	assert.True(t, errors.Is(err, ErrForbidden))

	second := startSession(t, svc, StartOptions{ProfileID: first.ProfileID, ParentPIN: "2468"})
	require.NotNil(t, second.State.ChildName)
	assert.Equal(t, "Maya", *second.State.ChildName)
	assert.Equal(t, models.AgeRangeOlder, second.State.AgeRange)

	summary, err := svc.Progress(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.StarsEarned)
	assert.Equal(t, []string{"A", "E"}, summary.MasteredList)
	assert.Equal(t, 1, summary.BadgesEarned)
	assert.Equal(t, "First Steps", summary.Badges[0].Name)

	assert.True(t, errors.Is(svc.ResetProgress(ctx, second.SessionID, "0000"), ErrForbidden))
	assert.True(t, errors.Is(svc.ResetProgress(ctx, second.SessionID, ""), ErrForbidden))
	young := "3-5"
	_, err = svc.UpdateSettings(ctx, second.SessionID, "", models.SettingsUpdate{AgeRange: &young})
	assert.True(t, errors.Is(err, ErrForbidden))

	require.NoError(t, svc.ResetProgress(ctx, second.SessionID, "2468"))
	summary, err = svc.Progress(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.StarsEarned)

	_, err = svc.StartSession(ctx, StartOptions{ProfileID: "missing"})
	assert.True(t, errors.Is(err, repository.ErrProfileNotFound))
}

func TestProfileWithoutPINResumesFreely(t *testing.T) {
	svc, _ := newProfileService(t)

	first := startSession(t, svc, StartOptions{NewProfile: true})
	second := startSession(t, svc, StartOptions{ProfileID: first.ProfileID, ParentPIN: "9999"})
	assert.Equal(t, first.ProfileID, second.ProfileID)
}

func TestFailedAttemptRetriedOnNextAttempt(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	progressRepo := repository.NewProgressRepository(db)
	svc, _ := newTestService(t, Options{
		Profiles: repository.NewProfileRepository(db),
		Progress: progressRepo,
	})
	res := startSession(t, svc, StartOptions{NewProfile: true})

	_, err := db.ExecContext(ctx, `CREATE TRIGGER stars_unavailable BEFORE INSERT ON stars
		BEGIN SELECT RAISE(FAIL, 'stars unavailable'); END`)
	require.NoError(t, err)

	award, err := svc.AwardStar(ctx, res.SessionID, "A", 0.97)
	require.NoError(t, err)
	require.NotNil(t, award.Star)
	assert.Len(t, award.Badges, 1)

	rec, err := progressRepo.Load(ctx, res.ProfileID)
	require.NoError(t, err)
	assert.Empty(t, rec.Stars)
	assert.Empty(t, rec.LettersMastered)

	_, err = db.ExecContext(ctx, `DROP TRIGGER stars_unavailable`)
	require.NoError(t, err)

	award, err = svc.AwardStar(ctx, res.SessionID, "B", 0.9)
	require.NoError(t, err)
	require.NotNil(t, award.Star)
	assert.NotZero(t, award.Star.ID)

	rec, err = progressRepo.Load(ctx, res.ProfileID)
	require.NoError(t, err)
	require.Len(t, rec.Stars, 2)
	assert.Equal(t, "A", rec.Stars[0].Letter)
	assert.Equal(t, []string{"A", "B"}, rec.LettersMastered)
	require.Len(t, rec.Badges, 1)
	assert.Equal(t, models.BadgeFirstLetter, rec.Badges[0].Type)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 2, rec.TotalAttempts)
}

func TestSessionRestoredAfterEviction(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc, clock := newTestService(t, Options{
		Store:       store.NewRedisSessionStore(client, time.Hour),
		IdleTimeout: 10 * time.Minute,
	})
	res := startSession(t, svc, StartOptions{})
	_, err := svc.HandleMessage(ctx, res.SessionID, "My name is Maya", nil)
	require.NoError(t, err)
	_, err = svc.HandleMessage(ctx, res.SessionID, "O", session.Score(0.99))
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	assert.Equal(t, 1, svc.reap())
	assert.Equal(t, 0, svc.ActiveSessions())

	state, err := svc.State(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Maya", *state.ChildName)
	assert.Equal(t, "O", state.CurrentLetter)
	assert.Equal(t, 2, state.TotalInteractions)
	assert.Equal(t, 1, svc.ActiveSessions())

	summary, err := svc.Progress(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StarsEarned)

	require.NoError(t, svc.EndSession(ctx, res.SessionID))
	assert.False(t, mr.Exists("tutor:session:"+res.SessionID))
	_, err = svc.State(ctx, res.SessionID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(svc.EndSession(ctx, res.SessionID), ErrSessionNotFound))
}

func TestReapSkipsActiveSessions(t *testing.T) {
	svc, clock := newTestService(t, Options{IdleTimeout: time.Minute})
	idle := startSession(t, svc, StartOptions{})
	busy := startSession(t, svc, StartOptions{})

	clock.Advance(2 * time.Minute)
	_, err := svc.State(context.Background(), busy.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.reap())
	svc.mu.RLock()
	_, idleKept := svc.sessions[idle.SessionID]
	_, busyKept := svc.sessions[busy.SessionID]
	svc.mu.RUnlock()
	assert.False(t, idleKept)
	assert.True(t, busyKept)
}

func TestReapIdleStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc, _ := newTestService(t, Options{IdleTimeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.ReapIdle(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}

func TestConcurrentMessagesSerialised(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{})
	res := startSession(t, svc, StartOptions{})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleMessage(ctx, res.SessionID, "A", session.Score(0.9))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := svc.State(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, n, state.TotalInteractions)
	assert.Equal(t, n, state.StreakCount)
	assert.Equal(t, models.DifficultyHard, state.DifficultyLevel)

	summary, err := svc.Progress(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, n, summary.StarsEarned)
	assert.Equal(t, n, summary.TotalAttempts)
}
