package tutor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResponder struct {
	reply Reply
	err   error
	calls int
}

func (s *stubResponder) Respond(context.Context, Prompt) (Reply, error) {
	s.calls++
	return s.reply, s.err
}

func TestFallbackResponder(t *testing.T) {
	tests := []struct {
		name          string
		primary       *stubResponder
		wantBackend   string
		wantSecondary int
	}{
		{
			name:        "primary answers",
			primary:     &stubResponder{reply: Reply{Text: "hi", Backend: BackendGemini}},
			wantBackend: BackendGemini,
		},
		{
			name:          "primary fails",
			primary:       &stubResponder{err: errors.New("down")},
			wantBackend:   BackendRules,
			wantSecondary: 1,
		},
		{
			name:          "primary empty",
			primary:       &stubResponder{reply: Reply{Backend: BackendGemini}},
			wantBackend:   BackendRules,
			wantSecondary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &stubResponder{reply: Reply{Text: "rules", Backend: BackendRules}}
			f := NewFallbackResponder(tt.primary, secondary, zap.NewNop())

			reply, err := f.Respond(context.Background(), Prompt{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantBackend, reply.Backend)
			assert.Equal(t, tt.wantSecondary, secondary.calls)
		})
	}
}

func TestFallbackResponderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	secondary := &stubResponder{reply: Reply{Text: "rules"}}
	f := NewFallbackResponder(&stubResponder{err: context.Canceled}, secondary, nil)

	_, err := f.Respond(ctx, Prompt{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.calls)
}
