package tutor

import (
	"context"

	"go.uber.org/zap"
)

// FallbackResponder asks the primary responder first and falls back to the
// secondary when it fails or returns nothing
type FallbackResponder struct {
	primary   Responder
	secondary Responder
	logger    *zap.Logger
}

func NewFallbackResponder(primary, secondary Responder, logger *zap.Logger) *FallbackResponder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackResponder{primary: primary, secondary: secondary, logger: logger}
}

func (f *FallbackResponder) Respond(ctx context.Context, p Prompt) (Reply, error) {
	reply, err := f.primary.Respond(ctx, p)
	if err == nil && reply.Text != "" {
		return reply, nil
	}
	if ctx.Err() != nil {
		return Reply{}, ctx.Err()
	}
	f.logger.Warn("primary responder failed, using fallback", zap.Error(err))
	return f.secondary.Respond(ctx, p)
}
