package services

import (
	"context"
	"fmt"

	"fintrack/internal/logger"
)

// runHook executes a post-commit side effect. The primary write has already
// committed, so a failure or panic here is logged and never returned.
func runHook(ctx context.Context, name string, fn func(ctx context.Context) error, keysAndValues ...interface{}) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Get().Errorw("post-commit hook panicked",
				append([]interface{}{"hook", name, "panic", fmt.Sprint(r)}, keysAndValues...)...)
		}
	}()

	if err := fn(ctx); err != nil {
		logger.Get().Warnw("post-commit hook failed",
			append([]interface{}{"hook", name, "error", err}, keysAndValues...)...)
	}
}
