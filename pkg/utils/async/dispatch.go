package async

import (
	"context"

	"github.com/seito-lab/taskfunnel/pkg/utils/errutil"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// Dispatch executes a handler asynchronously in a new goroutine, detached
// from the caller's context lifetime but keeping its logger. Errors and
// panics are logged, never propagated; the webhook transport must already
// have been acknowledged by the time the handler runs.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}
