package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// Close safely closes an io.Closer and logs any error. Nil closers are a no-op.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}
