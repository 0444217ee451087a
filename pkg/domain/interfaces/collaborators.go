package interfaces

import (
	"context"

	"github.com/seito-lab/taskfunnel/pkg/domain/model"
)

// Notifier delivers outbound replies to the chat transport. Delivery is
// fire-and-forget from the ingestion handler's perspective: failures are
// logged by the caller and never retried synchronously.
type Notifier interface {
	SendReply(ctx context.Context, conversationID, inReplyTo int64, text string) error
}

// AuditSink receives audit events for persisted tasks
type AuditSink interface {
	TaskCreated(ctx context.Context, task *model.Task) error
}
