// Package audit provides a log-backed audit sink for persisted tasks.
package audit

import (
	"context"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// Logger emits one structured log record per created task. It is the default
// audit sink when no external receiver is configured.
type Logger struct{}

var _ interfaces.AuditSink = &Logger{}

// New creates a log-backed audit sink
func New() *Logger {
	return &Logger{}
}

// TaskCreated records the creation event
func (l *Logger) TaskCreated(ctx context.Context, task *model.Task) error {
	logging.From(ctx).Info("audit: task created",
		"task_id", task.ID,
		"title", task.Title,
		"source", task.Source,
		"conversation_id", task.ConversationID,
		"message_id", task.MessageID,
		"created_by", task.CreatedBy,
	)
	return nil
}
