package interfaces

import (
	"context"

	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

// Engine defines the persistence contract for tasks. It is implemented by
// the embedded SQLite engine, the networked Postgres engine, and the
// failover controller that wraps both.
type Engine interface {
	// Initialize prepares the underlying store (connections, schema,
	// migrations). It is idempotent and safe for concurrent callers.
	Initialize(ctx context.Context) error

	// SaveTask persists a new task. ID, CreatedAt and Status are assigned
	// by the engine. Returns types.ErrTaskDuplicate when a task with the
	// same (conversation_id, message_id) natural key already exists.
	SaveTask(ctx context.Context, task *model.Task) (*model.Task, error)

	// UpdateTask edits title, description and raw text of the task located
	// by its natural key. Missing keys are a no-op, not an error.
	UpdateTask(ctx context.Context, conversationID, messageID int64, title, description, rawText string) error

	// TaskExists reports whether a task with the natural key exists
	TaskExists(ctx context.Context, conversationID, messageID int64) (bool, error)

	// FindDuplicateOpenTask returns an open task whose title matches the
	// given title case-insensitively, or nil when none exists.
	FindDuplicateOpenTask(ctx context.Context, title string) (*model.Task, error)

	// GetTasks retrieves tasks matching the given filters, newest first
	GetTasks(ctx context.Context, opts ...ListOption) ([]*model.Task, error)

	// GetTaskByID retrieves a task by its ID, or nil when none exists
	GetTaskByID(ctx context.Context, id types.TaskID) (*model.Task, error)

	// UpdateTaskStatus sets the status of a task and reports whether a
	// stored task was actually changed.
	UpdateTaskStatus(ctx context.Context, id types.TaskID, status types.TaskStatus) (bool, error)

	// DeleteTask removes a task and reports whether one was removed
	DeleteTask(ctx context.Context, id types.TaskID) (bool, error)

	// Close releases underlying resources. Safe to call on an engine that
	// was never initialized.
	Close() error
}
