package model

import (
	"time"

	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

// Task is a unit of work extracted from an inbound chat event.
//
// The pair (ConversationID, MessageID) is the natural key of a task: it
// identifies the originating event and at most one task may exist per pair.
type Task struct {
	ID          types.TaskID
	Title       string
	Description string
	Source      types.TaskSource
	CreatedBy   string
	CreatedAt   time.Time

	ConversationID    int64
	ConversationTitle string
	MessageID         int64

	OriginatorID          int64
	OriginatorUsername    string
	OriginatorDisplayName string

	Status  types.TaskStatus
	RawText string
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
