package types

import (
	"fmt"

	"github.com/google/uuid"
)

// TaskID is the opaque identifier of a task, assigned once at creation.
type TaskID string

// NewTaskID generates a new random task ID.
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// String returns the string representation of the task ID
func (x TaskID) String() string {
	return string(x)
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// AllTaskStatuses returns all valid task statuses
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusOpen,
		TaskStatusInProgress,
		TaskStatusDone,
	}
}

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen,
		TaskStatusInProgress,
		TaskStatusDone:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus parses a string into a TaskStatus
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// TaskSource indicates where a task originated from
type TaskSource string

const (
	// TaskSourceChat marks tasks captured from a group conversation
	TaskSourceChat TaskSource = "chat"
	// TaskSourceDirect marks tasks captured from a direct conversation with the bot
	TaskSourceDirect TaskSource = "direct"
)

// IsValid checks if the task source is valid
func (s TaskSource) IsValid() bool {
	switch s {
	case TaskSourceChat, TaskSourceDirect:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task source
func (s TaskSource) String() string {
	return string(s)
}
