package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared across storage engines and the ingestion layer
var (
	// ErrTaskDuplicate indicates a natural-key collision: a task with the
	// same (conversation_id, message_id) pair already exists.
	ErrTaskDuplicate = goerr.New("task already exists for this message")

	// ErrTaskNotFound indicates the requested task does not exist
	ErrTaskNotFound = goerr.New("task not found")

	// ErrStorageUnavailable indicates the storage engine could not be
	// initialized or reached
	ErrStorageUnavailable = goerr.New("storage unavailable")

	// ErrInitCooldown indicates an engine refused to retry initialization
	// because a previous attempt failed within the cooldown window
	ErrInitCooldown = goerr.New("initialization retry is in cooldown")
)
