// Package sqlite implements the embedded storage engine on top of a local
// SQLite database, either file-backed or in-memory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

// MemoryPath selects an ephemeral in-memory database
const MemoryPath = ":memory:"

// Engine is the embedded storage engine
type Engine struct {
	path string

	mu          sync.Mutex
	db          *sql.DB
	initialized bool
}

var _ interfaces.Engine = &Engine{}

// New creates an embedded engine for the given database file. An empty path
// or MemoryPath yields an ephemeral in-memory store whose data does not
// survive process restart. No I/O happens until Initialize.
func New(path string) *Engine {
	if path == "" {
		path = MemoryPath
	}
	return &Engine{path: path}
}

// Ephemeral creates an in-memory engine whose data does not survive the
// process. Used as the failover fallback and for development mode.
func Ephemeral() *Engine {
	return New(MemoryPath)
}

// InMemory reports whether the engine holds data in memory only
func (e *Engine) InMemory() bool {
	return e.path == MemoryPath
}

// Initialize opens the database and sets up the schema. It is idempotent and
// safe for concurrent callers; the schema setup runs at most once.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	db, err := sql.Open("sqlite", e.path)
	if err != nil {
		return goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", e.path))
	}

	// A single connection keeps in-memory databases coherent and avoids
	// SQLITE_BUSY on concurrent writers for file-backed ones.
	db.SetMaxOpenConns(1)

	if err := migrateLegacyColumns(ctx, db); err != nil {
		_ = db.Close()
		return goerr.Wrap(err, "failed to migrate legacy columns")
	}

	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return goerr.Wrap(err, "failed to create schema", goerr.V("path", e.path))
	}

	e.db = db
	e.initialized = true
	return nil
}

// conn returns the open database handle or an error when Initialize has not
// completed.
func (e *Engine) conn() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "sqlite engine is not initialized")
	}
	return e.db, nil
}

// SaveTask persists a new task, assigning ID, creation time and open status
func (e *Engine) SaveTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	created := task.Clone()
	created.ID = types.NewTaskID()
	created.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	created.Status = types.TaskStatusOpen

	_, err = db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, source, created_by, created_at,
			conversation_id, conversation_title, message_id,
			originator_id, originator_username, originator_display_name,
			status, raw_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID.String(),
		created.Title,
		created.Description,
		created.Source.String(),
		created.CreatedBy,
		created.CreatedAt.UnixMicro(),
		created.ConversationID,
		nullable(created.ConversationTitle),
		created.MessageID,
		created.OriginatorID,
		nullable(created.OriginatorUsername),
		nullable(created.OriginatorDisplayName),
		created.Status.String(),
		created.RawText,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerr.Wrap(types.ErrTaskDuplicate, "natural key collision",
				goerr.V("conversation_id", created.ConversationID),
				goerr.V("message_id", created.MessageID),
			)
		}
		return nil, goerr.Wrap(err, "failed to insert task")
	}

	return created, nil
}

// UpdateTask edits the task located by its natural key; missing keys are a no-op
func (e *Engine) UpdateTask(ctx context.Context, conversationID, messageID int64, title, description, rawText string) error {
	db, err := e.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, raw_text = ?
		WHERE conversation_id = ? AND message_id = ?`,
		title, description, rawText, conversationID, messageID,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update task",
			goerr.V("conversation_id", conversationID),
			goerr.V("message_id", messageID),
		)
	}
	return nil
}

// TaskExists reports whether a task with the natural key exists
func (e *Engine) TaskExists(ctx context.Context, conversationID, messageID int64) (bool, error) {
	db, err := e.conn()
	if err != nil {
		return false, err
	}

	var one int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM tasks WHERE conversation_id = ? AND message_id = ?`,
		conversationID, messageID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to check task existence")
	}
	return true, nil
}

// FindDuplicateOpenTask returns an open task whose title matches
// case-insensitively, or nil
func (e *Engine) FindDuplicateOpenTask(ctx context.Context, title string) (*model.Task, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = ? AND lower(title) = lower(?) LIMIT 1`,
		types.TaskStatusOpen.String(), title,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find duplicate open task")
	}
	return task, nil
}

// GetTasks retrieves tasks matching the filters, newest first
func (e *Engine) GetTasks(ctx context.Context, opts ...interfaces.ListOption) ([]*model.Task, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	cfg := interfaces.BuildListConfig(opts...)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	var clauses []string
	var args []any

	if status := cfg.Status(); status != nil {
		clauses = append(clauses, `status = ?`)
		args = append(args, status.String())
	}
	if convID := cfg.ConversationID(); convID != nil {
		clauses = append(clauses, `conversation_id = ?`)
		args = append(args, *convID)
	}
	if source := cfg.Source(); source != nil {
		clauses = append(clauses, `source = ?`)
		args = append(args, source.String())
	}
	if search := cfg.Search(); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		clauses = append(clauses, `(lower(title) LIKE ? OR lower(description) LIKE ?)`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY created_at DESC, message_id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tasks")
	}
	defer func() {
		_ = rows.Close()
	}()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan task row")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate task rows")
	}
	return tasks, nil
}

// GetTaskByID retrieves a task by ID, or nil when absent
func (e *Engine) GetTaskByID(ctx context.Context, id types.TaskID) (*model.Task, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String(),
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}
	return task, nil
}

// UpdateTaskStatus sets the status of a task and reports whether a row changed
func (e *Engine) UpdateTaskStatus(ctx context.Context, id types.TaskID, status types.TaskStatus) (bool, error) {
	if !status.IsValid() {
		return false, goerr.New("invalid task status", goerr.V("status", status))
	}

	db, err := e.conn()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ?`,
		status.String(), id.String(),
	)
	if err != nil {
		return false, goerr.Wrap(err, "failed to update task status", goerr.V("id", id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// DeleteTask removes a task and reports whether one was removed
func (e *Engine) DeleteTask(ctx context.Context, id types.TaskID) (bool, error) {
	db, err := e.conn()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

// Close releases the database handle. Safe on a never-initialized engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	e.initialized = false
	if err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
