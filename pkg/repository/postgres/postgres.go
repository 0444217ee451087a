// Package postgres implements the networked storage engine on top of a
// remote PostgreSQL service accessed through a connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

const (
	// DefaultConnectTimeout bounds the initial connectivity probe so a
	// stalled server cannot block ingestion indefinitely
	DefaultConnectTimeout = 10 * time.Second

	// DefaultRetryCooldown is how long the engine refuses to re-attempt
	// initialization after a failed attempt
	DefaultRetryCooldown = 30 * time.Second

	// uniqueViolationCode is the PostgreSQL error code for unique
	// constraint violations
	uniqueViolationCode = "23505"
)

// Config holds the connection parameters for the remote service
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the config as a pgx connection string
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// Engine is the networked storage engine
type Engine struct {
	cfg            Config
	connectTimeout time.Duration
	retryCooldown  time.Duration
	now            func() time.Time

	mu          sync.Mutex
	pool        *pgxpool.Pool
	initialized bool
	lastFailure time.Time
}

var _ interfaces.Engine = &Engine{}

// Option is a functional option for Engine configuration
type Option func(*Engine)

// WithConnectTimeout overrides the connectivity probe timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.connectTimeout = d
		}
	}
}

// WithRetryCooldown overrides the failed-initialization cooldown window
func WithRetryCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retryCooldown = d
		}
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a networked engine. No connection is made until Initialize.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:            cfg,
		connectTimeout: DefaultConnectTimeout,
		retryCooldown:  DefaultRetryCooldown,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize creates the connection pool, probes connectivity and sets up
// the schema. It is idempotent and safe for concurrent callers. After a
// failed attempt the engine refuses to retry until the cooldown elapses,
// returning a descriptive error immediately instead of re-dialing on every
// call.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	if !e.lastFailure.IsZero() {
		elapsed := e.now().Sub(e.lastFailure)
		if elapsed < e.retryCooldown {
			return goerr.Wrap(types.ErrInitCooldown, "postgres initialization failed recently",
				goerr.V("retry_in", (e.retryCooldown - elapsed).String()),
			)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(e.cfg.DSN())
	if err != nil {
		e.lastFailure = e.now()
		return goerr.Wrap(err, "invalid postgres configuration",
			goerr.V("host", e.cfg.Host), goerr.V("database", e.cfg.Database),
		)
	}
	poolCfg.ConnConfig.ConnectTimeout = e.connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		e.lastFailure = e.now()
		return goerr.Wrap(err, "failed to create postgres pool")
	}

	// Probe connectivity before touching the schema. On failure the pool
	// must be released so no handles leak.
	pingCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		e.lastFailure = e.now()
		return goerr.Wrap(types.ErrStorageUnavailable, "postgres connectivity probe failed",
			goerr.V("host", e.cfg.Host), goerr.V("port", e.cfg.Port), goerr.V("cause", err.Error()),
		)
	}

	if err := createSchema(ctx, pool); err != nil {
		pool.Close()
		e.lastFailure = e.now()
		return goerr.Wrap(err, "failed to set up postgres schema")
	}

	e.pool = pool
	e.initialized = true
	e.lastFailure = time.Time{}
	return nil
}

func (e *Engine) conn() (*pgxpool.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "postgres engine is not initialized")
	}
	return e.pool, nil
}

// SaveTask persists a new task, assigning ID, creation time and open status
func (e *Engine) SaveTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	pool, err := e.conn()
	if err != nil {
		return nil, err
	}

	created := task.Clone()
	created.ID = types.NewTaskID()
	created.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	created.Status = types.TaskStatusOpen

	_, err = pool.Exec(ctx, `
		INSERT INTO tasks (
			id, title, description, source, created_by, created_at,
			conversation_id, conversation_title, message_id,
			originator_id, originator_username, originator_display_name,
			status, raw_text
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		created.ID.String(),
		created.Title,
		created.Description,
		created.Source.String(),
		created.CreatedBy,
		created.CreatedAt,
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
	pool, err := e.conn()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		UPDATE tasks SET title = $1, description = $2, raw_text = $3
		WHERE conversation_id = $4 AND message_id = $5`,
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
	pool, err := e.conn()
	if err != nil {
		return false, err
	}

	var exists bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE conversation_id = $1 AND message_id = $2)`,
		conversationID, messageID,
	).Scan(&exists)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check task existence")
	}
	return exists, nil
}

// FindDuplicateOpenTask returns an open task whose title matches
// case-insensitively, or nil
func (e *Engine) FindDuplicateOpenTask(ctx context.Context, title string) (*model.Task, error) {
	pool, err := e.conn()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = $1 AND lower(title) = lower($2) LIMIT 1`,
		types.TaskStatusOpen.String(), title,
	)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find duplicate open task")
	}
	return task, nil
}

// GetTasks retrieves tasks matching the filters, newest first
func (e *Engine) GetTasks(ctx context.Context, opts ...interfaces.ListOption) ([]*model.Task, error) {
	pool, err := e.conn()
	if err != nil {
		return nil, err
	}

	cfg := interfaces.BuildListConfig(opts...)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	var clauses []string
	var args []any

	if status := cfg.Status(); status != nil {
		args = append(args, status.String())
		clauses = append(clauses, fmt.Sprintf(`status = $%d`, len(args)))
	}
	if convID := cfg.ConversationID(); convID != nil {
		args = append(args, *convID)
		clauses = append(clauses, fmt.Sprintf(`conversation_id = $%d`, len(args)))
	}
	if source := cfg.Source(); source != nil {
		args = append(args, source.String())
		clauses = append(clauses, fmt.Sprintf(`source = $%d`, len(args)))
	}
	if search := cfg.Search(); search != "" {
		args = append(args, "%"+search+"%")
		clauses = append(clauses, fmt.Sprintf(`(title ILIKE $%d OR description ILIKE $%d)`, len(args), len(args)))
	}

	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY created_at DESC, message_id DESC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tasks")
	}
	defer rows.Close()

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
	pool, err := e.conn()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id.String())
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
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

	pool, err := e.conn()
	if err != nil {
		return false, err
	}

	tag, err := pool.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, status.String(), id.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to update task status", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteTask removes a task and reports whether one was removed
func (e *Engine) DeleteTask(ctx context.Context, id types.TaskID) (bool, error) {
	pool, err := e.conn()
	if err != nil {
		return false, err
	}

	tag, err := pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}

// Close releases the connection pool. Safe on a never-initialized engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool == nil {
		return nil
	}
	e.pool.Close()
	e.pool = nil
	e.initialized = false
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
