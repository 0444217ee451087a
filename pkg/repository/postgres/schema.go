package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

const taskColumns = `id, title, description, source, created_by, created_at,
	conversation_id, conversation_title, message_id,
	originator_id, originator_username, originator_display_name,
	status, raw_text`

const createTableStmt = `
CREATE TABLE IF NOT EXISTS tasks (
	id                      TEXT PRIMARY KEY,
	title                   TEXT NOT NULL,
	description             TEXT NOT NULL DEFAULT '',
	source                  TEXT NOT NULL,
	created_by              TEXT NOT NULL DEFAULT '',
	created_at              TIMESTAMPTZ NOT NULL,
	conversation_id         BIGINT NOT NULL,
	conversation_title      TEXT,
	message_id              BIGINT NOT NULL,
	originator_id           BIGINT NOT NULL DEFAULT 0,
	originator_username     TEXT,
	originator_display_name TEXT,
	status                  TEXT NOT NULL DEFAULT 'open',
	raw_text                TEXT NOT NULL DEFAULT '',
	UNIQUE (conversation_id, message_id)
)`

// legacyColumnStmts mirror the embedded engine's additive migration: columns
// introduced after the first schema release are created lazily and existing
// ones are skipped.
var legacyColumnStmts = []string{
	`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS conversation_title TEXT`,
	`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS originator_username TEXT`,
	`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS originator_display_name TEXT`,
	`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS raw_text TEXT NOT NULL DEFAULT ''`,
}

var indexStmts = []string{
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_conversation ON tasks (conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_source ON tasks (source)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_title ON tasks (title)`,
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, createTableStmt); err != nil {
		return goerr.Wrap(err, "failed to create tasks table")
	}
	for _, stmt := range legacyColumnStmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to add legacy column", goerr.V("stmt", stmt))
		}
	}
	for _, stmt := range indexStmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to create index", goerr.V("stmt", stmt))
		}
	}
	return nil
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task              model.Task
		id, source        string
		status            string
		createdAt         time.Time
		conversationTitle sql.NullString
		originatorUser    sql.NullString
		originatorDisplay sql.NullString
	)

	err := row.Scan(
		&id,
		&task.Title,
		&task.Description,
		&source,
		&task.CreatedBy,
		&createdAt,
		&task.ConversationID,
		&conversationTitle,
		&task.MessageID,
		&task.OriginatorID,
		&originatorUser,
		&originatorDisplay,
		&status,
		&task.RawText,
	)
	if err != nil {
		return nil, err
	}

	task.ID = types.TaskID(id)
	task.Source = types.TaskSource(source)
	task.Status = types.TaskStatus(status)
	task.CreatedAt = createdAt.UTC()
	task.ConversationTitle = conversationTitle.String
	task.OriginatorUsername = originatorUser.String
	task.OriginatorDisplayName = originatorDisplay.String
	return &task, nil
}
