package sqlite

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
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
	created_at              INTEGER NOT NULL,
	conversation_id         INTEGER NOT NULL,
	conversation_title      TEXT,
	message_id              INTEGER NOT NULL,
	originator_id           INTEGER NOT NULL DEFAULT 0,
	originator_username     TEXT,
	originator_display_name TEXT,
	status                  TEXT NOT NULL DEFAULT 'open',
	raw_text                TEXT NOT NULL DEFAULT '',
	UNIQUE (conversation_id, message_id)
)`

var indexStmts = []string{
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_conversation ON tasks (conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_source ON tasks (source)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_title ON tasks (title)`,
}

// legacyColumns are columns added after the first schema release. They are
// applied as additive ALTERs to databases created before the column existed,
// before table creation is asserted.
var legacyColumns = map[string]string{
	"conversation_title":      `ALTER TABLE tasks ADD COLUMN conversation_title TEXT`,
	"originator_username":     `ALTER TABLE tasks ADD COLUMN originator_username TEXT`,
	"originator_display_name": `ALTER TABLE tasks ADD COLUMN originator_display_name TEXT`,
	"raw_text":                `ALTER TABLE tasks ADD COLUMN raw_text TEXT NOT NULL DEFAULT ''`,
}

func createSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		return goerr.Wrap(err, "failed to create tasks table")
	}
	for _, stmt := range indexStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to create index", goerr.V("stmt", stmt))
		}
	}
	return nil
}

// migrateLegacyColumns adds columns missing from pre-existing databases.
// Columns that already exist are skipped; a database without the tasks table
// needs no migration (the table is created with the full schema afterwards).
func migrateLegacyColumns(ctx context.Context, db *sql.DB) error {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tasks'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to inspect schema")
	}

	existing, err := tableColumns(ctx, db)
	if err != nil {
		return err
	}

	for column, stmt := range legacyColumns {
		if existing[column] {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to add legacy column", goerr.V("column", column))
		}
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(tasks)`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read table info")
	}
	defer func() {
		_ = rows.Close()
	}()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, goerr.Wrap(err, "failed to scan table info")
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate table info")
	}
	return columns, nil
}
