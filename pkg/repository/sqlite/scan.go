package sqlite

import (
	"database/sql"
	"time"

	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task              model.Task
		id, source        string
		status            string
		createdAt         int64
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
	task.CreatedAt = time.UnixMicro(createdAt).UTC()
	task.ConversationTitle = conversationTitle.String
	task.OriginatorUsername = originatorUser.String
	task.OriginatorDisplayName = originatorDisplay.String
	return &task, nil
}
