package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
	"github.com/seito-lab/taskfunnel/pkg/parser"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

func (u *UseCases) handleCommand(ctx context.Context, msg *chat.Message, result parser.Result) error {
	switch result.Command {
	case parser.CommandHelp:
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.Help)
	case parser.CommandStart:
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.Start)
	case parser.CommandOpenTasks:
		u.handleOpenTasks(ctx, msg)
	case parser.CommandDone:
		u.handleDone(ctx, msg, result.Arg)
	}
	return nil
}

// openTasks lists the conversation's open tasks in the order /opentask
// presents them, which is also the order /done indexes into.
func (u *UseCases) openTasks(ctx context.Context, conversationID int64) ([]*model.Task, error) {
	return u.store.GetTasks(ctx,
		interfaces.WithStatus(types.TaskStatusOpen),
		interfaces.WithConversation(conversationID),
	)
}

func (u *UseCases) handleOpenTasks(ctx context.Context, msg *chat.Message) {
	tasks, err := u.openTasks(ctx, msg.Chat.ID)
	if err != nil {
		logging.From(ctx).Error("failed to list open tasks", "error", err.Error())
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.Failure)
		return
	}
	if len(tasks) == 0 {
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.OpenEmpty)
		return
	}

	var b strings.Builder
	b.WriteString(u.replies.RenderOpenHeader(len(tasks)))
	for i, task := range tasks {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(task.Title)
	}
	u.reply(ctx, msg.Chat.ID, msg.MessageID, b.String())
}

func (u *UseCases) handleDone(ctx context.Context, msg *chat.Message, arg string) {
	logger := logging.From(ctx)

	arg = strings.TrimSpace(arg)
	if arg == "" {
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.DoneUsage)
		return
	}

	tasks, err := u.openTasks(ctx, msg.Chat.ID)
	if err != nil {
		logger.Error("failed to list open tasks for /done", "error", err.Error())
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.Failure)
		return
	}

	target := resolveDoneTarget(tasks, parser.ParseDoneRef(arg))
	if target == nil {
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.RenderDoneNotFound(arg))
		return
	}

	changed, err := u.store.UpdateTaskStatus(ctx, target.ID, types.TaskStatusDone)
	if err != nil {
		logger.Error("failed to close task", "task_id", target.ID, "error", err.Error())
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.Failure)
		return
	}
	if !changed {
		// The task vanished between listing and closing
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.RenderDoneNotFound(arg))
		return
	}

	logger.Info("closed task", "task_id", target.ID, "title", target.Title)
	u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.RenderDoneOK(target.Title))
}

// resolveDoneTarget picks the task a /done argument refers to: a 1-based
// index into the open-task list, or the first task whose title or description
// contains the query case-insensitively.
func resolveDoneTarget(tasks []*model.Task, ref parser.DoneRef) *model.Task {
	if ref.IsIndex() {
		if ref.Index < 1 || ref.Index > len(tasks) {
			return nil
		}
		return tasks[ref.Index-1]
	}

	query := strings.ToLower(ref.Query)
	for _, task := range tasks {
		if strings.Contains(strings.ToLower(task.Title), query) ||
			strings.Contains(strings.ToLower(task.Description), query) {
			return task
		}
	}
	return nil
}
