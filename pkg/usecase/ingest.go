package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
	"github.com/seito-lab/taskfunnel/pkg/parser"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// HandleUpdate runs one inbound chat update through the ingestion pipeline.
// Dropped updates (rate limited, unclassifiable, storage outage) return nil:
// the transport has already acknowledged the event and there is nobody to
// propagate the error to.
func (u *UseCases) HandleUpdate(ctx context.Context, update *chat.Update) error {
	msg := update.Msg()
	if msg == nil {
		return nil
	}

	logger := logging.From(ctx).With(
		"conversation_id", msg.Chat.ID,
		"message_id", msg.MessageID,
	)
	ctx = logging.With(ctx, logger)

	if !u.limiter.Allow(msg.Chat.ID) {
		logger.Debug("rate limit exceeded, dropping update")
		return nil
	}

	if err := u.store.Initialize(ctx); err != nil {
		if u.storageLogs.Allow("storage_init") {
			logger.Error("storage is unavailable, dropping update", "error", err.Error())
		}
		return nil
	}

	result := parser.Classify(msg, u.botHandle)
	switch result.Kind {
	case parser.KindCommand:
		return u.handleCommand(ctx, msg, result)
	case parser.KindNewTask:
		return u.handleTask(ctx, update, msg, result)
	default:
		return nil
	}
}

func (u *UseCases) handleTask(ctx context.Context, update *chat.Update, msg *chat.Message, result parser.Result) error {
	logger := logging.From(ctx)

	// Edits of a message we already captured update the existing task in
	// place. Edits of a message we never saw fall through to a fresh insert.
	if update.IsEdit() {
		exists, err := u.store.TaskExists(ctx, msg.Chat.ID, msg.MessageID)
		if err != nil {
			return goerr.Wrap(err, "failed to check task existence")
		}
		if exists {
			if err := u.store.UpdateTask(ctx, msg.Chat.ID, msg.MessageID, result.Title, result.Description, msg.TextOrCaption()); err != nil {
				return goerr.Wrap(err, "failed to update edited task")
			}
			logger.Info("updated task from edited message", "title", result.Title)
			return nil
		}
	}

	// Best-effort duplicate-title suppression: when the sender expects a
	// reply, an open task with the same title stops the insert. Silent
	// captures (forwards, plain mentions) proceed regardless.
	if dup, err := u.store.FindDuplicateOpenTask(ctx, result.Title); err != nil {
		logger.Warn("duplicate check failed, continuing", "error", err.Error())
	} else if dup != nil && parser.ShouldReply(msg, u.botHandle) {
		logger.Info("suppressed duplicate task", "title", result.Title, "existing_task_id", dup.ID)
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.RenderDuplicate(dup.Title))
		return nil
	}

	task := buildTask(msg, result)
	saved, err := u.store.SaveTask(ctx, task)
	if err != nil {
		if errors.Is(err, types.ErrTaskDuplicate) {
			// Concurrent delivery of the same event: the first insert won
			logger.Debug("task already captured, dropping duplicate event")
			return nil
		}
		return goerr.Wrap(err, "failed to save task", goerr.V("title", task.Title))
	}
	logger.Info("captured task", "task_id", saved.ID, "title", saved.Title, "source", saved.Source)

	if u.audit != nil {
		if err := u.audit.TaskCreated(ctx, saved); err != nil {
			logger.Warn("audit sink failed", "error", err.Error())
		}
	}

	if parser.ShouldReply(msg, u.botHandle) {
		u.reply(ctx, msg.Chat.ID, msg.MessageID, u.replies.RenderTaskCreated(saved.Title))
	}
	return nil
}

func buildTask(msg *chat.Message, result parser.Result) *model.Task {
	source := types.TaskSourceChat
	if msg.Chat.IsDirect() {
		source = types.TaskSourceDirect
	}

	task := &model.Task{
		Title:             result.Title,
		Description:       result.Description,
		Source:            source,
		CreatedBy:         msg.From.DisplayName(),
		ConversationID:    msg.Chat.ID,
		ConversationTitle: msg.Chat.Title,
		MessageID:         msg.MessageID,
		RawText:           msg.TextOrCaption(),
	}

	// For forwarded messages the originator is the original author, not the
	// person who forwarded it.
	originator := msg.From
	if msg.IsForwarded() && msg.ForwardFrom != nil {
		originator = msg.ForwardFrom
	}
	if originator != nil {
		task.OriginatorID = originator.ID
		task.OriginatorUsername = originator.Username
		task.OriginatorDisplayName = originator.DisplayName()
	}
	return task
}

// reply sends a response back to the conversation. Delivery failures are
// logged and swallowed: a missing reply must never fail ingestion.
func (u *UseCases) reply(ctx context.Context, conversationID, inReplyTo int64, text string) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.SendReply(ctx, conversationID, inReplyTo, text); err != nil {
		logging.From(ctx).Warn("failed to send reply", "error", err.Error())
	}
}
