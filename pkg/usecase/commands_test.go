package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
)

func (h *harness) lastReply(t *testing.T) sentReply {
	replies := h.notifier.sent()
	gt.Number(t, len(replies)).Greater(0).Required()
	return replies[len(replies)-1]
}

func TestHelpAndStartCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/help")))
	gt.Bool(t, strings.Contains(h.lastReply(t).Text, "/task")).True()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/start")))
	gt.Bool(t, strings.Contains(h.lastReply(t).Text, "Hi!")).True()
}

func TestOpenTasksCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/opentask")))
	gt.Value(t, h.lastReply(t).Text).Equal("No open tasks. Enjoy the silence.")

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/task write release notes")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 3, "/task review the pull request")))
	// Tasks from other conversations must not leak into the list
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(200, 4, "/task unrelated chore")))

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 5, "/opentask")))
	text := h.lastReply(t).Text
	lines := strings.Split(text, "\n")
	gt.Array(t, lines).Length(3).Required()
	gt.Value(t, lines[0]).Equal("Open tasks (2):")
	gt.Value(t, lines[1]).Equal("1. Review the pull request")
	gt.Value(t, lines[2]).Equal("2. Write release notes")
}

func TestDoneByIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task write release notes")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/task review the pull request")))

	// Index 1 refers to the newest task, matching the /opentask listing
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 3, "/done 1")))
	gt.Value(t, h.lastReply(t).Text).Equal("Done: Review the pull request")

	open := gt.R1(h.store.GetTasks(ctx, interfaces.WithStatus(types.TaskStatusOpen))).NoError(t)
	gt.Array(t, open).Length(1).Required()
	gt.Value(t, open[0].Title).Equal("Write release notes")
}

func TestDoneByText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task write release notes")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/task review the pull request")))

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 3, "/done RELEASE")))
	gt.Value(t, h.lastReply(t).Text).Equal("Done: Write release notes")
}

func TestDoneOutOfRangeIndexIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task only one")))

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/done 5")))
	gt.Bool(t, strings.Contains(h.lastReply(t).Text, `"5"`)).True()
}

func TestDoneNonCanonicalNumberMatchesAsText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task agent 007 debrief")))

	// "007" is not a canonical index, so it matches by text instead
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/done 007")))
	gt.Value(t, h.lastReply(t).Text).Equal("Done: Agent 007 debrief")
}

func TestDoneWithoutArgumentShowsUsage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/done")))
	gt.Bool(t, strings.Contains(h.lastReply(t).Text, "Usage:")).True()
}

func TestDoneNoMatchRepliesNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task water the plants")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 2, "/done paint the fence")))
	gt.Bool(t, strings.Contains(h.lastReply(t).Text, `"paint the fence"`)).True()
}

func TestOpenTasksWithTrailingTextIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/opentask please")))
	gt.Array(t, h.notifier.sent()).Length(0)
	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(0)
}
