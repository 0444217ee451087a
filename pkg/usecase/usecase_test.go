package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model"
	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
	"github.com/seito-lab/taskfunnel/pkg/domain/types"
	"github.com/seito-lab/taskfunnel/pkg/ratelimit"
	"github.com/seito-lab/taskfunnel/pkg/repository/sqlite"
	"github.com/seito-lab/taskfunnel/pkg/usecase"
)

type sentReply struct {
	ConversationID int64
	InReplyTo      int64
	Text           string
}

type fakeNotifier struct {
	mu      sync.Mutex
	replies []sentReply
}

func (n *fakeNotifier) SendReply(ctx context.Context, conversationID, inReplyTo int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, sentReply{conversationID, inReplyTo, text})
	return nil
}

func (n *fakeNotifier) sent() []sentReply {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentReply(nil), n.replies...)
}

type fakeAudit struct {
	mu    sync.Mutex
	tasks []*model.Task
}

func (a *fakeAudit) TaskCreated(ctx context.Context, task *model.Task) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, task)
	return nil
}

type harness struct {
	uc       *usecase.UseCases
	store    interfaces.Engine
	notifier *fakeNotifier
	audit    *fakeAudit
}

func newHarness(t *testing.T, opts ...usecase.Option) *harness {
	store := sqlite.Ephemeral()
	t.Cleanup(func() {
		gt.NoError(t, store.Close())
	})

	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	base := []usecase.Option{
		usecase.WithNotifier(notifier),
		usecase.WithAuditSink(audit),
		usecase.WithBotHandle("funnelbot"),
		usecase.WithLimiter(ratelimit.New(1000, time.Minute)),
	}
	return &harness{
		uc:       usecase.New(store, append(base, opts...)...),
		store:    store,
		notifier: notifier,
		audit:    audit,
	}
}

func message(conversationID, messageID int64, text string) *chat.Message {
	return &chat.Message{
		MessageID: messageID,
		From:      &chat.User{ID: 11, Username: "alice", FirstName: "Alice"},
		Chat:      chat.Conversation{ID: conversationID, Type: "group", Title: "engineering"},
		Date:      time.Now().Unix(),
		Text:      text,
	}
}

func textUpdate(conversationID, messageID int64, text string) *chat.Update {
	return &chat.Update{UpdateID: messageID, Message: message(conversationID, messageID, text)}
}

func editUpdate(conversationID, messageID int64, text string) *chat.Update {
	return &chat.Update{UpdateID: messageID, EditedMessage: message(conversationID, messageID, text)}
}

func TestTaskCommandCreatesTaskAndReplies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 1, "/task buy coffee beans")))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Buy coffee beans")
	gt.Value(t, tasks[0].Source).Equal(types.TaskSourceChat)
	gt.Value(t, tasks[0].CreatedBy).Equal("Alice")
	gt.Value(t, tasks[0].OriginatorUsername).Equal("alice")

	replies := h.notifier.sent()
	gt.Array(t, replies).Length(1).Required()
	gt.Value(t, replies[0].ConversationID).Equal(int64(100))
	gt.Value(t, replies[0].InReplyTo).Equal(int64(1))
	gt.Value(t, replies[0].Text).Equal("Added: Buy coffee beans")

	gt.Array(t, h.audit.tasks).Length(1)
}

func TestDirectMessageSource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	update := textUpdate(55, 1, "/todo call the dentist")
	update.Message.Chat.Type = "private"
	gt.NoError(t, h.uc.HandleUpdate(ctx, update))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Source).Equal(types.TaskSourceDirect)
}

func TestForwardedMessageSilentCapture(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	update := textUpdate(100, 2, "please review the deploy checklist")
	update.Message.ForwardFrom = &chat.User{ID: 99, Username: "bob", FirstName: "Bob"}
	gt.NoError(t, h.uc.HandleUpdate(ctx, update))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Please review the deploy checklist")
	gt.Value(t, tasks[0].OriginatorUsername).Equal("bob")
	gt.Value(t, tasks[0].CreatedBy).Equal("Alice")

	// Forwarded captures never get a reply
	gt.Array(t, h.notifier.sent()).Length(0)
}

func TestPlainMentionCapturesWithoutReply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 3, "@funnelbot water the plants")))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Water the plants")
	gt.Array(t, h.notifier.sent()).Length(0)
}

func TestDashMentionRepliesWithConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 4, "@funnelbot - water the plants")))

	replies := h.notifier.sent()
	gt.Array(t, replies).Length(1).Required()
	gt.Value(t, replies[0].Text).Equal("Added: Water the plants")
}

func TestIgnoredMessagesLeaveNoTrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 5, "just chatting about lunch")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, &chat.Update{UpdateID: 6}))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(0)
	gt.Array(t, h.notifier.sent()).Length(0)
}

func TestDuplicateTitleWarnsAndSuppresses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 10, "/task Fix the login bug")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 11, "/task fix THE login BUG")))

	// The second insert is stopped before persistence
	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Fix the login bug")

	replies := h.notifier.sent()
	gt.Array(t, replies).Length(2).Required()
	gt.Value(t, replies[0].Text).Equal("Added: Fix the login bug")
	gt.Bool(t, strings.Contains(replies[1].Text, "already exists")).True()

	// Closing the original lifts the suppression
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 12, "/done 1")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 13, "/task fix the login bug")))
	open := gt.R1(h.store.GetTasks(ctx, interfaces.WithStatus(types.TaskStatusOpen))).NoError(t)
	gt.Array(t, open).Length(1)
}

func TestDuplicateTitleOnSilentPathStillSaves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 10, "/task Fix the login bug")))

	// A forwarded capture never gets a reply, so the title check does not
	// suppress it
	update := textUpdate(100, 11, "fix the login bug")
	update.Message.ForwardFrom = &chat.User{ID: 99, Username: "bob"}
	gt.NoError(t, h.uc.HandleUpdate(ctx, update))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(2)
	gt.Array(t, h.notifier.sent()).Length(1)
}

func TestDuplicateNaturalKeyDroppedSilently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// The same event delivered twice must not fail nor create two tasks.
	// The forwarded shape avoids the duplicate-title warning path.
	update := textUpdate(100, 12, "rotate the signing key")
	update.Message.ForwardFrom = &chat.User{ID: 99, Username: "bob"}
	gt.NoError(t, h.uc.HandleUpdate(ctx, update))
	gt.NoError(t, h.uc.HandleUpdate(ctx, update))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1)
}

func TestEditOfKnownMessageUpdatesTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(100, 20, "/task draft the report")))
	gt.NoError(t, h.uc.HandleUpdate(ctx, editUpdate(100, 20, "/task draft the Q3 report")))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Draft the Q3 report")
	gt.Value(t, tasks[0].RawText).Equal("/task draft the Q3 report")
}

func TestEditOfUnknownMessageInsertsTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gt.NoError(t, h.uc.HandleUpdate(ctx, editUpdate(100, 21, "/task follow up with legal")))

	tasks := gt.R1(h.store.GetTasks(ctx)).NoError(t)
	gt.Array(t, tasks).Length(1).Required()
	gt.Value(t, tasks[0].Title).Equal("Follow up with legal")
}

func TestRateLimitDropsExcessUpdates(t *testing.T) {
	h := newHarness(t, usecase.WithLimiter(ratelimit.New(5, time.Minute)))
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		update := textUpdate(100, int64(i), "/task item number "+strings.Repeat("x", i))
		gt.NoError(t, h.uc.HandleUpdate(ctx, update))
	}
	// A different conversation is unaffected
	gt.NoError(t, h.uc.HandleUpdate(ctx, textUpdate(200, 50, "/task other room")))

	limited := gt.R1(h.store.GetTasks(ctx, interfaces.WithConversation(100))).NoError(t)
	gt.Array(t, limited).Length(5)
	other := gt.R1(h.store.GetTasks(ctx, interfaces.WithConversation(200))).NoError(t)
	gt.Array(t, other).Length(1)
}

type downEngine struct {
	interfaces.Engine
}

func (e *downEngine) Initialize(ctx context.Context) error {
	return goerr.Wrap(types.ErrStorageUnavailable, "nope")
}

func TestStorageOutageDropsGracefully(t *testing.T) {
	notifier := &fakeNotifier{}
	uc := usecase.New(&downEngine{}, usecase.WithNotifier(notifier))

	gt.NoError(t, uc.HandleUpdate(context.Background(), textUpdate(100, 1, "/task anything")))
	gt.Array(t, notifier.sent()).Length(0)
}
