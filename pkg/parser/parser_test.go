package parser_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
	"github.com/seito-lab/taskfunnel/pkg/parser"
)

const botHandle = "funnelbot"

func textMsg(text string) *chat.Message {
	return &chat.Message{
		MessageID: 1,
		Chat:      chat.Conversation{ID: 10, Type: "group"},
		Text:      text,
	}
}

func forwardedMsg(text, caption string, photos int) *chat.Message {
	msg := &chat.Message{
		MessageID:   2,
		Chat:        chat.Conversation{ID: 10, Type: "group"},
		Text:        text,
		Caption:     caption,
		ForwardFrom: &chat.User{ID: 99, Username: "someone"},
	}
	for i := 0; i < photos; i++ {
		msg.Photos = append(msg.Photos, chat.PhotoSize{FileID: "f", Width: 100, Height: 100})
	}
	return msg
}

func TestClassifyTaskCommand(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		title string
		desc  string
	}{
		{"task", "/task buy milk", "Buy milk", "buy milk"},
		{"todo", "/todo buy milk", "Buy milk", "buy milk"},
		{"uppercase", "/TASK buy milk", "Buy milk", "buy milk"},
		{"with handle", "/task@funnelbot buy milk", "Buy milk", "buy milk"},
		{"other bot handle", "/task@otherbot buy milk", "Buy milk", "buy milk"},
		{"leading dash stripped", "/task - fix the bug", "Fix the bug", "- fix the bug"},
		{"multiline remainder", "/task fix the bug\nsee stack trace", "Fix the bug\nsee stack trace", "fix the bug\nsee stack trace"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := parser.Classify(textMsg(tc.text), botHandle)
			gt.Value(t, res.Kind).Equal(parser.KindNewTask)
			gt.Value(t, res.Title).Equal(tc.title)
			gt.Value(t, res.Description).Equal(tc.desc)
		})
	}
}

func TestClassifyTaskCommandWithoutRemainder(t *testing.T) {
	for _, text := range []string{"/task", "/todo", "/task@funnelbot", "/task   "} {
		res := parser.Classify(textMsg(text), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	}
}

func TestClassifyMention(t *testing.T) {
	t.Run("plain whitespace", func(t *testing.T) {
		res := parser.Classify(textMsg("@funnelbot buy milk"), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
		gt.Value(t, res.Title).Equal("Buy milk")
		gt.Value(t, res.Description).Equal("buy milk")
	})

	t.Run("dash separator", func(t *testing.T) {
		res := parser.Classify(textMsg("@funnelbot - buy milk"), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
		gt.Value(t, res.Title).Equal("Buy milk")
	})

	t.Run("case-insensitive handle", func(t *testing.T) {
		res := parser.Classify(textMsg("@FunnelBot buy milk"), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
	})

	t.Run("bare mention", func(t *testing.T) {
		res := parser.Classify(textMsg("@funnelbot"), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	})

	t.Run("longer handle does not match", func(t *testing.T) {
		res := parser.Classify(textMsg("@funnelbotty buy milk"), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	})

	t.Run("unknown bot handle skips mention rule", func(t *testing.T) {
		res := parser.Classify(textMsg("@funnelbot buy milk"), "")
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	})
}

func TestClassifyUtilityCommands(t *testing.T) {
	cases := []struct {
		name string
		text string
		cmd  parser.Command
		arg  string
	}{
		{"opentask", "/opentask", parser.CommandOpenTasks, ""},
		{"opentask with handle", "/opentask@funnelbot", parser.CommandOpenTasks, ""},
		{"opentask uppercase", "/OpenTask", parser.CommandOpenTasks, ""},
		{"done numeric", "/done 3", parser.CommandDone, "3"},
		{"done text", "/done buy milk", parser.CommandDone, "buy milk"},
		{"done with handle", "/done@funnelbot 2", parser.CommandDone, "2"},
		{"done without arg", "/done", parser.CommandDone, ""},
		{"help", "/help", parser.CommandHelp, ""},
		{"start", "/start@funnelbot", parser.CommandStart, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := parser.Classify(textMsg(tc.text), botHandle)
			gt.Value(t, res.Kind).Equal(parser.KindCommand)
			gt.Value(t, res.Command).Equal(tc.cmd)
			gt.Value(t, res.Arg).Equal(tc.arg)
		})
	}
}

func TestClassifyOpenTaskRejectsTrailingText(t *testing.T) {
	res := parser.Classify(textMsg("/opentask please"), botHandle)
	gt.Value(t, res.Kind).Equal(parser.KindIgnore)
}

func TestClassifyForwarded(t *testing.T) {
	t.Run("forwarded text wins over command rules", func(t *testing.T) {
		res := parser.Classify(forwardedMsg("/help", "", 0), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
		gt.Value(t, res.Title).Equal("Help")
		gt.Value(t, res.Description).Equal("/help")
	})

	t.Run("caption used when text is blank", func(t *testing.T) {
		res := parser.Classify(forwardedMsg("", "release notes draft", 1), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
		gt.Value(t, res.Title).Equal("Release notes draft")
		gt.Value(t, res.Description).Equal("release notes draft")
	})

	t.Run("photo without caption", func(t *testing.T) {
		res := parser.Classify(forwardedMsg("", "", 2), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindNewTask)
		gt.Value(t, res.Title).Equal(parser.ForwardedImageTitle)
		gt.Value(t, res.Description).Equal(parser.ForwardedImageTitle)
	})

	t.Run("nothing usable", func(t *testing.T) {
		res := parser.Classify(forwardedMsg("", "", 0), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	})
}

func TestClassifyIgnoresChatter(t *testing.T) {
	for _, text := range []string{"hello there", "", "   ", "/unknown", "task buy milk"} {
		res := parser.Classify(textMsg(text), botHandle)
		gt.Value(t, res.Kind).Equal(parser.KindIgnore)
	}
}

func TestShouldReply(t *testing.T) {
	cases := []struct {
		name string
		msg  *chat.Message
		want bool
	}{
		{"task command", textMsg("/task buy milk"), true},
		{"todo with handle", textMsg("/todo@funnelbot buy milk"), true},
		{"dash mention", textMsg("@funnelbot - buy milk"), true},
		{"plain mention", textMsg("@funnelbot buy milk"), false},
		{"forwarded task command", forwardedMsg("/task buy milk", "", 0), false},
		{"forwarded plain text", forwardedMsg("remember this", "", 0), false},
		{"chatter", textMsg("hello"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, parser.ShouldReply(tc.msg, botHandle)).Equal(tc.want)
		})
	}
}

func TestParseDoneRef(t *testing.T) {
	gt.Value(t, parser.ParseDoneRef("3")).Equal(parser.DoneRef{Index: 3})
	gt.Bool(t, parser.ParseDoneRef("3").IsIndex()).True()

	gt.Value(t, parser.ParseDoneRef("007")).Equal(parser.DoneRef{Query: "007"})
	gt.Value(t, parser.ParseDoneRef("-1")).Equal(parser.DoneRef{Query: "-1"})
	gt.Value(t, parser.ParseDoneRef("+2")).Equal(parser.DoneRef{Query: "+2"})
	gt.Value(t, parser.ParseDoneRef("fix bug")).Equal(parser.DoneRef{Query: "fix bug"})
	gt.Bool(t, parser.ParseDoneRef("fix bug").IsIndex()).False()
}
