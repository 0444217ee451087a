// Package parser classifies inbound chat messages into new tasks, recognized
// commands, or ignorable noise. Classification is pure: an ordered chain of
// typed matchers is evaluated in sequence and the first match wins, so
// precedence is explicit and testable.
package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seito-lab/taskfunnel/pkg/domain/model/chat"
)

// ForwardedImageTitle is the placeholder used for forwarded photo-only messages
const ForwardedImageTitle = "[Forwarded Image]"

// Kind is the classification outcome
type Kind string

const (
	KindIgnore  Kind = "ignore"
	KindNewTask Kind = "new_task"
	KindCommand Kind = "command"
)

// Command identifies a recognized utility command
type Command string

const (
	CommandOpenTasks Command = "opentask"
	CommandDone      Command = "done"
	CommandHelp      Command = "help"
	CommandStart     Command = "start"
)

// Result is the outcome of classifying one message
type Result struct {
	Kind Kind

	// Title and Description are set when Kind is KindNewTask
	Title       string
	Description string

	// Command and Arg are set when Kind is KindCommand
	Command Command
	Arg     string
}

var ignore = Result{Kind: KindIgnore}

var (
	taskCmdRe     = regexp.MustCompile(`(?i)^/(?:task|todo)(?:@\S+)?\s+(\S[\s\S]*)$`)
	bareTaskCmdRe = regexp.MustCompile(`(?i)^/(?:task|todo)(?:@\S+)?$`)
	openTasksRe   = regexp.MustCompile(`(?i)^/opentask(?:@\S+)?$`)
	doneRe        = regexp.MustCompile(`(?i)^/done(?:@\S+)?(?:\s+([\s\S]*\S))?\s*$`)
	helpRe        = regexp.MustCompile(`(?i)^/help(?:@\S+)?(?:\s[\s\S]*)?$`)
	startRe       = regexp.MustCompile(`(?i)^/start(?:@\S+)?(?:\s[\s\S]*)?$`)

	mentionDashRe  = regexp.MustCompile(`^\s*[-–—]+\s*(\S[\s\S]*)$`)
	mentionSpaceRe = regexp.MustCompile(`^\s+(\S[\s\S]*)$`)
)

// matcher inspects a message and either claims it with a Result or passes
type matcher func(msg *chat.Message, botHandle string) (Result, bool)

// matchers in precedence order; the first one that claims the message wins
var matchers = []matcher{
	matchForwarded,
	matchTaskCommand,
	matchMention,
	matchUtilityCommand,
}

// Classify turns a raw inbound message into a new task, a recognized command,
// or an ignore outcome. botHandle may be empty when the bot's own handle is
// unknown; mention matching is skipped in that case.
func Classify(msg *chat.Message, botHandle string) Result {
	if msg == nil {
		return ignore
	}
	for _, match := range matchers {
		if res, ok := match(msg, botHandle); ok {
			return res
		}
	}
	return ignore
}

// matchForwarded claims every message carrying forwarding provenance.
// Forwarded text never matches command rules, even when it looks like one.
func matchForwarded(msg *chat.Message, _ string) (Result, bool) {
	if !msg.IsForwarded() {
		return ignore, false
	}

	if text := strings.TrimSpace(msg.TextOrCaption()); text != "" {
		return Result{
			Kind:        KindNewTask,
			Title:       ExtractCleanTitle(text),
			Description: text,
		}, true
	}

	if msg.HasPhoto() {
		return Result{
			Kind:        KindNewTask,
			Title:       ForwardedImageTitle,
			Description: ForwardedImageTitle,
		}, true
	}

	return ignore, true
}

// matchTaskCommand handles /task and /todo, with an optional @handle suffix
// for multi-bot group addressing. A command without a remainder is claimed
// as ignore, not an error.
func matchTaskCommand(msg *chat.Message, _ string) (Result, bool) {
	text := strings.TrimSpace(msg.Text)

	if m := taskCmdRe.FindStringSubmatch(text); m != nil {
		remainder := m[1]
		return Result{
			Kind:        KindNewTask,
			Title:       ExtractCleanTitle(remainder),
			Description: remainder,
		}, true
	}

	if bareTaskCmdRe.MatchString(text) {
		return ignore, true
	}

	return ignore, false
}

// matchMention handles "@botHandle <text>" and "@botHandle - <text>".
// The handle match is case-insensitive.
func matchMention(msg *chat.Message, botHandle string) (Result, bool) {
	if botHandle == "" {
		return ignore, false
	}

	text := strings.TrimSpace(msg.Text)
	rest, ok := stripMention(text, botHandle)
	if !ok {
		return ignore, false
	}

	var remainder string
	if m := mentionDashRe.FindStringSubmatch(rest); m != nil {
		remainder = m[1]
	} else if m := mentionSpaceRe.FindStringSubmatch(rest); m != nil {
		remainder = m[1]
	} else {
		return ignore, false
	}

	return Result{
		Kind:        KindNewTask,
		Title:       ExtractCleanTitle(remainder),
		Description: remainder,
	}, true
}

// matchUtilityCommand handles /opentask, /done, /help and /start. Only
// /opentask is strict about trailing text: anything after it invalidates
// the match.
func matchUtilityCommand(msg *chat.Message, _ string) (Result, bool) {
	text := strings.TrimSpace(msg.Text)

	if openTasksRe.MatchString(text) {
		return Result{Kind: KindCommand, Command: CommandOpenTasks}, true
	}

	if m := doneRe.FindStringSubmatch(text); m != nil {
		return Result{Kind: KindCommand, Command: CommandDone, Arg: m[1]}, true
	}

	if helpRe.MatchString(text) {
		return Result{Kind: KindCommand, Command: CommandHelp}, true
	}

	if startRe.MatchString(text) {
		return Result{Kind: KindCommand, Command: CommandStart}, true
	}

	return ignore, false
}

// stripMention removes a leading "@handle" (case-insensitive) and returns
// the remainder. The remainder must start with a separator so that a longer
// handle sharing the prefix does not match.
func stripMention(text, handle string) (string, bool) {
	prefix := "@" + strings.ToLower(handle)
	if len(text) < len(prefix) {
		return "", false
	}
	if strings.ToLower(text[:len(prefix)]) != prefix {
		return "", false
	}
	rest := text[len(prefix):]
	if rest == "" {
		return "", false
	}
	head, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(head) && head != '-' && head != '–' && head != '—' {
		// An adjoining rune means this was a longer, different handle
		return "", false
	}
	return rest, true
}

// ShouldReply determines whether the ingestion handler owes the originator
// an acknowledgment for a task created from this message: true for explicit
// /task and /todo commands and for dash-separated mentions, false for plain
// mentions and for anything forwarded (to avoid reply storms on bulk
// forwards).
func ShouldReply(msg *chat.Message, botHandle string) bool {
	if msg == nil || msg.IsForwarded() {
		return false
	}

	text := strings.TrimSpace(msg.Text)
	if taskCmdRe.MatchString(text) || bareTaskCmdRe.MatchString(text) {
		return true
	}

	if botHandle != "" {
		if rest, ok := stripMention(text, botHandle); ok {
			return mentionDashRe.MatchString(rest)
		}
	}

	return false
}
