// Package config holds user-tunable application configuration models that are
// loaded from files, as opposed to the process-level flags under pkg/cli.
package config

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Replies is the set of message templates the bot sends back to chat.
// Templates use brace tokens ({title}, {count}, {query}) substituted at
// render time; every field has a built-in default so a template file only
// needs to override what it wants to change.
type Replies struct {
	TaskCreated  string `toml:"task_created"`
	Duplicate    string `toml:"duplicate"`
	Help         string `toml:"help"`
	Start        string `toml:"start"`
	OpenHeader   string `toml:"open_header"`
	OpenEmpty    string `toml:"open_empty"`
	DoneOK       string `toml:"done_ok"`
	DoneNotFound string `toml:"done_not_found"`
	DoneUsage    string `toml:"done_usage"`
	Failure      string `toml:"failure"`
}

// DefaultReplies returns the built-in templates
func DefaultReplies() Replies {
	return Replies{
		TaskCreated:  "Added: {title}",
		Duplicate:    "An open task with the same title already exists: \"{title}\". Nothing was added.",
		Help:         "Send /task <text>, forward a message, or mention me to capture a task. Use /opentask to list open tasks and /done <number or text> to close one.",
		Start:        "Hi! I turn your messages into tasks. Try /task Buy coffee beans, or just forward me something worth remembering.",
		OpenHeader:   "Open tasks ({count}):",
		OpenEmpty:    "No open tasks. Enjoy the silence.",
		DoneOK:       "Done: {title}",
		DoneNotFound: "Could not find an open task matching \"{query}\".",
		DoneUsage:    "Usage: /done <number or part of the title>. Run /opentask to see the numbers.",
		Failure:      "Something went wrong on my side, the message was not saved. Please try again.",
	}
}

// FillDefaults replaces every empty field with its built-in default
func (r *Replies) FillDefaults() {
	defaults := DefaultReplies()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&r.TaskCreated, defaults.TaskCreated)
	fill(&r.Duplicate, defaults.Duplicate)
	fill(&r.Help, defaults.Help)
	fill(&r.Start, defaults.Start)
	fill(&r.OpenHeader, defaults.OpenHeader)
	fill(&r.OpenEmpty, defaults.OpenEmpty)
	fill(&r.DoneOK, defaults.DoneOK)
	fill(&r.DoneNotFound, defaults.DoneNotFound)
	fill(&r.DoneUsage, defaults.DoneUsage)
	fill(&r.Failure, defaults.Failure)
}

// Validate checks that templates carrying dynamic content keep their tokens
func (r Replies) Validate() error {
	checks := []struct {
		name, tmpl, token string
	}{
		{"task_created", r.TaskCreated, "{title}"},
		{"done_ok", r.DoneOK, "{title}"},
		{"done_not_found", r.DoneNotFound, "{query}"},
	}
	for _, c := range checks {
		if !strings.Contains(c.tmpl, c.token) {
			return goerr.New("reply template is missing a required token",
				goerr.V("template", c.name), goerr.V("token", c.token),
			)
		}
	}
	return nil
}

// RenderTaskCreated renders the confirmation reply for a new task
func (r Replies) RenderTaskCreated(title string) string {
	return strings.ReplaceAll(r.TaskCreated, "{title}", title)
}

// RenderDuplicate renders the duplicate-title warning
func (r Replies) RenderDuplicate(title string) string {
	return strings.ReplaceAll(r.Duplicate, "{title}", title)
}

// RenderOpenHeader renders the /opentask list header
func (r Replies) RenderOpenHeader(count int) string {
	return strings.ReplaceAll(r.OpenHeader, "{count}", strconv.Itoa(count))
}

// RenderDoneOK renders the task-closed confirmation
func (r Replies) RenderDoneOK(title string) string {
	return strings.ReplaceAll(r.DoneOK, "{title}", title)
}

// RenderDoneNotFound renders the no-match reply for /done
func (r Replies) RenderDoneNotFound(query string) string {
	return strings.ReplaceAll(r.DoneNotFound, "{query}", query)
}
