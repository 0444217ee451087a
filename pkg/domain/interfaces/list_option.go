package interfaces

import "github.com/seito-lab/taskfunnel/pkg/domain/types"

// ListOption is a functional option for filtering tasks in GetTasks
type ListOption func(*listConfig)

type listConfig struct {
	status         *types.TaskStatus
	conversationID *int64
	source         *types.TaskSource
	search         string
}

// WithStatus filters tasks by status
func WithStatus(status types.TaskStatus) ListOption {
	return func(c *listConfig) {
		c.status = &status
	}
}

// WithConversation filters tasks by originating conversation
func WithConversation(conversationID int64) ListOption {
	return func(c *listConfig) {
		c.conversationID = &conversationID
	}
}

// WithSource filters tasks by provenance
func WithSource(source types.TaskSource) ListOption {
	return func(c *listConfig) {
		c.source = &source
	}
}

// WithSearch filters tasks by case-insensitive substring match across
// title and description
func WithSearch(query string) ListOption {
	return func(c *listConfig) {
		c.search = query
	}
}

// BuildListConfig builds a listConfig from options
func BuildListConfig(opts ...ListOption) *listConfig {
	cfg := &listConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Status returns the status filter, or nil if not set
func (c *listConfig) Status() *types.TaskStatus {
	return c.status
}

// ConversationID returns the conversation filter, or nil if not set
func (c *listConfig) ConversationID() *int64 {
	return c.conversationID
}

// Source returns the source filter, or nil if not set
func (c *listConfig) Source() *types.TaskSource {
	return c.source
}

// Search returns the free-text filter, or "" if not set
func (c *listConfig) Search() string {
	return c.search
}
