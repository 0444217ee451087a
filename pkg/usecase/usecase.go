// Package usecase orchestrates task ingestion: admission control, storage
// readiness, message classification and the resulting storage and reply
// side effects.
package usecase

import (
	"time"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/domain/model/config"
	"github.com/seito-lab/taskfunnel/pkg/ratelimit"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

// UseCases wires the ingestion pipeline's collaborators together. The storage
// engine is the only required dependency; everything else degrades to a no-op
// or a default when absent.
type UseCases struct {
	store     interfaces.Engine
	notifier  interfaces.Notifier
	audit     interfaces.AuditSink
	limiter   *ratelimit.Limiter
	replies   config.Replies
	botHandle string

	// storageLogs throttles the repeated "storage unavailable" error so a
	// long outage does not flood the log with identical lines
	storageLogs *logging.Throttle
}

// Option is a functional option for UseCases
type Option func(*UseCases)

// WithNotifier sets the outbound reply transport
func WithNotifier(n interfaces.Notifier) Option {
	return func(u *UseCases) {
		u.notifier = n
	}
}

// WithAuditSink sets the audit event receiver
func WithAuditSink(s interfaces.AuditSink) Option {
	return func(u *UseCases) {
		u.audit = s
	}
}

// WithLimiter overrides the default admission rate limiter
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(u *UseCases) {
		u.limiter = l
	}
}

// WithReplies overrides the reply templates
func WithReplies(r config.Replies) Option {
	return func(u *UseCases) {
		u.replies = r
	}
}

// WithBotHandle sets the bot's mention handle (without the leading @)
func WithBotHandle(handle string) Option {
	return func(u *UseCases) {
		u.botHandle = handle
	}
}

// New creates the ingestion use cases around the given storage engine
func New(store interfaces.Engine, opts ...Option) *UseCases {
	u := &UseCases{
		store:       store,
		limiter:     ratelimit.New(ratelimit.DefaultLimit, ratelimit.DefaultWindow),
		replies:     config.DefaultReplies(),
		storageLogs: logging.NewThrottle(time.Minute),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}
