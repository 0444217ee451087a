package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/seito-lab/taskfunnel/pkg/ratelimit"
)

// Bot holds CLI flags for the chat bot identity and webhook
type Bot struct {
	token         string
	handle        string
	webhookSecret string

	rateLimitCount  int
	rateLimitWindow time.Duration
}

// Flags returns CLI flags for bot configuration
func (x *Bot) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bot-token",
			Usage:       "Bot API token for sending replies (replies disabled when empty)",
			Category:    "Bot",
			Sources:     cli.EnvVars("TASKFUNNEL_BOT_TOKEN"),
			Destination: &x.token,
		},
		&cli.StringFlag{
			Name:        "bot-handle",
			Usage:       "Bot mention handle without the leading @",
			Category:    "Bot",
			Value:       "taskfunnel_bot",
			Sources:     cli.EnvVars("TASKFUNNEL_BOT_HANDLE"),
			Destination: &x.handle,
		},
		&cli.StringFlag{
			Name:        "webhook-secret",
			Usage:       "Secret path segment of the inbound webhook URL",
			Category:    "Bot",
			Sources:     cli.EnvVars("TASKFUNNEL_WEBHOOK_SECRET"),
			Destination: &x.webhookSecret,
		},
		&cli.IntFlag{
			Name:        "rate-limit-count",
			Usage:       "Max updates admitted per conversation per window",
			Category:    "Bot",
			Value:       ratelimit.DefaultLimit,
			Sources:     cli.EnvVars("TASKFUNNEL_RATE_LIMIT_COUNT"),
			Destination: &x.rateLimitCount,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-window",
			Usage:       "Sliding window length for the rate limiter",
			Category:    "Bot",
			Value:       ratelimit.DefaultWindow,
			Sources:     cli.EnvVars("TASKFUNNEL_RATE_LIMIT_WINDOW"),
			Destination: &x.rateLimitWindow,
		},
	}
}

// Validate checks that the flags required for serving are present
func (x *Bot) Validate() error {
	if x.webhookSecret == "" {
		return goerr.New("webhook-secret is required")
	}
	if x.rateLimitCount < 1 {
		return goerr.New("rate-limit-count must be positive", goerr.V("count", x.rateLimitCount))
	}
	if x.rateLimitWindow <= 0 {
		return goerr.New("rate-limit-window must be positive", goerr.V("window", x.rateLimitWindow))
	}
	return nil
}

// Token returns the bot API token
func (x *Bot) Token() string {
	return x.token
}

// Handle returns the bot mention handle
func (x *Bot) Handle() string {
	return x.handle
}

// WebhookSecret returns the webhook path secret
func (x *Bot) WebhookSecret() string {
	return x.webhookSecret
}

// Limiter builds the admission rate limiter from the configured flags
func (x *Bot) Limiter() *ratelimit.Limiter {
	return ratelimit.New(x.rateLimitCount, x.rateLimitWindow)
}

// LogValue renders the configuration for the startup log line, hiding the
// token and webhook secret
func (x Bot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("handle", x.handle),
		slog.Bool("token_set", x.token != ""),
		slog.Bool("webhook_secret_set", x.webhookSecret != ""),
		slog.Int("rate_limit_count", x.rateLimitCount),
		slog.Duration("rate_limit_window", x.rateLimitWindow),
	)
}
