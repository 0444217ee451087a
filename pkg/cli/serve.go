package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/seito-lab/taskfunnel/pkg/cli/config"
	httpctrl "github.com/seito-lab/taskfunnel/pkg/controller/http"
	"github.com/seito-lab/taskfunnel/pkg/service/audit"
	"github.com/seito-lab/taskfunnel/pkg/service/notify"
	"github.com/seito-lab/taskfunnel/pkg/usecase"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
	"github.com/seito-lab/taskfunnel/pkg/utils/safe"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var storageCfg config.Storage
	var botCfg config.Bot
	var sentryCfg config.Sentry
	var appCfg config.App

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TASKFUNNEL_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, botCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if err := botCfg.Validate(); err != nil {
				return err
			}
			if err := sentryCfg.Configure(c.Root().Version); err != nil {
				return err
			}

			replies, err := appCfg.Configure()
			if err != nil {
				return err
			}

			store, err := storageCfg.Configure()
			if err != nil {
				return err
			}
			defer safe.Close(ctx, store)

			// Bring storage up eagerly so a misconfiguration fails the
			// process at startup. In postgres mode the failover controller
			// owns readiness and retries lazily, so a failure here only
			// warns.
			if err := store.Initialize(ctx); err != nil {
				if storageCfg.Mode() != "postgres" {
					return goerr.Wrap(err, "failed to initialize storage")
				}
				logger.Warn("storage not ready at startup, initialization will be retried lazily", "error", err.Error())
			}

			opts := []usecase.Option{
				usecase.WithBotHandle(botCfg.Handle()),
				usecase.WithLimiter(botCfg.Limiter()),
				usecase.WithReplies(replies),
				usecase.WithAuditSink(audit.New()),
			}
			if botCfg.Token() != "" {
				opts = append(opts, usecase.WithNotifier(notify.New(botCfg.Token())))
			} else {
				logger.Warn("bot-token is not set, replies are disabled")
			}
			uc := usecase.New(store, opts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpctrl.NewWebhookHandler(uc), botCfg.WebhookSecret()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr, "bot", botCfg, "sentry", sentryCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "http server failed")
				}
			}()

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
				logger.Info("Shutting down HTTP server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down http server")
			}
			return nil
		},
	}
}
