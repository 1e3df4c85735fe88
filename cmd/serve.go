package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anabananasophia/Talia-bot/internal/config"
	"github.com/anabananasophia/Talia-bot/internal/engine"
	"github.com/anabananasophia/Talia-bot/internal/providers"
	"github.com/anabananasophia/Talia-bot/internal/slack"
	"github.com/anabananasophia/Talia-bot/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent (same as invoking talia with no subcommand)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		slog.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	client := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.AppToken, cfg.Slack.APIBase)
	provider := providers.NewOpenAIProvider(cfg.Provider)
	identity := engine.NewIdentity(cfg.Agent, cfg.Peers)

	hours, err := engine.NewHoursGate(cfg.Engine.WorkingHours, cfg.Agent.FounderID)
	if err != nil {
		slog.Error("invalid working-hours config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(ctx, identity, cfg.Engine, st, client, provider, hours, slog.Default())
	reviver := engine.NewReviver(identity, cfg.Engine.Revival, st, client, provider, hours, slog.Default())

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Slack.Mode {
	case "socket":
		sm := slack.NewSocketMode(client, eng, slog.Default())
		g.Go(func() error { return sm.Run(gctx) })
		slog.Info("talia starting", "agent", cfg.Agent.Name, "version", Version, "mode", "socket")
	default:
		mux := http.NewServeMux()
		hook := slack.NewWebhookHandler(eng, cfg.Slack.VerificationToken, cfg.Server.RateLimitRPM, slog.Default())
		hook.Routes(mux)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
			return gctx.Err()
		})
		slog.Info("talia starting", "agent", cfg.Agent.Name, "version", Version, "mode", "webhook", "addr", addr)
	}

	if reviver.Enabled() {
		g.Go(func() error { return reviver.Run(gctx) })
	}
	g.Go(func() error { return eng.RunEscalationSweeper(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serve loop failed", "error", err)
		eng.Wait()
		os.Exit(1)
	}

	slog.Info("shutting down, waiting for in-flight replies")
	eng.Wait()
}
