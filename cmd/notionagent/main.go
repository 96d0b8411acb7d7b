// Command notionagent builds Notion rich text from a prompt and writes it
// into the configured callout block.
//
// Usage:
//
//	notionagent "<prompt>"
//
// Exit status is 0 when rich text was produced and written, 1 when the
// session or the write failed, and 2 on usage or configuration errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/martinemde/notionagent/agentloop"
	"github.com/martinemde/notionagent/config"
	"github.com/martinemde/notionagent/notion"
	"github.com/martinemde/notionagent/unifiedllm"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(stderr, `usage: notionagent "<prompt>"`)
		return exitUsage
	}
	prompt := args[0]

	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}
	level, _ := cfg.SlogLevel()
	logger := newLogger(stderr, level)

	adapter, err := newAdapter(cfg.LLM)
	if err != nil {
		logger.Error("create completion adapter", slog.Any("error", err))
		return exitUsage
	}
	client := newClient(cfg, adapter, logger)

	notionClient := notion.NewClient(cfg.Notion.APIKey,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
		notion.WithTimeout(cfg.Agent.ToolTimeout),
		notion.WithRetries(cfg.LLM.MaxRetries),
		notion.WithLogger(logger),
	)
	workspace := notion.NewWorkspace(notionClient, config.NewStore(cfg.Notion.ConfigPath))

	profile := agentloop.ProfileFor(cfg.LLM.Provider, cfg.LLM.Model)
	sessionCfg := agentloop.DefaultSessionConfig()
	sessionCfg.MaxIterations = cfg.Agent.MaxIterations
	sessionCfg.StopAfterFinish = cfg.Agent.StopAfterFinish
	sessionCfg.ToolTimeout = cfg.Agent.ToolTimeout

	logger.Info("starting session",
		slog.String("provider", profile.Provider),
		slog.String("model", profile.Model),
		slog.Int("max_iterations", sessionCfg.MaxIterations),
	)

	driver := agentloop.NewDriver(client, workspace, workspace, profile, &sessionCfg, logger)
	res, err := driver.Run(ctx, prompt)
	if res != nil {
		logger.Info("session finished",
			slog.String("stop_reason", string(res.StopReason)),
			slog.Int("iterations", res.Iterations),
			slog.Int("elements", len(res.Segments)),
			slog.Int("total_tokens", res.Usage.TotalTokens),
		)
	}
	if err != nil {
		logger.Error("run failed", slog.Any("error", err))
		return exitFailed
	}

	fmt.Fprintf(stdout, "wrote %d rich text elements\n", len(res.Segments))
	return exitOK
}

func newClient(cfg *config.Config, adapter unifiedllm.ProviderAdapter, logger *slog.Logger) *unifiedllm.Client {
	policy := unifiedllm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("retrying completion",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.LLM.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.LLM.Provider),
		unifiedllm.WithMiddleware(
			unifiedllm.LoggingMiddleware(logger),
			unifiedllm.RetryMiddleware(policy),
			unifiedllm.TimeoutMiddleware(cfg.LLM.RequestTimeout),
		),
	)
}
