package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/martinemde/notionagent/config"
	"github.com/martinemde/notionagent/unifiedllm"
)

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{nil, {""}, {"a", "b"}} {
		var stderr bytes.Buffer
		if code := run(context.Background(), args, &bytes.Buffer{}, &stderr); code != exitUsage {
			t.Errorf("args %q: exit %d, want %d", args, code, exitUsage)
		}
		if !strings.Contains(stderr.String(), "usage:") {
			t.Errorf("args %q: expected usage message, got %q", args, stderr.String())
		}
	}
}

func TestRunMissingConfig(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("NOTION_API_KEY", "")

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"hello"}, &bytes.Buffer{}, &stderr); code != exitUsage {
		t.Errorf("exit %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr.String(), "config:") {
		t.Errorf("expected config error, got %q", stderr.String())
	}
}

func TestNewAdapterSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
	}
	for _, tt := range tests {
		adapter, err := newAdapter(config.LLMConfig{Provider: tt.provider, APIKey: "k", BaseURL: "http://localhost:1"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.provider, err)
		}
		if adapter.Name() != tt.want {
			t.Errorf("%s: adapter %q", tt.provider, adapter.Name())
		}
	}
}

func TestNewAdapterUnknownProviderWithoutModel(t *testing.T) {
	_, err := newAdapter(config.LLMConfig{Provider: "nosuchprovider", APIKey: "k"})
	var cfgErr *unifiedllm.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", slog.Any("error", errors.New("boom")))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "boom") {
		t.Errorf("unexpected output %q", out)
	}
}
