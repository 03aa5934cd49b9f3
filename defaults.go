package scaffy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scaffy/scaffy/eventbus"
	"github.com/scaffy/scaffy/gitsource"
	"github.com/scaffy/scaffy/httpapi"
	llmAnthropic "github.com/scaffy/scaffy/llm/anthropic"
	"github.com/scaffy/scaffy/notify"
	"github.com/scaffy/scaffy/pipeline"
	sqliteStore "github.com/scaffy/scaffy/store/sqlite"
)

// applyDefaults fills in missing fields on the builder with sensible defaults.
func applyDefaults(b *Builder) error {
	// Config defaults.
	if b.config.ServerAddr == "" {
		b.config.ServerAddr = ":7090"
	}
	if b.config.DataDir == "" {
		b.config.DataDir = defaultDataDir()
	}
	if b.config.DatabasePath == "" {
		b.config.DatabasePath = filepath.Join(b.config.DataDir, "scaffy.db")
	}
	if b.config.Limits == (httpapi.Limits{}) {
		b.config.Limits = httpapi.DefaultLimits()
	}

	// Ensure data dir exists.
	if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Store.
	if b.store == nil {
		st, err := sqliteStore.New(b.config.DatabasePath)
		if err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
		b.store = st
	}

	// Event bus.
	if b.bus == nil {
		b.bus = eventbus.NewInMemoryBus()
	}

	// LLM + generation pipeline.
	if b.llm == nil {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			b.llm = llmAnthropic.New(key, os.Getenv("SCAFFY_LLM_MODEL"))
		}
	}
	if b.gen == nil {
		if b.llm == nil {
			return fmt.Errorf("no generator configured and no ANTHROPIC_API_KEY set")
		}
		p := pipeline.New(b.llm)
		b.gen = p
		if b.hinter == nil {
			b.hinter = p
		}
	}

	// Assignment import.
	if b.importer == nil {
		b.importer = gitsource.New(b.config.GitHubToken)
	}

	// Completion notifications.
	if b.notifier == nil && b.config.SlackBotToken != "" && b.config.SlackChannel != "" {
		b.notifier = notify.NewSlackNotifier(b.config.SlackBotToken, b.config.SlackChannel)
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scaffy"
	}
	return filepath.Join(home, ".scaffy")
}
