package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scaffy/scaffy"
	"github.com/scaffy/scaffy/httpapi"
	"github.com/scaffy/scaffy/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scaffy server",
	Long:  "Start the Scaffy API server that processes assignment submissions.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	limits := httpapi.DefaultLimits()
	limits.RatePerMinute = cfg.RatePerMinute
	limits.RatePerHour = cfg.RatePerHour
	limits.RatePerDay = cfg.RatePerDay

	app, err := scaffy.NewBuilder().
		WithConfig(scaffy.Config{
			ServerAddr:    cfg.ServerAddr,
			DataDir:       cfg.DataDir,
			DatabasePath:  cfg.DatabasePath,
			GitHubToken:   cfg.GitHubToken,
			SlackBotToken: cfg.SlackBotToken,
			SlackChannel:  cfg.SlackChannel,
			Limits:        limits,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return app.Start(ctx)
}
