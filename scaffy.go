// Package scaffy is the top-level entry point for the Scaffy learning
// scaffold service.
//
// Use the Builder to compose a Scaffy application:
//
//	app, err := scaffy.NewBuilder().Build()
//	app.Start(ctx)
//
// Or customize every component:
//
//	app, err := scaffy.NewBuilder().
//	    WithStore(myStore).
//	    WithGenerator(myGenerator).
//	    Build()
package scaffy

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/scaffy/scaffy/engine"
	"github.com/scaffy/scaffy/eventbus"
	"github.com/scaffy/scaffy/httpapi"
	"github.com/scaffy/scaffy/llm"
	"github.com/scaffy/scaffy/session"
	"github.com/scaffy/scaffy/store"
)

// Config holds top-level configuration for a Scaffy application.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (default ":7090").
	ServerAddr string

	// DataDir is the directory for persistent data (default "~/.scaffy").
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// GitHubToken enables assignment import from GitHub repositories.
	GitHubToken string

	// SlackBotToken and SlackChannel enable completion notifications.
	SlackBotToken string
	SlackChannel  string

	// Limits bounds input sizes and request rates (zero value means defaults).
	Limits httpapi.Limits
}

// Builder constructs a Scaffy App.
type Builder struct {
	config   Config
	store    store.SessionStore
	bus      eventbus.Bus
	llm      llm.Client
	gen      engine.Generator
	hinter   engine.Hinter
	notifier engine.Notifier
	importer httpapi.Importer
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the session store implementation.
func (b *Builder) WithStore(s store.SessionStore) *Builder {
	b.store = s
	return b
}

// WithBus sets the event bus implementation.
func (b *Builder) WithBus(bus eventbus.Bus) *Builder {
	b.bus = bus
	return b
}

// WithLLM sets the LLM client. This creates the default generation
// pipeline (and hinter) using this client.
func (b *Builder) WithLLM(client llm.Client) *Builder {
	b.llm = client
	return b
}

// WithGenerator sets a custom scaffold generator, bypassing the default
// LLM pipeline.
func (b *Builder) WithGenerator(g engine.Generator) *Builder {
	b.gen = g
	return b
}

// WithHinter sets a custom hint provider.
func (b *Builder) WithHinter(h engine.Hinter) *Builder {
	b.hinter = h
	return b
}

// WithNotifier sets a completion notifier.
func (b *Builder) WithNotifier(n engine.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithImporter sets the assignment importer for the import endpoint.
func (b *Builder) WithImporter(i httpapi.Importer) *Builder {
	b.importer = i
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}

	sess := session.New(b.store)
	eng := engine.New(sess, b.store, b.bus, b.gen, b.hinter, b.notifier)
	handler := httpapi.New(eng, b.importer, b.config.Limits)

	return &App{
		config:  b.config,
		engine:  eng,
		handler: handler,
	}, nil
}

// App is a running Scaffy application.
type App struct {
	config  Config
	engine  *engine.Engine
	handler *httpapi.Handler
}

// Engine returns the underlying engine for direct access.
func (a *App) Engine() *engine.Engine { return a.engine }

// Start starts the HTTP server. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.config.ServerAddr,
		Handler: a.handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Scaffy server listening on %s", a.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return a.engine.Store().Close()
}
