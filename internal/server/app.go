// Package server initializes and runs the web installer server.
// It selects the task and package storage backends, wires the vendor
// store client and the provisioning coordinator, and handles graceful
// shutdown of the HTTP endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/market"
	"github.com/openpmca/webinstaller/internal/server/config"
	"github.com/openpmca/webinstaller/internal/server/httpapi"
	"github.com/openpmca/webinstaller/internal/server/packages"
	"github.com/openpmca/webinstaller/internal/server/provision"
	"github.com/openpmca/webinstaller/internal/server/tasks"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	repo, err := newTaskRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("task store init error: %w", err)
	}
	taskService := tasks.NewService(repo, logger)

	storage, err := newPackageStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("package storage init error: %w", err)
	}

	marketClient := market.NewClient(cfg.MarketBaseURL, cfg.MarketRequestTimeout, logger)

	coordinator := provision.New(taskService, storage, cfg.ExternalURL,
		[]byte(cfg.SecretKey), cfg.RetrievalTokenValidityDuration, logger)

	httpServer := httpapi.NewServer(cfg, logger, taskService, storage, marketClient, coordinator)

	return &App{config: cfg, logger: logger, httpServer: httpServer}, nil
}

// newTaskRepository picks the task store backend. An empty DSN keeps tasks
// in memory, which is enough for a single-process deployment.
func newTaskRepository(ctx context.Context, cfg *config.Config) (tasks.Repository, error) {
	if cfg.DatabaseDSN == "" {
		return tasks.NewInMemoryRepository(), nil
	}

	db, err := tasks.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return tasks.NewPostgresRepository(db), nil
}

// newPackageStorage picks the package storage backend. An empty endpoint
// keeps uploaded packages in memory.
func newPackageStorage(ctx context.Context, cfg *config.Config) (packages.Storage, error) {
	if cfg.S3BaseEndpoint == "" {
		return packages.NewInMemoryStorage(), nil
	}
	return packages.NewS3Storage(ctx, cfg)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

}
