// Package app assembles and runs the service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qrisgate-service/qrisgate_service/internal/api/handlers"
	"github.com/qrisgate-service/qrisgate_service/internal/api/routes"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/repositories"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/deposit"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/fee"
	"github.com/qrisgate-service/qrisgate_service/internal/infrastructure/adapters/khafa"
	"github.com/qrisgate-service/qrisgate_service/internal/infrastructure/config"
	infrarepos "github.com/qrisgate-service/qrisgate_service/internal/infrastructure/repositories"
	"github.com/qrisgate-service/qrisgate_service/internal/workers/reconciliation"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
)

// Application represents the main application
type Application struct {
	cfg    *config.Config
	log    *logger.Logger
	server *http.Server

	ledger         repositories.Ledger
	gateway        *khafa.Client
	depositService *deposit.Service
	sweeper        *reconciliation.Sweeper
}

// NewApplication creates a new application instance
func NewApplication() *Application {
	return &Application{}
}

// Initialize wires configuration, storage, the gateway client, the deposit
// controller and the HTTP server.
func (app *Application) Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.cfg = cfg

	log := logger.New(cfg.LogLevel, cfg.Environment)
	app.log = log

	if err := app.initializeLedger(); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	gateway, err := khafa.NewClient(khafa.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	}, log.Zap())
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}
	app.gateway = gateway

	calculator, err := fee.NewCalculator(fee.Config{
		Mode:        fee.Mode(cfg.Deposit.FeeMode),
		FlatPercent: cfg.Deposit.FlatFeePercent,
		FlatMin:     cfg.Deposit.FlatMin,
		FlatMax:     cfg.Deposit.FlatMax,
	})
	if err != nil {
		return fmt.Errorf("failed to create fee calculator: %w", err)
	}

	app.depositService = deposit.NewService(gateway, app.ledger, calculator, deposit.Config{
		PollInterval:  cfg.Deposit.PollInterval,
		CountdownTick: cfg.Deposit.CountdownTick,
		HistoryLimit:  cfg.Deposit.HistoryLimit,
	}, log)

	if cfg.Reconciliation.Enabled {
		app.sweeper = reconciliation.NewSweeper(app.ledger, gateway, reconciliation.Config{
			Schedule: cfg.Reconciliation.Schedule,
			MinAge:   cfg.Reconciliation.MinAge,
		}, log)
	}

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

// initializeLedger opens the configured ledger driver. A durable driver that
// fails to open degrades to the in-memory ledger instead of refusing to start;
// payments still work, history does not survive a restart.
func (app *Application) initializeLedger() error {
	switch app.cfg.Ledger.Driver {
	case "badger":
		ledger, err := infrarepos.NewBadgerLedger(app.cfg.Ledger.Path, app.log.Zap())
		if err != nil {
			app.log.Warn("Failed to open badger ledger, falling back to in-memory history",
				"path", app.cfg.Ledger.Path,
				"error", err)
			app.ledger = infrarepos.NewMemoryLedger()
			return nil
		}
		app.ledger = ledger
	case "redis":
		ledger, err := infrarepos.NewRedisLedger(app.cfg.Ledger.RedisAddr, app.cfg.Ledger.RedisDB, app.log.Zap())
		if err != nil {
			app.log.Warn("Failed to connect to redis ledger, falling back to in-memory history",
				"addr", app.cfg.Ledger.RedisAddr,
				"error", err)
			app.ledger = infrarepos.NewMemoryLedger()
			return nil
		}
		app.ledger = ledger
	case "memory":
		app.ledger = infrarepos.NewMemoryLedger()
	default:
		return fmt.Errorf("unknown ledger driver: %q", app.cfg.Ledger.Driver)
	}

	entries, err := app.ledger.LoadAll(context.Background())
	if err != nil {
		app.log.Warn("Failed to preload ledger history", "error", err)
		return nil
	}
	app.log.Info("Ledger opened", "driver", app.cfg.Ledger.Driver, "entries", len(entries))
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	if app.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	depositHandlers := handlers.NewDepositHandlers(app.depositService, app.log)
	routes.Setup(router, depositHandlers, app.log)

	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return nil
}

// Start starts the HTTP server and the reconciliation sweeper
func (app *Application) Start() error {
	if app.sweeper != nil {
		if err := app.sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start reconciliation sweeper: %w", err)
		}
	}

	go func() {
		app.log.Info("Starting server",
			"port", app.cfg.Server.Port,
			"environment", app.cfg.Environment,
			"gateway", app.cfg.Gateway.BaseURL,
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Fatal("Failed to start server", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.log.Info("Shutting down server...")

	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.log.Error("Server forced to shutdown", "error", err)
	}

	// Timers first, then storage, so no late ledger write hits a closed store.
	app.depositService.Dispose()

	if err := app.ledger.Close(); err != nil {
		app.log.Warn("Error closing ledger", "error", err)
	}

	app.log.Info("Server exited gracefully")
	return nil
}

// WaitForShutdown waits for interrupt signal
func (app *Application) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
