// Package main is the entry point of the application
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/gammon-server/internal/auth"
	"github.com/tecu23/gammon-server/pkg/ai"
	"github.com/tecu23/gammon-server/pkg/config"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/game"
	"github.com/tecu23/gammon-server/pkg/server"
	"github.com/tecu23/gammon-server/pkg/stats"
	"github.com/tecu23/gammon-server/pkg/store"
)

// application encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Registry  *game.Registry
	Store     store.Store
	Hub       *server.Hub
	Server    *http.Server
	Tasks     *game.Runner
	Upgrader  websocket.Upgrader

	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port, overrides PORT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if *debug {
		cfg.Debug = true
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	// Initialize event publisher
	publisher := events.NewPublisher()

	// Game and match records: SQLite when a data path is configured,
	// in-memory otherwise.
	var st store.Store
	if cfg.DataPath != "" {
		st, err = store.OpenSQLite(cfg.DataPath)
		if err != nil {
			logger.Fatal("opening store error", zap.Error(err))
		}
	} else {
		st = store.NewMemory()
		logger.Warn("DATA_PATH not set, records are in-memory only")
	}

	// Computer move selection: the analysis sidecar when configured, the
	// built-in heuristic otherwise.
	var chooser ai.Chooser = ai.NewGreedy()
	if cfg.GnubgServiceURL != "" {
		client := ai.NewClient(cfg.GnubgServiceURL, cfg.GnubgPlies, cfg.GnubgTimeout)
		chooser = ai.NewGnubgChooser(client, logger)
		logger.Info("using hint service for computer play",
			zap.String("url", cfg.GnubgServiceURL))
	}

	tasks := game.NewRunner(logger)
	registry := game.NewRegistry(game.Deps{
		Logger:                  logger,
		Store:                   st,
		Stats:                   stats.NewMemory(),
		Publisher:               publisher,
		Tasks:                   tasks,
		Chooser:                 chooser,
		GraceWindow:             cfg.GraceWindow,
		CorrespondenceAllowance: cfg.CorrespondenceAllowance,
	})

	// Revive in-progress games so players can rejoin after a restart.
	if err := registry.WarmReload(context.Background()); err != nil {
		logger.Error("warm reload error", zap.Error(err))
	}

	hub := server.NewHub(registry, logger)

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Registry:  registry,
		Store:     st,
		Hub:       hub,
		Tasks:     tasks,
		Upgrader:  newUpgrader(cfg.FrontendPath),
		StartTime: time.Now(),
	}

	go app.Hub.Run()
	go app.sweepLoop()

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

// sweepLoop periodically retires idle sessions.
func (app *application) sweepLoop() {
	ticker := time.NewTicker(app.Config.SweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := app.Registry.SweepIdle(app.Config.MaxInactivity); n > 0 {
			app.Logger.Info("idle sessions retired", zap.Int("count", n))
		}
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Let in-flight persistence and broadcasts drain.
	app.Tasks.Wait()

	if err := app.Store.Close(); err != nil {
		app.Logger.Error("closing store error", zap.Error(err))
	}

	app.Logger.Info("All components shut down successfully")
}
