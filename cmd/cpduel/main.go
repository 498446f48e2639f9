package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cpduel/cpduel/internal/api"
	"github.com/cpduel/cpduel/internal/arena"
	"github.com/cpduel/cpduel/internal/config"
	"github.com/cpduel/cpduel/internal/database"
	"github.com/cpduel/cpduel/internal/janitor"
	"github.com/cpduel/cpduel/internal/judge"
	"github.com/cpduel/cpduel/internal/pubsub"

	"go.uber.org/zap"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "cpduel %s - Competitive Programming Duel Server\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var logger *zap.Logger
	if cfg.Logger.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage.Database)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Info("database initialized successfully")

	// judge API client
	client := judge.NewClient(
		cfg.Judge.BaseURL,
		time.Duration(cfg.Judge.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Judge.RateLimitMs)*time.Millisecond,
	)

	// match arena
	broker := pubsub.NewBroker()
	mgr := arena.NewManager(cfg, db, broker, client)

	// restart matches interrupted by the last shutdown
	if err := mgr.Recover(); err != nil {
		zap.S().Errorf("failed to recover unfinished matches: %v", err)
	} else {
		zap.S().Info("recovered unfinished matches")
	}

	// periodic cleanup
	jan, err := janitor.Start(cfg.Janitor, db, mgr)
	if err != nil {
		zap.S().Fatalf("failed to start janitor: %v", err)
	}
	zap.S().Info("janitor started")

	// API server
	engine := api.NewRouter(cfg, db, mgr, broker, client)
	server := &http.Server{Addr: cfg.Listen, Handler: engine}
	go func() {
		zap.S().Infof("starting server at %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("failed to start server: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")

	jan.Stop()
	mgr.Shutdown()
	if err := server.Close(); err != nil {
		zap.S().Errorf("server close: %v", err)
	}
}
