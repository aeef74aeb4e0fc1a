package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oselight/stripdeck/internal/api"
	"github.com/oselight/stripdeck/internal/assist"
	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/internal/feed"
	"github.com/oselight/stripdeck/internal/inference"
	"github.com/oselight/stripdeck/internal/storage/sqlite"
	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/internal/websocket"
	"github.com/oselight/stripdeck/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting stripdeck",
		logger.String("config", *configPath),
		logger.String("model", cfg.Inference.Model))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit storage
	var actionStorage *sqlite.ActionStorage
	var analysisStorage *sqlite.AnalysisStorage
	if cfg.Storage.Enabled {
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			log.Error("Failed to open audit database", logger.Error(err))
			os.Exit(1)
		}
		defer db.Close()

		actionStorage = sqlite.NewActionStorage(db, log)
		analysisStorage = sqlite.NewAnalysisStorage(db, log)
		log.Info("Audit storage enabled", logger.String("path", cfg.Storage.Path))
	} else {
		log.Info("Audit storage disabled")
	}

	// Core services
	board := strips.NewBoard(log)
	inferenceClient := inference.NewClient(cfg.Inference, log)
	history := assist.NewHistory(cfg.Assist.HistoryCapacity, cfg.Assist.HistoryTTL())
	assistService := assist.NewService(inferenceClient, history, cfg.Assist, log)

	// WebSocket hub
	wsServer := websocket.NewServer(log)
	wsStop := make(chan struct{})
	wsServer.Start(wsStop)
	defer close(wsStop)

	// Position feed
	if cfg.Feed.Enabled {
		feedClient := feed.NewClient(
			cfg.Feed.SourceURL,
			cfg.Feed.StationLat,
			cfg.Feed.StationLon,
			cfg.Feed.SearchRadiusNM,
			cfg.Feed.Timeout(),
			log,
		)
		feedService := feed.NewService(feedClient, board, wsServer, cfg.Feed.RefreshInterval(), log)
		feedService.Start(ctx)
		defer feedService.Wait()
	} else {
		log.Info("Position feed disabled, board is manual-entry only")
	}

	// HTTP server
	router := api.NewRouter(board, assistService, inferenceClient, actionStorage, analysisStorage, wsServer, cfg, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server failed", logger.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Error(err))
	}

	log.Info("Shutdown complete")
}
