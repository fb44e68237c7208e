// Package main is the entry point for the idle simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/infra/storage"
	"github.com/MRamiBalles/idlekernel/internal/network"
	"github.com/MRamiBalles/idlekernel/internal/platform/config"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

func main() {
	appLogger := logger.NewLogger()
	if err := run(appLogger); err != nil {
		appLogger.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func run(appLogger *logger.Logger) error {
	cfg := config.FromEnv()
	appLogger.Infof("Initializing idle kernel (listen=%s db=%s slot=%s)", cfg.ListenAddr, cfg.DBPath, cfg.SaveSlot)

	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	saveRepo := storage.NewSQLiteSaveRepository(db)
	journalRepo := storage.NewSQLiteJournalRepository(db)

	appLogger.Info("Bootstrapping journal...")
	eventLog := events.NewEventLog(storage.NewJournalPersister(journalRepo, cfg.SaveSlot), cfg.JournalCapacity, cfg.EventChannelBuffer)

	// The persister outlives the other workers so the final save is journaled.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		eventLog.RunPersister(persistCtx)
	}()
	defer func() {
		stopPersist()
		<-persistDone
	}()

	appLogger.Info("Bootstrapping engine...")
	gameEngine := engine.NewEngine(engine.OptionsFromConfig(cfg), eventLog, appLogger, bignumber.NewFormatter(cfg.FormatCacheSize))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	autosaver := engine.NewAutosaver(gameEngine, saveRepo, cfg.SaveSlot, cfg.AutosaveInterval, appLogger)
	loaded, err := autosaver.Load(ctx)
	if err != nil {
		return err
	}
	if !loaded {
		appLogger.Infof("Slot %q is empty; starting a new game", cfg.SaveSlot)
	}

	scheduler := engine.NewScheduler(gameEngine, appLogger)
	router := network.NewRouter(gameEngine, autosaver, appLogger)
	hub := network.NewHub(gameEngine, router, network.HubOptions{
		BroadcastInterval:    cfg.BroadcastInterval,
		SendBuffer:           cfg.ClientSendBuffer,
		MaxClients:           cfg.MaxClients,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		MessageBurst:         cfg.MessageBurst,
	}, appLogger)
	api := network.NewAPI(gameEngine, network.APIOptions{
		Saver:   autosaver,
		Journal: journalRepo,
		Recaps:  storage.NewReconstructor(journalRepo),
		Slot:    cfg.SaveSlot,
	}, appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	api.RegisterRoutes(mux)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		autosaver.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
