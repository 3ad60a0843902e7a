package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/adapters/engine"
	"github.com/scoady/backbeat/internal/adapters/midicapture"
	"github.com/scoady/backbeat/internal/adapters/rest"
	"github.com/scoady/backbeat/internal/adapters/sqlite"
	"github.com/scoady/backbeat/internal/config"
	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
	"github.com/scoady/backbeat/internal/core/services"
	"github.com/scoady/backbeat/internal/worker"
)

func main() {
	configPath := flag.String("config", "backbeat.yaml", "path to the config file")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("FATAL: failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize "Driven" Adapters (The Tools)
	// -- Database Adapter
	dbAdapter, err := sqlite.NewAdapter(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbAdapter.Close()

	// -- Background workers
	saveQueue := worker.NewSaveQueue(dbAdapter, cfg.Worker.SaveQueueDepth, func(projectID string, err error) {
		if err != nil {
			logger.Warn("background save failed", zap.String("project", projectID), zap.Error(err))
		}
	}, logger)
	saveQueue.Start()
	defer saveQueue.Stop()

	probe := worker.NewProbe(dbAdapter, cfg.Worker.SaveQueueDepth, logger)
	probe.Start(cfg.Worker.ProbeWorkers)
	defer probe.Stop()

	// -- Sound engine: a real MIDI out when configured, otherwise silent.
	var sound ports.SoundEngine = engine.Silent{}
	if cfg.MIDI.OutPort != "" {
		out, err := engine.NewMIDIOut(cfg.MIDI.OutPort, 0, logger)
		if err != nil {
			logger.Warn("midi out unavailable, monitoring is silent",
				zap.String("port", cfg.MIDI.OutPort), zap.Error(err))
		} else {
			sound = out
		}
	}

	// 3. Initialize Core Logic (The Driver)
	store := services.NewStore(dbAdapter, saveQueue, logger)
	loadSessionProject(store, dbAdapter, logger)

	clock := engine.NewBeatClock(store.Snapshot().BPM)

	recorder := services.NewRecorder(store, clock, sound, cfg.Recording.MinNoteBeats, logger)

	// -- MIDI capture. An unsupported platform degrades to a no-op service;
	// the session keeps running without live input.
	capture := midicapture.NewService(midicapture.NewRtmidiTransport(), logger,
		midicapture.WithPollInterval(cfg.MIDI.PollInterval()))
	if capture.Initialize() {
		defer capture.Dispose()
		detach := recorder.Attach(capture)
		defer detach()
	} else {
		logger.Warn("midi capture unsupported on this platform")
	}

	// 4. Initialize "Driving" Adapter (The Interface)
	projects := services.NewProjects(dbAdapter, logger)
	// HTTP edits of the session's own project land in the live store too,
	// so a later queued save cannot roll them back.
	projects.NotifySaved(func(p domain.Project) { store.RefreshIfCurrent(p) })

	handler := rest.NewHandler(
		projects,
		services.NewLibrary(dbAdapter, logger),
		dbAdapter,
		probe,
		logger,
	)
	handler.AttachSession(store, recorder, clock)

	// 5. Start the Server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	logger.Info("backbeat api is running", zap.String("addr", srv.Addr))

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadSessionProject points the live session store at the most recently
// updated project, or starts a fresh one when the database is empty.
func loadSessionProject(store *services.Store, repo ports.ProjectRepository, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summaries, err := repo.ListProjects(ctx)
	if err != nil || len(summaries) == 0 {
		store.LoadOrCreate(ctx, "")
		return
	}
	p := store.LoadOrCreate(ctx, summaries[0].ID)
	logger.Info("session project ready", zap.String("project", p.ID), zap.String("name", p.Name))
}
