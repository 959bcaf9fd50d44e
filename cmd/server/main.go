package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fitlog-sync-service/internal/api"
	"fitlog-sync-service/internal/config"
	"fitlog-sync-service/internal/logger"
	"fitlog-sync-service/internal/remote"
	"fitlog-sync-service/internal/store"
	"fitlog-sync-service/internal/sync"
)

func main() {
	// Load Config
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Init Logger
	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("Starting fitlog sync service")

	// Init Queue Store
	queueStore, err := newStore(cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to init queue store", zap.Error(err))
	}
	defer queueStore.Close()

	// Remote client, engine, facade
	client := remote.NewClient(cfg.Remote)
	engine := sync.NewEngine(queueStore, client)
	smart := sync.NewSmartLogger(queueStore, client)

	// Triggers: connectivity watcher + optional cron schedule. The engine
	// itself never self-schedules.
	watcher := sync.NewWatcher(queueStore, engine, client,
		cfg.Connectivity.GetProbeInterval(), cfg.Connectivity.ProbePath)
	watcher.Start()
	defer watcher.Stop()

	scheduler := sync.NewScheduler(cfg.Scheduler, engine)
	scheduler.Start()
	defer scheduler.Stop()

	// Control API
	handler := api.NewHandler(queueStore, engine, smart, cfg.Server.AuthToken)
	router := handler.Routes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown. The queue is durable, so no final drain is
	// attempted; whatever is pending resumes on next launch.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	server.Close()
}

func newStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Type {
	case "sqlite":
		return store.NewSQLiteStore(cfg.FilePath)
	case "file", "":
		return store.NewFileStore(cfg.FilePath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
