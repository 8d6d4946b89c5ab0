package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/audit"
	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/dataset"
	"github.com/raaihank/llm-redactor/internal/lifecycle"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/redaction"
	"github.com/raaihank/llm-redactor/internal/server"
	"github.com/raaihank/llm-redactor/internal/session"
	"github.com/raaihank/llm-redactor/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
		healthURL   = flag.String("health-url", "http://localhost:8080/health", "URL used by --health-check")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("LLM-Redactor %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck(*healthURL)
		return
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting LLM-Redactor",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("config_file", loader.ConfigFile()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	knownValues, err := dataset.LoadKnownValues(ctx, cfg.Privacy.KnownValues, nil, log.WithComponent("dataset"))
	if err != nil {
		log.Fatal("Failed to load known values", zap.Error(err))
	}

	detector, err := privacy.New(cfg.Privacy, knownValues, log.WithComponent("privacy"))
	if err != nil {
		log.Fatal("Failed to create privacy detector", zap.Error(err))
	}

	var (
		hub  *websocket.Hub
		opts []redaction.Option
	)
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(cfg.WebSocket, log.WithComponent("websocket"))
		opts = append(opts, redaction.WithListener(hub.RedactionListener()))
		go hub.Run(ctx)
	}

	engine := redaction.New(detector, session.NewMemoryStore(), log.WithComponent("redaction"), opts...)

	var recorder lifecycle.Recorder
	if cfg.Audit.Enabled {
		store, err := audit.NewStore(cfg.Audit, log.WithComponent("audit"))
		if err != nil {
			log.Fatal("Failed to create audit store", zap.Error(err))
		}
		defer store.Close()
		recorder = store
	}

	manager := lifecycle.NewManager(engine, recorder, log.WithComponent("lifecycle"))

	if cfg.Lifecycle.Enabled {
		sub, err := lifecycle.NewSubscriber(cfg.Lifecycle, manager, log.WithComponent("lifecycle"))
		if err != nil {
			log.Fatal("Failed to create lifecycle subscriber", zap.Error(err))
		}
		defer sub.Close()
		go func() {
			if err := sub.Run(ctx); err != nil {
				log.Error("Lifecycle subscriber stopped", zap.Error(err))
			}
		}()
	}

	if loader.ConfigFile() != "" {
		watchConfig(loader, cfg, log)
	}

	srv := server.New(cfg, server.Deps{
		Engine:    engine,
		Lifecycle: manager,
		Hub:       hub,
		Version:   version,
	}, log)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
		}

		log.Info("Server shutdown complete", zap.Int("active_sessions", engine.Sessions()))
	}
}

// watchConfig applies log level changes at runtime. Catalog changes need a
// restart and are only reported.
func watchConfig(loader *config.Loader, current *config.Config, log *logger.Logger) {
	loader.Watch(func(next *config.Config) {
		if next.Logging.Level != log.Level().String() {
			if err := log.SetLevel(next.Logging.Level); err != nil {
				log.Warn("Ignoring log level change", zap.Error(err))
			} else {
				log.Info("Log level changed", zap.String("level", next.Logging.Level))
			}
		}
		if !reflect.DeepEqual(next.Privacy, current.Privacy) {
			log.Warn("Privacy configuration changed; restart to apply")
		}
	}, func(err error) {
		log.Warn("Configuration reload rejected", zap.Error(err))
	})
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(url string) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
}
