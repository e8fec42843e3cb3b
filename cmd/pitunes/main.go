package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"pitunes/internal/config"
	"pitunes/internal/server"
	"pitunes/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	port := flag.Int("port", 0, "listen port (overrides config)")
	flag.Parse()

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Make sure the media directory exists before serving from it
	if err := os.MkdirAll(cfg.Library.TracksDir, 0o755); err != nil {
		logger.WithField("tracks_dir", cfg.Library.TracksDir).WithError(err).Fatal("Could not create tracks directory")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.WithField("db_path", cfg.Database.Path).WithError(err).Fatal("Could not create data directory")
	}

	// Open the store; this runs migrations and seeds the id generator
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer s.Close()

	srv, err := server.New(cfg, s)
	if err != nil {
		logger.WithError(err).Fatal("Error creating server")
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server failed")
	}
}
