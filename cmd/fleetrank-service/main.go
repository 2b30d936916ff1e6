package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/fleetrank/fleetrank/internal/archive"
	"github.com/fleetrank/fleetrank/internal/config"
	"github.com/fleetrank/fleetrank/internal/httpserver"
	"github.com/fleetrank/fleetrank/internal/service"
	"github.com/fleetrank/fleetrank/internal/settings"
	"github.com/fleetrank/fleetrank/internal/store"
	"github.com/fleetrank/fleetrank/internal/stream"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "fleetrank").
		Logger()

	base := settings.Defaults()
	if cfg.SettingsPath != "" {
		base, err = settings.LoadFile(cfg.SettingsPath)
		if err != nil {
			log.Fatalf("settings profile: %v", err)
		}
		logger.Info().Str("path", cfg.SettingsPath).Msg("settings profile loaded")
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		st = store.NewPGStore(db)
		logger.Info().Msg("using postgres device registry")
	} else {
		st = store.NewMemoryStore()
		logger.Info().Msg("using in-memory device registry")
	}

	var pub stream.Publisher = stream.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := stream.NewKafkaPublisher(stream.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatalf("kafka publisher: %v", err)
		}
		defer kp.Close()
		pub = kp
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("alert publishing enabled")
	}

	opts := []service.Option{}
	if cfg.S3Bucket != "" {
		arch, err := archive.NewS3Archiver(context.Background(), cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("s3 archiver: %v", err)
		}
		opts = append(opts, service.WithArchiver(arch))
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("export archiving enabled")
	}

	svc := service.New(st, pub, base, logger, opts...)
	server := httpserver.New(cfg, svc, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
