package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/eternalApril/phonebook/internal/config"
	"github.com/eternalApril/phonebook/internal/logger"
	"github.com/eternalApril/phonebook/internal/server"
	"github.com/eternalApril/phonebook/internal/storage"
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("phonebook: " + err.Error() + "\n") //nolint:errcheck
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Phonebook starting",
		zap.String("port", cfg.Server.Port),
		zap.String("driver", cfg.Storage.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error("cant initialize storage", zap.Error(err))
		return err
	}
	defer db.Close() //nolint:errcheck

	if sqlDB, ok := db.(*storage.SQLStorage); ok {
		if version, err := sqlDB.Version(ctx); err == nil {
			log.Info("SQLite ready", zap.String("version", version), zap.String("path", cfg.Storage.SQLite.Path))
		}
	}

	engine, err := server.NewEngine(ctx, db, cfg, log)
	if err != nil {
		log.Error("cant initialize engine", zap.Error(err))
		return err
	}

	var metrics *server.Metrics
	if cfg.Metrics.Enabled {
		metrics = server.NewMetrics()
		metricsSrv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener error", zap.Error(err))
			}
		}()
		defer metricsSrv.Close() //nolint:errcheck
		log.Info("metrics listening on", zap.String("address", cfg.Metrics.Addr))
	}

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           server.NewHandler(engine, metrics, log, cfg.Server.MaxBodyBytes),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		engine.Shutdown(context.Background())
		return err
	}
	log.Info("listening on", zap.String("address", address))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve error", zap.Error(err))
		}
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", cfg.Server.ShutdownTimeout), zap.Error(err))
	} else {
		log.Info("All connections closed gracefully")
	}

	engine.Shutdown(shutdownCtx)

	log.Info("Phonebook stopped")
	return nil
}
