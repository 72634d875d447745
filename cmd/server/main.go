package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manpreetbhatti/inkboard/backend/internal/activity"
	"github.com/manpreetbhatti/inkboard/backend/internal/api"
	"github.com/manpreetbhatti/inkboard/backend/internal/collab"
	"github.com/manpreetbhatti/inkboard/backend/internal/config"
	"github.com/manpreetbhatti/inkboard/backend/internal/db"
	"github.com/manpreetbhatti/inkboard/backend/internal/discovery"
	"github.com/manpreetbhatti/inkboard/backend/internal/room"
	"github.com/manpreetbhatti/inkboard/backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg.LogLevel)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		_ = database.Close()
	}()
	log.Info("database initialized", "path", cfg.DBPath)

	activitySvc := activity.New(database, activity.Config{Interval: cfg.ActivityFlushInterval}, log)
	activitySvc.Start()
	defer activitySvc.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := collab.NewHub(room.NewRegistry(), activitySvc, log)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	opts := ws.Options{
		SendBufferSize:    cfg.SendBufferSize,
		MaxMessageSize:    cfg.MaxMessageSize,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, opts, log, w, r)
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.NewRouter(api.New(hub, database, log), wsHandler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.MDNSEnabled {
		advert, err := discovery.Advertise(cfg.MDNSInstance, cfg.Port)
		if err != nil {
			log.Warn("mdns advertisement disabled", "err", err)
		} else {
			defer advert.Shutdown()
			log.Info("advertising on the local network", "instance", cfg.MDNSInstance, "service", discovery.ServiceType)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("inkboard server starting", "address", server.Addr,
			"ws", "/ws", "api", "/api", "metrics", "/metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		stop()
		<-hubDone
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	<-hubDone
	log.Info("server stopped cleanly")
	return nil
}
