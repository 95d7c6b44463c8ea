package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"campus-facility-backend/config"
	"campus-facility-backend/internal/api"
	"campus-facility-backend/internal/auth"
	"campus-facility-backend/internal/db"
	"campus-facility-backend/internal/facility"
	"campus-facility-backend/internal/mq"
	"campus-facility-backend/internal/notification"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/seed"
	"campus-facility-backend/internal/store"
	"campus-facility-backend/internal/sweep"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and overdue sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	// Setup logger
	logger := log.New(os.Stdout, "campus-backend ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; web push alerts are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := notify.NewBus()
	svc, err := openService(ctx, cfg, store.NewGormStore(gormDB), bus)
	if err != nil {
		return err
	}
	logger.Println("facility engine loaded")

	if cfg.SeedPath != "" {
		f, err := seed.Load(cfg.SeedPath)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, svc, f, false); err != nil {
			return err
		}
	}

	var events notification.EventPublisher
	if cfg.Events.AMQPURL != "" {
		pub, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		events = pub
		logger.Printf("publishing events to exchange %s", cfg.Events.Exchange)
	}

	subs := store.NewSubscriptionStore(gormDB)
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, subs, webpushOptions, events)
	pool.Start(ctx)
	if events != nil {
		notification.ForwardChanges(bus, pool)
	}
	svc.OnSuspend(notification.SuspensionAlert(pool))

	sweepSvc, err := sweep.NewService(cfg.Sweep.Enabled, cfg.Sweep.Schedule, svc)
	if err != nil {
		return err
	}
	go sweepSvc.Run(ctx)

	authenticator, err := auth.New(cfg.Auth.JWTSecret, cfg.TokenTTL(), cfg.Auth.Staff)
	if err != nil {
		return err
	}
	if len(cfg.Auth.Staff) == 0 {
		logger.Println("no staff accounts configured; every protected route will reject")
	}

	handler := api.NewHandler(svc, authenticator, subs, webpushOptions)
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
		// Change streams end when ctx is cancelled at shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}

func openService(ctx context.Context, cfg *config.Config, st store.Store, bus *notify.Bus) (*facility.Service, error) {
	opts, err := cfg.FacilityOptions()
	if err != nil {
		return nil, err
	}
	return facility.Open(ctx, st, bus, opts)
}
