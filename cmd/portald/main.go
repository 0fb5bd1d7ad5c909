// Package main wires together the portal service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/forgemedia/portal/internal/api"
	"github.com/forgemedia/portal/internal/clock/system"
	"github.com/forgemedia/portal/internal/config"
	"github.com/forgemedia/portal/internal/coordinator"
	"github.com/forgemedia/portal/internal/id/uuid"
	"github.com/forgemedia/portal/internal/lifecycle"
	"github.com/forgemedia/portal/internal/lifecycle/sinks"
	"github.com/forgemedia/portal/internal/logging"
	"github.com/forgemedia/portal/internal/metrics"
	"github.com/forgemedia/portal/internal/notify"
	notifymem "github.com/forgemedia/portal/internal/notify/memory"
	notifypubsub "github.com/forgemedia/portal/internal/notify/pubsub"
	objectgcs "github.com/forgemedia/portal/internal/objectstore/gcs"
	objectmem "github.com/forgemedia/portal/internal/objectstore/memory"
	objects3 "github.com/forgemedia/portal/internal/objectstore/s3"
	"github.com/forgemedia/portal/internal/portal"
	providermem "github.com/forgemedia/portal/internal/provider/memory"
	"github.com/forgemedia/portal/internal/provider/scribe"
	"github.com/forgemedia/portal/internal/reconciler"
	storemem "github.com/forgemedia/portal/internal/store/memory"
	storepg "github.com/forgemedia/portal/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	orders, closeOrders, err := buildOrderStore(ctx, cfg)
	if err != nil {
		logger.Fatal("order store init failed", zap.Error(err))
	}
	defer closeOrders()

	objects, closeObjects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal("object store init failed", zap.Error(err))
	}
	defer closeObjects()

	provider, err := buildProvider(cfg)
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}

	notifier, closeNotifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		logger.Fatal("notifier init failed", zap.Error(err))
	}
	defer closeNotifier()

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		logger.Fatal("lifecycle metrics init failed", zap.Error(err))
	}
	hub := lifecycle.NewHub(lifecycle.Config{
		BaseContext: ctx,
		Logger:      logger.Named("lifecycle"),
	}, sinks.NewLogSink(logger.Named("audit")), promSink)

	co := coordinator.New(
		orders,
		objects,
		provider,
		system.New(),
		uuid.New(),
		hub,
		notifier,
		coordinator.Config{
			CallbackBaseURL: cfg.Provider.CallbackBaseURL,
			CallbackToken:   cfg.Provider.CallbackToken,
			SourceTTL:       cfg.SourceTTL(),
			DownloadTTL:     cfg.DownloadTTL(),
		},
		logger.Named("coordinator"),
	)

	if cfg.Reconciler.Enabled {
		sweeper := reconciler.New(co, reconciler.Config{
			Interval: cfg.ReconcileInterval(),
		}, logger.Named("reconciler"))
		go func() {
			logger.Info("reconciler started", zap.Duration("interval", cfg.ReconcileInterval()))
			sweeper.Run(ctx)
		}()
	}

	apiServer := api.NewServer(co, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("lifecycle hub close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildOrderStore(ctx context.Context, cfg config.Config) (portal.OrderStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		store, err := storepg.New(ctx, storepg.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return storemem.NewOrderStore(), func() {}, nil
	}
}

func buildObjectStore(ctx context.Context, cfg config.Config) (portal.ObjectStore, func(), error) {
	switch cfg.Storage.Provider {
	case "s3":
		store, err := objects3.New(ctx, objects3.Config{
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PathStyle:       cfg.Storage.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		store, err := objectgcs.New(client, objectgcs.Config{Bucket: cfg.Storage.Bucket})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return objectmem.NewObjectStore(), func() {}, nil
	}
}

func buildProvider(cfg config.Config) (portal.TranscriptionProvider, error) {
	switch cfg.Provider.Mode {
	case "scribe":
		return scribe.New(scribe.Config{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			Timeout: cfg.ProviderTimeout(),
		})
	default:
		return providermem.New(), nil
	}
}

func buildNotifier(ctx context.Context, cfg config.Config) (notify.Notifier, func(), error) {
	switch cfg.Notify.Provider {
	case "pubsub":
		client, err := gpubsub.NewClient(ctx, cfg.Notify.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Notify.Topic)
		closer := func() {
			topic.Stop()
			_ = client.Close()
		}
		return notifypubsub.New(topic), closer, nil
	case "memory":
		return notifymem.New(), func() {}, nil
	default:
		return notify.NoOp{}, func() {}, nil
	}
}
