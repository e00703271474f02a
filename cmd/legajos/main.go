package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsocial118/SISOC-sub000/common/database"
	"github.com/dsocial118/SISOC-sub000/common/logger"
	"github.com/dsocial118/SISOC-sub000/common/mqtt"
	rediscommon "github.com/dsocial118/SISOC-sub000/common/redis"
	"github.com/dsocial118/SISOC-sub000/internal/authz"
	"github.com/dsocial118/SISOC-sub000/internal/config"
	"github.com/dsocial118/SISOC-sub000/internal/events"
	httpapi "github.com/dsocial118/SISOC-sub000/internal/http"
	"github.com/dsocial118/SISOC-sub000/internal/metrics"
	"github.com/dsocial118/SISOC-sub000/internal/registry"
	"github.com/dsocial118/SISOC-sub000/internal/repository"
	"github.com/dsocial118/SISOC-sub000/internal/service"
	"github.com/dsocial118/SISOC-sub000/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "legajos-vaac"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when enabled and reachable, otherwise the in-memory store.
	var repo repository.Store = repository.NewMemoryStore()
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			defer database.Close(db)
			repo = repository.NewPostgresStore(db)
			log.Info("DB enabled for legajos", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	} else {
		log.Info("DB disabled, using memory store")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var publishers events.Multi
	var kv store.KV
	var redisClient *rediscommon.Client
	if cfg.RedisEnabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		defer rediscommon.Close(redisClient)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		publishers = append(publishers, events.NewStreamPublisher(redisClient, cfg.Events.Stream))
		kv = store.NewRedisKV(redisClient)
	}
	if cfg.MQTTEnabled {
		mc, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			return err
		}
		defer mc.Disconnect()
		publishers = append(publishers, events.NewMQTTPublisher(mc, cfg.MQTTPrefix))
		log.Info("MQTT fan-out enabled", zap.String("broker", cfg.MQTT.Broker))
	}

	opts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}
	if len(publishers) > 0 {
		opts = append(opts, service.WithPublisher(publishers))
	}
	if cfg.Registry.URL != "" {
		opts = append(opts, service.WithRegistry(registry.NewClient(cfg.Registry.URL, cfg.Registry.Token, cfg.Registry.Timeout, log)))
	}
	svc := service.New(repo, opts...)

	az, err := authz.NewService(cfg.AuthzPolicy, log)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(log, m)
	router.RegisterOps(cfg.Metrics.Path)
	httpapi.NewHandler(svc, az, kv, log).Register(router)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if redisClient != nil {
		consumer := events.NewDashboardConsumer(redisClient, kv, events.DashboardConfig{
			Stream:    cfg.Events.Stream,
			Group:     cfg.Events.Group,
			Consumer:  cfg.Events.Consumer,
			BatchSize: cfg.Events.BatchSize,
		}, log)
		g.Go(func() error { return consumer.Start(gctx) })
	}

	log.Info("legajos started", zap.String("addr", cfg.HTTP.Addr), zap.Bool("db", db != nil), zap.Bool("redis", redisClient != nil))
	if err := g.Wait(); err != nil {
		log.Error("legajos stopped with error", zap.Error(err))
		return err
	}
	log.Info("legajos stopped")
	return nil
}
