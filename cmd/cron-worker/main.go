package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/koumale-backend/internal/cron"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/httpclient"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/metrics"
	"github.com/angelmondragon/koumale-backend/pkg/migrate"
	"github.com/angelmondragon/koumale-backend/pkg/redis"
	"github.com/angelmondragon/koumale-backend/pkg/tasks"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	runOnce := flag.String("run", "", "run the named job once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock cron.Lock = cron.LocalLock{}
	if redis.Configured(cfg.Redis) {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, 0)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	} else {
		logg.Warn(context.Background(), "redis not configured; cron runs are not coordinated across instances")
	}

	breakerMetrics := metrics.NewBreakerMetrics(prometheus.DefaultRegisterer)
	pushClient := httpclient.New(cfg.ImageProxy.Timeout, httpclient.DefaultBreakerConfig("webpush"), logg, breakerMetrics)

	vendorRepo := vendors.NewRepository(dbClient.DB())
	pushService, err := push.NewService(push.ServiceParams{
		Store:     push.NewRepository(dbClient.DB()),
		Sender:    push.NewSender(cfg.VAPID, pushClient, logg),
		PublicKey: cfg.VAPID.PublicKey,
		Logg:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create push service", err)
		os.Exit(1)
	}
	notifier, err := push.NewNotifier(pushService, tasks.Inline{Logg: logg}, vendorRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create push notifier", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if err := cron.RegisterNotificationJobs(registry, cron.NotificationJobsParams{
		Logger:   logg,
		Products: product.NewRepository(dbClient.DB()),
		Vendors:  vendorRepo,
		Notifier: notifier,
	}); err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.TickInterval,
		Location: cfg.Cron.Location(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"timezone":    cfg.Cron.Timezone,
	})

	if *runOnce != "" {
		if err := service.RunNow(ctx, *runOnce); err != nil {
			logg.Error(ctx, "failed to run job", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
