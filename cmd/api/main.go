package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/koumale-backend/api/controllers"
	"github.com/angelmondragon/koumale-backend/api/routes"
	"github.com/angelmondragon/koumale-backend/internal/auth"
	"github.com/angelmondragon/koumale-backend/internal/cart"
	"github.com/angelmondragon/koumale-backend/internal/images"
	product "github.com/angelmondragon/koumale-backend/internal/products"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/internal/reviews"
	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/email"
	"github.com/angelmondragon/koumale-backend/pkg/httpclient"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/metrics"
	"github.com/angelmondragon/koumale-backend/pkg/migrate"
	"github.com/angelmondragon/koumale-backend/pkg/redis"
	"github.com/angelmondragon/koumale-backend/pkg/slug"
	"github.com/angelmondragon/koumale-backend/pkg/tasks"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if redis.Configured(cfg.Redis) {
		redisClient, err = redis.New(bootCtx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(bootCtx, "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(bootCtx, "redis not configured; auth rate limiting and google sign-in are disabled")
	}

	dispatcher, err := tasks.NewDispatcher(tasks.Config{
		Workers:   cfg.Tasks.Workers,
		QueueSize: cfg.Tasks.QueueSize,
	}, logg, metrics.NewTaskMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(ctx); err != nil {
			logg.Error(ctx, "error draining background tasks", err)
		}
	}()

	breakerMetrics := metrics.NewBreakerMetrics(prometheus.DefaultRegisterer)
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	usersService, err := users.NewService(userRepo)
	if err != nil {
		return err
	}

	vendorRepo := vendors.NewRepository(conn)
	allocator, err := slug.NewAllocator(vendorRepo)
	if err != nil {
		return err
	}
	vendorsService, err := vendors.NewService(vendors.ServiceParams{
		Repo:      vendorRepo,
		Owners:    userRepo,
		Allocator: allocator,
		Logg:      logg,
	})
	if err != nil {
		return err
	}

	pushClient := httpclient.New(cfg.ImageProxy.Timeout, httpclient.DefaultBreakerConfig("webpush"), logg, breakerMetrics)
	pushService, err := push.NewService(push.ServiceParams{
		Store:     push.NewRepository(conn),
		Sender:    push.NewSender(cfg.VAPID, pushClient, logg),
		PublicKey: cfg.VAPID.PublicKey,
		Logg:      logg,
	})
	if err != nil {
		return err
	}
	notifier, err := push.NewNotifier(pushService, dispatcher, vendorRepo, logg)
	if err != nil {
		return err
	}

	productRepo := product.NewRepository(conn)
	productsService, err := product.NewService(productRepo, dbClient, vendorsService, notifier, logg)
	if err != nil {
		return err
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(conn),
		Products:  productRepo,
		Vendors:   vendorsService,
		Announcer: notifier,
		Logg:      logg,
	})
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, productRepo)
	if err != nil {
		return err
	}

	imageBreaker := httpclient.DefaultBreakerConfig("image-proxy")
	imageBreaker.Timeout = cfg.ImageProxy.BreakerTimeout
	imageBreaker.FailureRatio = cfg.ImageProxy.BreakerFailureRatio
	imageBreaker.MinRequests = cfg.ImageProxy.BreakerMinRequests
	imagesService, err := images.NewService(
		images.NewRepository(conn),
		httpclient.New(cfg.ImageProxy.Timeout, imageBreaker, logg, breakerMetrics),
		cfg.ImageProxy.MaxBytes,
		logg,
	)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:     userRepo,
		Vendors:   vendorsService,
		Announcer: notifier,
		Mailer:    email.NewSender(cfg.SMTP, logg),
		Tasks:     dispatcher,
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		Logg:      logg,
	})
	if err != nil {
		return err
	}

	deps := routes.Dependencies{
		Auth:     authService,
		Users:    usersService,
		Vendors:  vendorsService,
		Products: productsService,
		Reviews:  reviewsService,
		Cart:     cartService,
		Push:     pushService,
		Images:   imagesService,
		Pingers:  map[string]controllers.Pinger{"db": dbClient},
	}
	if redisClient != nil {
		deps.RateLimits = redisClient
		deps.Pingers["redis"] = redisClient
		if cfg.FeatureFlags.GoogleLogin {
			google, err := auth.NewGoogle(auth.GoogleParams{
				OAuth:       cfg.GoogleOAuth,
				FrontendURL: cfg.App.FrontendURL,
				JWT:         cfg.JWT,
				States:      redisClient,
				Users:       userRepo,
				Logg:        logg,
			})
			if err != nil {
				return err
			}
			deps.Google = google
		}
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(bootCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
