package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"grabit/internal/app/commands"
	"grabit/internal/app/dto"
	availabilityapp "grabit/internal/app/handlers/availability"
	bookingapp "grabit/internal/app/handlers/booking"
	"grabit/internal/app/middleware"
	"grabit/internal/app/policies"
	"grabit/internal/app/queries"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	"grabit/internal/infra/config"
	mongodb "grabit/internal/infra/db/mongo"
	"grabit/internal/infra/db/postgres"
	ginserver "grabit/internal/infra/http/gin"
	"grabit/internal/infra/notify"
	"grabit/internal/infra/obs"
	"grabit/internal/infra/storage/memory"
	redisstore "grabit/internal/infra/storage/redis"
)

const devJWTSecret = "grabit-dev-secret"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	app.notifier.Start(ctx)
	go app.limiter.Run(ctx)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, obs.HealthHandlers{
		Checks: app.checks,
	}, app.handlers)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "notifier", cfg.Notifier)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	metrics  *obs.Metrics
	notifier *notify.Async
	limiter  *ginserver.RateLimiter
	checks   map[string]obs.Check
	closers  []func(context.Context) error
}

func (a *application) close(logger *slog.Logger) {
	a.notifier.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

type storage struct {
	factory  uow.UoWFactory
	listings policies.ListingProvider
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		metrics: obs.NewMetrics(),
		checks:  map[string]obs.Check{},
	}

	var mongoClient *mongodb.Client
	connectMongo := func() (*mongodb.Client, error) {
		if mongoClient != nil {
			return mongoClient, nil
		}
		c, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		mongoClient = c
		app.checks["mongo"] = c.Ping
		app.closers = append(app.closers, c.Disconnect)
		return c, nil
	}

	var redisClient *redis.Client
	connectRedis := func() *redis.Client {
		if redisClient == nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			app.checks["redis"] = redisstore.Ping(redisClient)
			app.closers = append(app.closers, func(context.Context) error { return redisClient.Close() })
		}
		return redisClient
	}

	store, err := openStorage(ctx, cfg, logger, app, connectMongo)
	if err != nil {
		return nil, err
	}

	sink, err := openNotifier(cfg, logger, app, connectRedis)
	if err != nil {
		return nil, err
	}
	app.notifier = notify.NewAsync(sink, notify.AsyncOptions{
		Sink:     cfg.Notifier,
		Size:     cfg.NotifyQueueSize,
		Logger:   logger,
		Recorder: app.metrics,
	})

	var idStore middleware.IdempotencyStore
	switch cfg.IdempotencyStore {
	case config.DriverRedis:
		idStore = redisstore.NewIdempotencyStore(connectRedis(), cfg.IdempotencyTTL)
	case config.DriverMongo:
		c, err := connectMongo()
		if err != nil {
			return nil, err
		}
		mongoStore := mongodb.NewIdempotencyStore(c.DB, cfg.IdempotencyTTL)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("idempotency indexes: %w", err)
		}
		idStore = mongoStore
	default:
		idStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	now := func() time.Time { return time.Now().UTC() }
	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](commandBus, bookingapp.CreateBookingKey,
		&bookingapp.CreateBookingHandler{Listings: store.listings, Now: now, NewID: uuid.NewString, Logger: logger})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *bookingapp.BookingActionResult](commandBus, bookingapp.ConfirmBookingKey,
		&bookingapp.ConfirmBookingHandler{Listings: store.listings, Now: now, Logger: logger})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *bookingapp.BookingActionResult](commandBus, bookingapp.CancelBookingKey,
		&bookingapp.CancelBookingHandler{Listings: store.listings, Now: now, Logger: logger})
	commands.RegisterHandler[bookingapp.SelfCancelBookingCommand, *bookingapp.BookingActionResult](commandBus, bookingapp.SelfCancelBookingKey,
		&bookingapp.SelfCancelBookingHandler{Now: now, Logger: logger})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, availabilityapp.CheckAvailabilityKey,
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: store.factory, Listings: store.listings, Logger: logger})
	queries.RegisterHandler[bookingapp.ListRequesterBookingsQuery, dto.BookingCollection](queryBus, bookingapp.ListRequesterBookingsKey,
		&bookingapp.ListRequesterBookingsHandler{UoWFactory: store.factory, Listings: store.listings, Logger: logger})
	queries.RegisterHandler[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](queryBus, bookingapp.ListOwnerBookingsKey,
		&bookingapp.ListOwnerBookingsHandler{UoWFactory: store.factory, Listings: store.listings, Logger: logger})

	validator := middleware.NewStructValidator(domainbooking.ErrMissingParameter)
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.EventDispatch(app.notifier, logger),
		middleware.ObserveCommands(app.metrics),
		middleware.Validation(validator),
		middleware.Authorization(middleware.ActorRequired{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(store.factory, nil, middleware.RetryPolicy{Backoff: cfg.RetryBackoff}),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.ObserveQueries(app.metrics),
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.ActorRequired{}),
	)

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = []byte(devJWTSecret)
		logger.Warn("JWT_SECRET not set, using the built-in dev secret")
		if token, err := ginserver.IssueToken(secret, "", "dev-renter", 24*time.Hour); err == nil {
			logger.Debug("dev token issued", "subject", "dev-renter", "token", token)
		}
	}

	app.limiter = ginserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Logger:   logger,
		},
		Availability: ginserver.AvailabilityHandler{
			Queries: queryBusWithMiddleware,
			Logger:  logger,
		},
		Dashboard: ginserver.DashboardHandler{
			Queries: queryBusWithMiddleware,
			Logger:  logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Secret: secret, Logger: logger}.Handle,
		RateLimit:      app.limiter.Middleware(),
		Metrics:        app.metrics.Handler(),
	}
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger, app *application, connectMongo func() (*mongodb.Client, error)) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return storage{}, err
		}
		app.checks["postgres"] = postgres.Ping(db)
		app.closers = append(app.closers, func(context.Context) error { return db.Close() })
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(db, cfg.MigrationsPath); err != nil {
				return storage{}, err
			}
			logger.Info("postgres migrations applied", "source", cfg.MigrationsPath)
		}
		return storage{factory: postgres.NewFactory(db), listings: postgres.NewListingReader(db)}, nil
	case config.DriverMongo:
		c, err := connectMongo()
		if err != nil {
			return storage{}, err
		}
		if err := c.EnsureIndexes(ctx); err != nil {
			return storage{}, fmt.Errorf("mongo indexes: %w", err)
		}
		return storage{factory: mongodb.Factory{DB: c.DB}, listings: mongodb.NewListingReader(c.DB)}, nil
	default:
		catalog := memory.NewListingCatalog()
		path := cfg.ListingsFixtures
		if path == "" {
			path = defaultListingFixturesPath()
		}
		n, err := memory.LoadListingFixtures(path, catalog)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("listing fixtures file not found, skipping", "path", path)
		case err != nil:
			logger.Warn("listing fixtures load failed", "error", err, "path", path, "loaded", n)
		default:
			logger.Info("listing fixtures imported", "path", path, "count", n)
		}
		return storage{factory: memory.NewFactory(memory.NewBookingStore()), listings: catalog}, nil
	}
}

func openNotifier(cfg config.Config, logger *slog.Logger, app *application, connectRedis func() *redis.Client) (policies.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierKafka:
		k, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return k.Close() })
		return k, nil
	case config.NotifierRedis:
		return notify.NewRedisNotifier(connectRedis(), cfg.RedisChannel), nil
	default:
		return notify.LogNotifier{Logger: logger}, nil
	}
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
