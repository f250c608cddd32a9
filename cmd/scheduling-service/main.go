package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/CST438P3G6/slotbook/internal/booking"
	"github.com/CST438P3G6/slotbook/internal/conflict"
	"github.com/CST438P3G6/slotbook/internal/feed"
	"github.com/CST438P3G6/slotbook/internal/handlers"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/internal/schedule"
	"github.com/CST438P3G6/slotbook/internal/storage"
	"github.com/CST438P3G6/slotbook/libs/auth"
	"github.com/CST438P3G6/slotbook/libs/config"
	"github.com/CST438P3G6/slotbook/libs/db"
	"github.com/CST438P3G6/slotbook/libs/httpx"
	"github.com/CST438P3G6/slotbook/libs/kafkax"
	otelx "github.com/CST438P3G6/slotbook/libs/otel"
	"github.com/CST438P3G6/slotbook/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	// The auth provider is external: we only verify its tokens, via shared
	// secret or its published JWKS.
	jwtSecret := config.String("AUTH_JWT_SECRET", "")
	var jwksClient *auth.JWKSClient
	if url := config.String("AUTH_JWKS_URL", ""); url != "" {
		jwksClient = auth.NewJWKSClient(url, config.Minutes("AUTH_JWKS_TTL_MINUTES", 5*time.Minute))
	}
	if jwtSecret == "" && jwksClient == nil {
		panic("AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	verifier := auth.NewVerifier(jwtSecret, jwksClient)

	var rdb *redis.Client
	var locker booking.Locker
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		locker = booking.NewRedisLocker(rdb, 5*time.Second)
	} else {
		logger.Warn("REDIS_ADDR not set; per-business booking lock is process-local")
		locker = booking.NewMemoryLocker()
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)
	index := conflict.NewIndex(repo)
	slotCache := schedule.NewCache(time.Duration(config.Int("SLOT_CACHE_TTL_SECONDS", 30)) * time.Second)
	generator := schedule.NewGenerator(repo, index, slotCache)
	bookings := booking.NewService(repo, index, locker, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if brokers != "" {
		feedConsumer := feed.New(logger, slotCache, feed.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topics:  []string{outbox.TopicAppointmentChanged, outbox.TopicBusinessHoursChanged},
		})
		go feedConsumer.Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKERS not set; change feed disabled, slot cache relies on TTL only")
	}

	handler := handlers.New(repo, generator, bookings, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/slots", handler.Slots)
	api.HandleFunc("/api/v1/book", handler.Book)
	api.HandleFunc("/api/v1/appointments", handler.ListAppointments)
	api.HandleFunc("/api/v1/appointments/cancel", handler.Cancel)
	api.HandleFunc("/api/v1/appointments/status", handler.Status)
	api.HandleFunc("/api/v1/business/hours", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			handler.UpsertHours(w, r)
			return
		}
		handler.GetHours(w, r)
	})
	api.HandleFunc("/api/v1/services", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.CreateService(w, r)
			return
		}
		handler.ListServices(w, r)
	})
	mux.Handle("/api/v1/", httpx.Chain(api, handlers.RequireSession(verifier)))

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(30 * time.Second),
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, "rl:"+service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
