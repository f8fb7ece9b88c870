package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/theramind/availability/internal/consumer"
	"github.com/theramind/availability/internal/handlers"
	"github.com/theramind/availability/internal/hours"
	"github.com/theramind/availability/internal/inbox"
	"github.com/theramind/availability/internal/outbox"
	"github.com/theramind/availability/internal/storage"
	"github.com/theramind/availability/libs/config"
	"github.com/theramind/availability/libs/db"
	"github.com/theramind/availability/libs/httpx"
	"github.com/theramind/availability/libs/kafkax"
	otelx "github.com/theramind/availability/libs/otel"
	"github.com/theramind/availability/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultWorkingHours(logger *slog.Logger) hours.Weekly {
	raw := config.String("DEFAULT_WORKING_HOURS", "09:00-17:00")
	windows, err := hours.ParseWindows(raw)
	if err != nil {
		logger.Warn("invalid DEFAULT_WORKING_HOURS; using 09:00-17:00", "err", err)
		windows, _ = hours.ParseWindows("09:00-17:00")
	}
	return hours.Weekdays(windows)
}

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8084")
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

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
	}

	repo := storage.NewSlotRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	hoursStore := hours.NewStore(rdb, defaultWorkingHours(logger))

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	if topic := config.String("KAFKA_HOURS_TOPIC", "practice.working_hours.updated.v1"); topic != "" && rdb != nil {
		hoursConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				TherapistID string              `json:"therapist_id"`
				Hours       map[string][]string `json:"hours"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.TherapistID == "" {
				logger.Error("missing therapist_id in event", "topic", msg.Topic)
				return nil
			}
			weekly, err := hours.FromDayStrings(payload.Hours)
			if err != nil {
				logger.Error("unparseable working hours in event", "err", err, "therapist_id", payload.TherapistID)
				return nil
			}
			return hoursStore.Set(ctx, payload.TherapistID, weekly)
		})
		go hoursConsumer.Run(ctx)
	}

	availabilityHandler := handlers.NewAvailabilityHandler(repo, outboxRepo, repo, hoursStore, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	mux.HandleFunc("/api/v1/availability/slots", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			availabilityHandler.List(w, r)
		case http.MethodPost:
			availabilityHandler.Create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/availability/slots/remove", availabilityHandler.Remove)
	mux.HandleFunc("/api/v1/availability/grid", availabilityHandler.Grid)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limit httpx.Middleware
	if rdb != nil {
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	// The grid endpoint is fetched by the booking UI directly from the
	// browser, so CORS has to be open to the configured web origins.
	cors := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
		AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
		AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,Idempotency-Key,X-Request-Id")),
		MaxAge:         10 * time.Minute,
	})

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		cors,
		limit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
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
