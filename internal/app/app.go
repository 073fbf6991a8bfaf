package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bayazov/OrderManagement/internal/cache"
	"github.com/Bayazov/OrderManagement/internal/domain"
	healthcheck "github.com/Bayazov/OrderManagement/internal/health"
	"github.com/Bayazov/OrderManagement/internal/messaging/kafka"
	"github.com/Bayazov/OrderManagement/internal/metrics"
	"github.com/Bayazov/OrderManagement/internal/service/order"
	"github.com/Bayazov/OrderManagement/internal/storage/memory"
	"github.com/Bayazov/OrderManagement/internal/storage/postgres"
	transport "github.com/Bayazov/OrderManagement/internal/transport/http"
	"github.com/Bayazov/OrderManagement/internal/version"
)

// logSink пишет события статусов в лог, когда Kafka не настроена.
type logSink struct {
	logger *log.Entry
}

func (s *logSink) Publish(_ context.Context, event domain.OrderStatusChanged) error {
	s.logger.WithFields(log.Fields{
		"order_id":   event.OrderID,
		"old_status": event.OldStatus,
		"new_status": event.NewStatus,
	}).Info("order status changed")
	return nil
}

// Run собирает зависимости и держит оба HTTP-сервера до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	var (
		orderStore domain.OrderStore
		userStore  domain.UserStore
		pgStore    *postgres.Store
	)
	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres")
			}
		}()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		pgStore = store
		orderStore = postgres.NewOrderStore(store)
		userStore = postgres.NewUserStore(store)
		logger.Info("using postgres storage")
	} else {
		orderStore = memory.NewOrderStore()
		userStore = memory.NewUserStore()
		logger.Info("using in-memory storage")
	}

	if cfg.SeedUsers {
		if err := seedUsers(ctx, userStore, logger); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}

	serviceMetrics := metrics.New()

	// Kafka опциональна: без брокеров события уходят в лог.
	var sink domain.EventSink = &logSink{logger: log.WithField("component", "event-sink")}
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			sink = kafka.NewSink(producer, serviceMetrics, log.WithField("component", "kafka"))
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}
	defer func() {
		if kafkaProducer == nil {
			return
		}
		if err := kafkaProducer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			logger.Info("kafka producer closed")
		}
	}()

	orderService := order.New(orderStore, userStore, sink, log.WithField("component", "service"))
	queryCache := cache.NewOrdersCache(cfg.CacheTTL)

	healthHandler := healthcheck.NewHandler(version.String())
	if pgStore != nil {
		healthHandler.Register("postgres", healthcheck.NewPingChecker("postgres", pgStore))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           transport.NewRouter(orderService, userStore, queryCache, serviceMetrics, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// seedUsers создаёт демо-пользователей user/password и admin/admin, если их
// ещё нет.
func seedUsers(ctx context.Context, users domain.UserStore, logger *log.Entry) error {
	seeds := []struct {
		username string
		password string
		role     domain.Role
	}{
		{username: "user", password: "password", role: domain.RoleUser},
		{username: "admin", password: "admin", role: domain.RoleAdmin},
	}

	for _, seed := range seeds {
		if _, err := users.FindByUsername(ctx, seed.username); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := domain.User{
			Username:     seed.username,
			PasswordHash: string(hash),
			Role:         seed.role,
		}
		if err := users.Create(ctx, &user); err != nil {
			if errors.Is(err, domain.ErrUsernameTaken) {
				continue
			}
			return err
		}
		logger.WithFields(log.Fields{
			"username": seed.username,
			"role":     seed.role,
		}).Info("seed user created")
	}
	return nil
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
