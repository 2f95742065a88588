package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelBookingHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/cancel_booking"
	deleteBookingHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/delete_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/get_booking"
	getResourceBookingsHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/get_resource_bookings"
	getUserBookingsHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/get_user_bookings"
	reserveBookingHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/reserve_booking"
	setStatusHandler "github.com/m04kA/SMC-FieldBookingService/internal/api/handlers/set_status"
	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-FieldBookingService/internal/config"
	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	notificationRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/notification"
	paymentRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/payment"
	"github.com/m04kA/SMC-FieldBookingService/internal/integrations/broadcaster"
	"github.com/m04kA/SMC-FieldBookingService/internal/integrations/filestorage"
	"github.com/m04kA/SMC-FieldBookingService/internal/integrations/mailqueue"
	userServiceClient "github.com/m04kA/SMC-FieldBookingService/internal/integrations/userservice"
	bookingsService "github.com/m04kA/SMC-FieldBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/capacity"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/notifications"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/reaper"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/scheduler"
	getAvailableSlotsUC "github.com/m04kA/SMC-FieldBookingService/internal/usecase/get_available_slots"
	reserveBookingUC "github.com/m04kA/SMC-FieldBookingService/internal/usecase/reserve_booking"
	"github.com/m04kA/SMC-FieldBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-FieldBookingService/pkg/logger"
	"github.com/m04kA/SMC-FieldBookingService/pkg/metrics"
	"github.com/m04kA/SMC-FieldBookingService/pkg/migrator"
	"github.com/m04kA/SMC-FieldBookingService/pkg/mq"
	"github.com/m04kA/SMC-FieldBookingService/pkg/redislock"
	"github.com/m04kA/SMC-FieldBookingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-FieldBookingService...")

	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal("Invalid booking timezone: %v", err)
	}

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Database.Migrate {
		if err := migrator.Up(db, cfg.Database.MigrationsDir); err != nil {
			log.Fatal("Failed to apply migrations: %v", err)
		}
		log.Info("Migrations applied from %s", cfg.Database.MigrationsDir)
	}

	// Обёртка считает метрики запросов; без метрик просто проксирует вызовы
	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil)
	}
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Репозитории
	bookingRepository := bookingRepo.NewRepository(wrappedDB)
	fieldRepository := fieldRepo.NewRepository(wrappedDB)
	paymentRepository := paymentRepo.NewRepository(wrappedDB)
	notificationRepository := notificationRepo.NewRepository(wrappedDB)

	// Redis: очередь писем и блокировка reaper
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
	}
	pingCancel()
	log.Info("Successfully connected to redis (addr=%s)", cfg.Redis.Addr)

	// Брокер событий (опционально)
	var publisher notifications.EventPublisher = broadcaster.Discard{}
	if cfg.RabbitMQ.Enabled {
		amqpPublisher, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to rabbitmq: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = broadcaster.New(amqpPublisher)
		log.Info("Event broadcasting enabled (exchange=%s)", cfg.RabbitMQ.Exchange)
	} else {
		log.Warn("RabbitMQ disabled, slot events will be discarded")
	}

	// Интеграционные клиенты
	userClient := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		log,
	)
	fileClient := filestorage.NewClient(
		cfg.FileStorage.URL,
		time.Duration(cfg.FileStorage.Timeout)*time.Second,
	)
	log.Info("Integration clients initialized (UserService=%s, FileStorage=%s)",
		cfg.UserService.URL, cfg.FileStorage.URL)

	// Сервисы
	dispatcher := notifications.NewDispatcher(
		notificationRepository,
		userClient,
		mailqueue.New(rdb, cfg.Redis.MailQueueKey),
		publisher,
		metricsCollector,
		log,
	)
	allocator := capacity.NewAllocator(bookingRepository, fieldRepository)

	bookingSvc := bookingsService.NewService(
		bookingRepository,
		fieldRepository,
		paymentRepository,
		fileClient,
		dispatcher,
		metricsCollector,
		txMgr,
		location,
		log,
	)

	// Use cases
	reserveBookingUseCase := reserveBookingUC.NewUseCase(
		bookingRepository,
		fieldRepository,
		allocator,
		dispatcher,
		metricsCollector,
		txMgr,
		location,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		bookingRepository,
		fieldRepository,
		location,
		cfg.Booking.AdvanceDays,
		log,
	)

	// Фоновые задачи
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	reaperDone := make(chan struct{})
	if cfg.Reaper.Enabled {
		lifecycleReaper := reaper.New(bookingRepository, dispatcher, metricsCollector, txMgr, location, log)
		runner := scheduler.NewRunner(
			lifecycleReaper,
			cfg.Reaper.IntervalDuration(),
			cfg.Reaper.TimeoutDuration(),
			metricsCollector,
			log,
		).WithGuard(scheduler.NewRedisGuard(redislock.New(rdb), cfg.Reaper.LockKey, cfg.Reaper.LockTTLDuration()))

		go func() {
			defer close(reaperDone)
			runner.Start(bgCtx)
		}()
		log.Info("Reaper started (interval=%ds, timeout=%ds)", cfg.Reaper.Interval, cfg.Reaper.Timeout)
	} else {
		close(reaperDone)
	}

	// Handlers
	reserveBooking := reserveBookingHandler.NewHandler(reserveBookingUseCase, location, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, location, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	getResourceBookings := getResourceBookingsHandler.NewHandler(bookingSvc, location, log)
	setStatus := setStatusHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, location, log)
	deleteBooking := deleteBookingHandler.NewHandler(bookingSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	api.HandleFunc("/resources/{resourceId}/available-slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	var reserve http.Handler = http.HandlerFunc(reserveBooking.Handle)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst,
			time.Duration(cfg.RateLimit.TTL)*time.Second)
		reserve = limiter.Middleware(reserve)
		go cleanupLimiter(bgCtx, limiter, time.Minute, log)
	}
	protected.Handle("/bookings", reserve).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}", cancelBooking.Handle).Methods(http.MethodDelete)
	protected.HandleFunc("/bookings/{bookingId}/status", setStatus.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/users/{userId}/bookings", getUserBookings.Handle).Methods(http.MethodGet)

	// --- Управление полем (владелец, администратор) ---
	protected.HandleFunc("/resources/{resourceId}/bookings", getResourceBookings.Handle).Methods(http.MethodGet)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.HandleFunc("/bookings/{bookingId}", deleteBooking.Handle).Methods(http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Останавливаем reaper и ждём текущий проход
	stopBackground()
	<-reaperDone

	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	log.Info("Server stopped gracefully")
}

// cleanupLimiter периодически удаляет лимитеры неактивных пользователей
func cleanupLimiter(ctx context.Context, limiter *middleware.RateLimiter, every time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Cleanup(); removed > 0 {
				log.Debug("Rate limiter cleanup: removed=%d", removed)
			}
		}
	}
}
