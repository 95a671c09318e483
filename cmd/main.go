package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	bookingSessionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/booking_session"
	cancelAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/cancel_appointment"
	confirmPaymentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/confirm_payment"
	deleteAvailabilityHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/delete_availability"
	getAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_appointment"
	getAvailableDatesHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_available_dates"
	getAvailableSlotsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_available_slots"
	getDoctorAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_doctor_appointments"
	getDoctorAvailabilityHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_doctor_availability"
	getPatientAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_patient_appointments"
	reserveAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/reserve_appointment"
	upsertAvailabilityHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/upsert_availability"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/expiry"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/migrations"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notificationservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/payment"
	appointmentsService "github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	availabilityService "github.com/m04kA/SMC-AppointmentService/internal/service/availability"
	"github.com/m04kA/SMC-AppointmentService/internal/session"
	confirmPaymentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	expireReservationUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/expire_reservation"
	getAvailableDatesUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
	getAvailableSlotsUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	releaseAppointmentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
	reserveSlotUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "appointmentservice",
		Short: "Сервис записи к врачу: свободные слоты, удержание и оплата",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to TOML config")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), configPath)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appointmentStore общий набор операций postgres и in-memory репозиториев записей
type appointmentStore interface {
	Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	ListActiveByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.Appointment, error)
	ListByDoctor(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]int64, error)
	Confirm(ctx context.Context, id int64, paymentMethod, paymentReference string, confirmedAt time.Time) error
	MarkPaymentFailed(ctx context.Context, id int64, paymentMethod string, at time.Time) error
	Cancel(ctx context.Context, id int64, reason domain.CancellationReason, paymentStatus domain.PaymentStatus, cancelledAt time.Time) error
	Expire(ctx context.Context, id int64, at time.Time) error
}

// availabilityStore общий набор операций хранилищ рабочих окон
type availabilityStore interface {
	Upsert(ctx context.Context, w *domain.AvailabilityWindow) (*domain.AvailabilityWindow, error)
	GetByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) (*domain.AvailabilityWindow, error)
	ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]*domain.AvailabilityWindow, error)
	Delete(ctx context.Context, doctorID int64, date time.Time) error
}

type txManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

type expiryScheduler interface {
	Schedule(ctx context.Context, appointmentID int64, at time.Time) error
	Cancel(ctx context.Context, appointmentID int64) error
	Close() error
}

type keyLocker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (keylock.Unlock, error)
}

type storage struct {
	appointments appointmentStore
	availability availabilityStore
	tx           txManager
	close        func()
}

func migrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Warn("Storage driver is %s, nothing to migrate", cfg.Storage.Driver)
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info("Migrations applied (host=%s, db=%s)", cfg.Database.Host, cfg.Database.DBName)
	return nil
}

func serve(configPath string) error {
	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	log.Info("Starting SMC-AppointmentService...")
	log.Info("Configuration loaded from %s", configPath)

	// Контекст фоновых задач, отменяется при остановке
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}
	policy := domain.BookingPolicy{
		Location:                loc,
		AdvanceBookingDays:      cfg.Booking.AdvanceBookingDays,
		MinBookingNoticeMinutes: cfg.Booking.MinBookingNoticeMinutes,
		HoldDuration:            time.Duration(cfg.Payment.HoldMinutes) * time.Minute,
	}
	arbitration := reserveSlotUC.ArbitrationConfig{
		Timeout:  time.Duration(cfg.Booking.ArbitrationTimeoutMs) * time.Millisecond,
		Attempts: cfg.Booking.ArbitrationAttempts,
		Backoff:  time.Duration(cfg.Booking.ArbitrationBackoffMs) * time.Millisecond,
	}

	// Хранилище
	store, err := openStorage(bgCtx, cfg, metricsCollector, log)
	if err != nil {
		return err
	}
	defer store.close()

	// Точка арбитража (врач, дата): Redis при нескольких инстансах, иначе в памяти процесса
	var (
		locker      keyLocker
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(bgCtx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		locker = keylock.NewRedis(redisClient, time.Duration(cfg.Redis.LockTTLSec)*time.Second, log)
		log.Info("Redis arbitration enabled (addr=%s)", cfg.Redis.Addr)
	} else {
		locker = keylock.NewLocal()
		log.Info("In-process arbitration enabled")
	}

	// Инициализируем интеграционных клиентов
	var doctorClient interface {
		GetDoctor(ctx context.Context, doctorID int64) (*doctorservice.Doctor, error)
	}
	if cfg.DoctorService.URL != "" {
		doctorClient = doctorservice.NewClient(
			cfg.DoctorService.URL,
			time.Duration(cfg.DoctorService.Timeout)*time.Second,
			log,
		)
		log.Info("DoctorService client initialized (url=%s, timeout=%ds)", cfg.DoctorService.URL, cfg.DoctorService.Timeout)
	} else {
		doctorClient = doctorservice.NewStatic(cfg.Payment.DefaultFee, cfg.Payment.Currency)
		log.Warn("DoctorService url is empty, using static doctor directory (fee=%d %s)",
			cfg.Payment.DefaultFee, cfg.Payment.Currency)
	}

	var notifier interface {
		Notify(ctx context.Context, event notificationservice.Event) error
	}
	if cfg.NotificationService.URL != "" {
		notifier = notificationservice.NewClient(
			cfg.NotificationService.URL,
			time.Duration(cfg.NotificationService.Timeout)*time.Second,
			log,
		)
	} else {
		notifier = notificationservice.Noop{}
	}

	var gateway payment.Gateway
	switch cfg.Payment.Provider {
	case config.PaymentProviderStripe:
		gateway = payment.NewStripe(cfg.Payment.StripeSecretKey)
	default:
		gateway = payment.NewSimulated()
	}
	log.Info("Payment provider: %s, hold window %d min", cfg.Payment.Provider, cfg.Payment.HoldMinutes)

	// Снятие просроченных удержаний
	expireUseCase := expireReservationUC.NewUseCase(
		store.appointments,
		store.tx,
		notifier,
		metricsCollector,
		log,
	)

	var (
		scheduler expiryScheduler
		worker    *expiry.Worker
	)
	if cfg.Redis.Enabled() {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		scheduler = expiry.NewAsynqScheduler(redisOpt, cfg.Redis.Queue, log)
		worker = expiry.NewWorker(redisOpt, cfg.Redis.Queue, cfg.Redis.Concurrency, expireUseCase.Expire, log, log.Zap().Sugar())
		if err := worker.Start(); err != nil {
			return fmt.Errorf("failed to start expiry worker: %w", err)
		}
		log.Info("Asynq expiry worker started (queue=%s)", cfg.Redis.Queue)
	} else {
		scheduler = expiry.NewLocalScheduler(expireUseCase.Expire, 10*time.Second, log)
	}
	defer scheduler.Close()

	// Страховочный обход на случай потерянных таймеров (рестарт процесса)
	sweeper := expiry.NewSweeper(
		store.appointments,
		expireUseCase.Expire,
		time.Duration(cfg.Booking.ExpirySweepIntervalSec)*time.Second,
		log,
	)
	go sweeper.Run(bgCtx)

	// Инициализируем сервисы
	appointmentsSvc := appointmentsService.NewService(store.appointments, doctorClient, log)
	availabilitySvc := availabilityService.NewService(
		store.availability,
		store.appointments,
		doctorClient,
		locker,
		store.tx,
		policy,
		log,
	)

	// Инициализируем use cases
	getAvailableDatesUseCase := getAvailableDatesUC.NewUseCase(store.appointments, store.availability, doctorClient, policy, log)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(store.appointments, store.availability, doctorClient, policy, log)
	reserveSlotUseCase := reserveSlotUC.NewUseCase(
		store.appointments,
		store.availability,
		doctorClient,
		locker,
		store.tx,
		scheduler,
		metricsCollector,
		policy,
		arbitration,
		log,
	)
	confirmPaymentUseCase := confirmPaymentUC.NewUseCase(
		store.appointments,
		gateway,
		store.tx,
		scheduler,
		notifier,
		metricsCollector,
		log,
	)
	releaseAppointmentUseCase := releaseAppointmentUC.NewUseCase(
		store.appointments,
		doctorClient,
		store.tx,
		scheduler,
		notifier,
		log,
	)

	bookingMachine := session.NewMachine(
		getAvailableDatesUseCase,
		getAvailableSlotsUseCase,
		reserveSlotUseCase,
		confirmPaymentUseCase,
		releaseAppointmentUseCase,
		log,
	)

	// Инициализируем handlers
	getAvailableDates := getAvailableDatesHandler.NewHandler(getAvailableDatesUseCase, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	getDoctorAvailability := getDoctorAvailabilityHandler.NewHandler(availabilitySvc, log)
	upsertAvailability := upsertAvailabilityHandler.NewHandler(availabilitySvc, log)
	deleteAvailability := deleteAvailabilityHandler.NewHandler(availabilitySvc, log)
	reserveAppointment := reserveAppointmentHandler.NewHandler(reserveSlotUseCase, log)
	confirmPayment := confirmPaymentHandler.NewHandler(confirmPaymentUseCase, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(releaseAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentsSvc, log)
	getPatientAppointments := getPatientAppointmentsHandler.NewHandler(appointmentsSvc, log)
	getDoctorAppointments := getDoctorAppointmentsHandler.NewHandler(appointmentsSvc, log)
	bookingSession := bookingSessionHandler.NewHandler(bookingMachine, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// Ограничение частоты для запросов, захватывающих слоты и деньги
	limited := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimit.RPS,
			cfg.RateLimit.Burst,
			time.Duration(cfg.RateLimit.VisitorTTLSec)*time.Second,
		)
		limited = func(h http.HandlerFunc) http.Handler { return limiter.Limit(h) }

		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-bgCtx.Done():
					return
				case <-ticker.C:
					if n := limiter.Cleanup(); n > 0 {
						log.Debug("Rate limiter: removed %d idle visitors", n)
					}
				}
			}
		}()
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Даты с хотя бы одним свободным слотом
	api.HandleFunc("/doctors/{doctorId}/available-dates", getAvailableDates.Handle).Methods(http.MethodGet)

	// Слоты врача на дату
	api.HandleFunc("/doctors/{doctorId}/slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// Рабочие окна врача за период
	api.HandleFunc("/doctors/{doctorId}/availability", getDoctorAvailability.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (Bearer JWT или X-User-ID)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.Auth.JWTSecret)))

	// --- Записи пациента ---
	protected.Handle("/appointments", limited(reserveAppointment.Handle)).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.Handle("/appointments/{appointmentId}/payment", limited(confirmPayment.Handle)).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/patients/me/appointments", getPatientAppointments.Handle).Methods(http.MethodGet)

	// Пошаговый сценарий записи
	protected.Handle("/booking-session", limited(bookingSession.Handle)).Methods(http.MethodPost)

	// --- Кабинет врача ---
	protected.HandleFunc("/doctors/{doctorId}/appointments", getDoctorAppointments.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/doctors/{doctorId}/availability/{date}", upsertAvailability.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/doctors/{doctorId}/availability/{date}", deleteAvailability.Handle).Methods(http.MethodDelete)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	})

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(r),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("Server failed: %v", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	stopBackground()
	if worker != nil {
		worker.Shutdown()
	}

	log.Info("Server stopped gracefully")
	return nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openStorage(ctx context.Context, cfg *config.Config, collector *metrics.Metrics, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		mem := memory.NewStore()
		return &storage{
			appointments: mem.Appointments(),
			availability: mem.Availability(),
			tx:           memory.NewTxManager(),
			close:        func() {},
		}, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Storage.AutoMigrate {
		if err := migrations.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("Database schema is up to date")
	}

	// Обёртка собирает метрики запросов и пула (при выключенных метриках только проксирует)
	stopMetricsCh := make(chan struct{})
	wrappedDB := dbmetrics.WrapWithDefault(db, collector, cfg.Metrics.ServiceName, stopMetricsCh)

	return &storage{
		appointments: appointmentRepo.NewRepository(wrappedDB),
		availability: availabilityRepo.NewRepository(wrappedDB),
		tx:           txmanager.NewTransactionManager(wrappedDB),
		close: func() {
			close(stopMetricsCh)
			db.Close()
		},
	}, nil
}
