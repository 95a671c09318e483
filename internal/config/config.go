package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	PaymentProviderSimulated = "simulated"
	PaymentProviderStripe    = "stripe"
)

// ErrInvalidConfig некорректное значение в конфигурации
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server              ServerConfig        `toml:"server"`
	Database            DatabaseConfig      `toml:"database"`
	Storage             StorageConfig       `toml:"storage"`
	Redis               RedisConfig         `toml:"redis"`
	Logs                LogsConfig          `toml:"logs"`
	Metrics             MetricsConfig       `toml:"metrics"`
	DoctorService       ServiceClientConfig `toml:"doctor_service"`
	NotificationService ServiceClientConfig `toml:"notification_service"`
	Payment             PaymentConfig       `toml:"payment"`
	Booking             BookingConfig       `toml:"booking"`
	Auth                AuthConfig          `toml:"auth"`
	RateLimit           RateLimitConfig     `toml:"rate_limit"`
	CORS                CORSConfig          `toml:"cors"`
}

// ServerConfig параметры HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig подключение к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// StorageConfig выбор хранилища
type StorageConfig struct {
	Driver      string `toml:"driver"` // postgres | memory
	AutoMigrate bool   `toml:"auto_migrate"`
}

// RedisConfig Redis для распределённых блокировок и очереди asynq
// Пустой Addr означает работу в одном процессе без Redis
type RedisConfig struct {
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	LockTTLSec  int    `toml:"lock_ttl_sec"`
	Queue       string `toml:"queue"`
	Concurrency int    `toml:"concurrency"`
}

// Enabled настроен ли Redis
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LogsConfig логирование
type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig Prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// ServiceClientConfig внешний HTTP сервис, пустой URL отключает клиента
type ServiceClientConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// PaymentConfig платёжный шлюз
type PaymentConfig struct {
	Provider        string `toml:"provider"` // simulated | stripe
	StripeSecretKey string `toml:"stripe_secret_key"`
	HoldMinutes     int    `toml:"hold_minutes"`
	DefaultFee      int64  `toml:"default_fee"` // для статического справочника врачей
	Currency        string `toml:"currency"`
}

// BookingConfig правила записи и арбитража
type BookingConfig struct {
	Timezone                string `toml:"timezone"`
	AdvanceBookingDays      int    `toml:"advance_booking_days"`
	MinBookingNoticeMinutes int    `toml:"min_booking_notice_minutes"`
	ArbitrationTimeoutMs    int    `toml:"arbitration_timeout_ms"`
	ArbitrationAttempts     int    `toml:"arbitration_attempts"`
	ArbitrationBackoffMs    int    `toml:"arbitration_backoff_ms"`
	ExpirySweepIntervalSec  int    `toml:"expiry_sweep_interval_sec"`
}

// Location часовой пояс окон врачей
func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// AuthConfig аутентификация, пустой секрет включает режим X-User-ID
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// RateLimitConfig ограничение частоты изменяющих запросов
type RateLimitConfig struct {
	Enabled       bool    `toml:"enabled"`
	RPS           float64 `toml:"rps"`
	Burst         int     `toml:"burst"`
	VisitorTTLSec int     `toml:"visitor_ttl_sec"`
}

// CORSConfig разрешённые источники
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Load читает конфигурацию из TOML файла
// Перед чтением подгружается .env (если есть), секреты из окружения перекрывают файл
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default конфигурация по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "appointments",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Storage: StorageConfig{
			Driver:      StorageDriverPostgres,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			LockTTLSec:  10,
			Queue:       "appointments",
			Concurrency: 5,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			Path:        "/metrics",
			ServiceName: "appointmentservice",
		},
		DoctorService:       ServiceClientConfig{Timeout: 5},
		NotificationService: ServiceClientConfig{Timeout: 5},
		Payment: PaymentConfig{
			Provider:    PaymentProviderSimulated,
			HoldMinutes: 15,
			DefaultFee:  5000,
			Currency:    "usd",
		},
		Booking: BookingConfig{
			Timezone:                "UTC",
			AdvanceBookingDays:      30,
			MinBookingNoticeMinutes: 0,
			ArbitrationTimeoutMs:    2000,
			ArbitrationAttempts:     3,
			ArbitrationBackoffMs:    50,
			ExpirySweepIntervalSec:  60,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			RPS:           5,
			Burst:         10,
			VisitorTTLSec: 300,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := os.LookupEnv("STRIPE_SECRET_KEY"); ok {
		c.Payment.StripeSecretKey = v
	}
	if v, ok := os.LookupEnv("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, "server.http_port must be in 1..65535")
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres storage")
		}
	case StorageDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not supported", c.Storage.Driver))
	}

	switch c.Payment.Provider {
	case PaymentProviderSimulated:
	case PaymentProviderStripe:
		if c.Payment.StripeSecretKey == "" {
			problems = append(problems, "payment.stripe_secret_key (or STRIPE_SECRET_KEY) is required for stripe provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("payment.provider %q is not supported", c.Payment.Provider))
	}

	if c.Payment.HoldMinutes <= 0 {
		problems = append(problems, "payment.hold_minutes must be positive")
	}
	if c.Payment.DefaultFee < 0 {
		problems = append(problems, "payment.default_fee must not be negative")
	}

	if _, err := c.Booking.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("booking.timezone: %v", err))
	}
	if c.Booking.AdvanceBookingDays < 0 {
		problems = append(problems, "booking.advance_booking_days must not be negative")
	}
	if c.Booking.MinBookingNoticeMinutes < 0 {
		problems = append(problems, "booking.min_booking_notice_minutes must not be negative")
	}
	if c.Booking.ArbitrationTimeoutMs <= 0 || c.Booking.ArbitrationAttempts <= 0 {
		problems = append(problems, "booking.arbitration_timeout_ms and booking.arbitration_attempts must be positive")
	}
	if c.Booking.ArbitrationBackoffMs < 0 {
		problems = append(problems, "booking.arbitration_backoff_ms must not be negative")
	}
	if c.Booking.ExpirySweepIntervalSec <= 0 {
		problems = append(problems, "booking.expiry_sweep_interval_sec must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		problems = append(problems, "rate_limit.rps and rate_limit.burst must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
