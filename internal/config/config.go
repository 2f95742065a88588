package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix префикс переменных окружения, переопределяющих значения из файла
const EnvPrefix = "FIELDBOOKING"

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Redis       RedisConfig       `toml:"redis"`
	RabbitMQ    RabbitMQConfig    `toml:"rabbitmq"`
	Reaper      ReaperConfig      `toml:"reaper"`
	Booking     BookingConfig     `toml:"booking"`
	UserService UserServiceConfig `toml:"user_service" split_words:"true"`
	FileStorage FileStorageConfig `toml:"file_storage" split_words:"true"`
	RateLimit   RateLimitConfig   `toml:"rate_limit" split_words:"true"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port" envconfig:"HTTP_PORT"`
	ReadTimeout     int `toml:"read_timeout" split_words:"true"`     // секунды
	WriteTimeout    int `toml:"write_timeout" split_words:"true"`    // секунды
	IdleTimeout     int `toml:"idle_timeout" split_words:"true"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout" split_words:"true"` // секунды
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int    `toml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" split_words:"true"` // секунды
	Migrate         bool   `toml:"migrate"`
	MigrationsDir   string `toml:"migrations_dir" split_words:"true"`
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name" split_words:"true"`
}

type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	MailQueueKey string `toml:"mail_queue_key" split_words:"true"`
}

type RabbitMQConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// maxReaperIntervalSeconds верхняя граница интервала: окна напоминаний шириной около минуты
const maxReaperIntervalSeconds = 60

// ReaperConfig периодическая обработка броней
type ReaperConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval int    `toml:"interval"` // секунды
	Timeout  int    `toml:"timeout"`  // секунды, ограничение одного прохода
	LockKey  string `toml:"lock_key" split_words:"true"`
	LockTTL  int    `toml:"lock_ttl" envconfig:"LOCK_TTL"` // секунды
}

func (c ReaperConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c ReaperConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c ReaperConfig) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

type BookingConfig struct {
	Timezone    string `toml:"timezone"`
	AdvanceDays int    `toml:"advance_days" split_words:"true"` // 0 = без ограничений
}

// Location часовой пояс, в котором считаются календарные дни и время работы полей
func (c BookingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

type FileStorageConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// RateLimitConfig ограничение частоты создания броней на пользователя
type RateLimitConfig struct {
	Enabled bool    `toml:"enabled"`
	RPS     float64 `toml:"rps" envconfig:"RPS"`
	Burst   int     `toml:"burst"`
	TTL     int     `toml:"ttl" envconfig:"TTL"` // секунды простоя, после которых лимитер пользователя удаляется
}

// Load читает TOML файл, подгружает .env (если есть) и применяет переопределения из окружения
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrationsDir:   "migrations",
		},
		Logs:    LogsConfig{Level: "info"},
		Metrics: MetricsConfig{Path: "/metrics", ServiceName: "field_booking"},
		Redis:   RedisConfig{Addr: "localhost:6379", MailQueueKey: "emails"},
		RabbitMQ: RabbitMQConfig{
			Exchange: "field.events",
		},
		Reaper: ReaperConfig{
			Enabled:  true,
			Interval: 60,
			Timeout:  50,
			LockKey:  "fieldbooking:reaper",
			LockTTL:  55,
		},
		Booking:     BookingConfig{Timezone: "Asia/Bangkok", AdvanceDays: 30},
		UserService: UserServiceConfig{Timeout: 5},
		FileStorage: FileStorageConfig{Timeout: 5},
		RateLimit:   RateLimitConfig{Enabled: true, RPS: 1, Burst: 5, TTL: 600},
	}
}

// Validate проверяет обязательные значения
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, errors.New("database.user is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if c.UserService.URL == "" {
		errs = append(errs, errors.New("user_service.url is required"))
	}
	if c.FileStorage.URL == "" {
		errs = append(errs, errors.New("file_storage.url is required"))
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("rabbitmq.url is required when rabbitmq is enabled"))
	}
	if c.Reaper.Enabled {
		if c.Reaper.Interval <= 0 {
			errs = append(errs, errors.New("reaper.interval must be positive"))
		}
		if c.Reaper.Interval > maxReaperIntervalSeconds {
			errs = append(errs, fmt.Errorf("reaper.interval must not exceed %d seconds", maxReaperIntervalSeconds))
		}
		if c.Reaper.Timeout <= 0 || c.Reaper.Timeout > c.Reaper.Interval {
			errs = append(errs, errors.New("reaper.timeout must be positive and not exceed reaper.interval"))
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive"))
	}
	if c.Booking.AdvanceDays < 0 {
		errs = append(errs, errors.New("booking.advance_days must not be negative"))
	}
	if _, err := c.Booking.Location(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
