package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"campus-facility-backend/internal/auth"
	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/facility"
)

// EnvPrefix is the prefix of environment overrides, e.g. CAMPUS_DATABASE_DSN.
const EnvPrefix = "CAMPUS"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Push       PushConfig       `yaml:"push" envconfig:"PUSH"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" envconfig:"WORKER_POOL"`
	Campus     CampusConfig     `yaml:"campus" envconfig:"CAMPUS"`
	Library    LibraryConfig    `yaml:"library" envconfig:"LIBRARY"`
	Auth       AuthConfig       `yaml:"auth" envconfig:"AUTH"`
	Events     EventsConfig     `yaml:"events" envconfig:"EVENTS"`
	Sweep      SweepConfig      `yaml:"sweep" envconfig:"SWEEP"`
	SeedPath   string           `yaml:"seed_path" envconfig:"SEED_PATH"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" envconfig:"SIZE" validate:"min=1"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" envconfig:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" envconfig:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" envconfig:"SUBJECT"`
	TTL        int    `yaml:"ttl" envconfig:"TTL"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	RequestIPHeader string  `yaml:"request_ip_header" envconfig:"REQUEST_IP_HEADER"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" envconfig:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" envconfig:"CACHE_TTL_SECONDS"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" envconfig:"DRIVER" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" envconfig:"DSN" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns           int    `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" envconfig:"CONN_MAX_LIFETIME_MINUTES"`
}

// WindowConfig is one named service window in HH:MM form.
type WindowConfig struct {
	Kind  string `yaml:"kind" validate:"required"`
	Label string `yaml:"label"`
	Start string `yaml:"start" validate:"required"`
	End   string `yaml:"end" validate:"required"`
}

// CampusConfig holds the eligibility rules.
type CampusConfig struct {
	Timezone           string         `yaml:"timezone" envconfig:"TIMEZONE"`
	MealWindows        []WindowConfig `yaml:"meal_windows" ignored:"true" validate:"dive"`
	GateOpen           string         `yaml:"gate_open" envconfig:"GATE_OPEN"`
	GateClose          string         `yaml:"gate_close" envconfig:"GATE_CLOSE"`
	ViolationThreshold int            `yaml:"violation_threshold" envconfig:"VIOLATION_THRESHOLD" validate:"min=1"`
	ItemValidityDays   int            `yaml:"item_validity_days" envconfig:"ITEM_VALIDITY_DAYS" validate:"min=1"`
}

// LibraryConfig holds the lending rules.
type LibraryConfig struct {
	MaxActiveLoans int    `yaml:"max_active_loans" envconfig:"MAX_ACTIVE_LOANS" validate:"min=1"`
	LoanPeriodDays int    `yaml:"loan_period_days" envconfig:"LOAN_PERIOD_DAYS" validate:"min=1"`
	DailyFine      string `yaml:"daily_fine" envconfig:"DAILY_FINE" validate:"required"`
}

// AuthConfig holds the staff token settings and accounts.
type AuthConfig struct {
	JWTSecret       string         `yaml:"jwt_secret" envconfig:"JWT_SECRET" validate:"required"`
	TokenTTLMinutes int            `yaml:"token_ttl_minutes" envconfig:"TOKEN_TTL_MINUTES"`
	Staff           []auth.Account `yaml:"staff" ignored:"true" validate:"dive"`
}

// EventsConfig enables the AMQP sink when AMQPURL is set.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url" envconfig:"AMQP_URL"`
	Exchange string `yaml:"exchange" envconfig:"EXCHANGE"`
}

// SweepConfig schedules the overdue sweep.
type SweepConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Schedule string `yaml:"schedule" envconfig:"SCHEDULE"`
}

// Load reads the configuration from the given path, applies defaults and
// CAMPUS_* environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.FacilityOptions(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 10
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Campus.Timezone == "" {
		cfg.Campus.Timezone = "UTC"
	}
	if len(cfg.Campus.MealWindows) == 0 {
		log.Printf("campus.meal_windows is not set; using the default cafeteria hours")
		for _, w := range facility.DefaultMealWindows() {
			cfg.Campus.MealWindows = append(cfg.Campus.MealWindows, WindowConfig{
				Kind: w.Kind, Label: w.Label, Start: clock.FormatMinute(w.Start), End: clock.FormatMinute(w.End),
			})
		}
	}
	if cfg.Campus.GateOpen == "" {
		cfg.Campus.GateOpen = "06:00"
	}
	if cfg.Campus.GateClose == "" {
		cfg.Campus.GateClose = "24:00"
	}
	if cfg.Campus.ViolationThreshold <= 0 {
		log.Printf("campus.violation_threshold is not set or invalid; defaulting to 3")
		cfg.Campus.ViolationThreshold = 3
	}
	if cfg.Campus.ItemValidityDays <= 0 {
		cfg.Campus.ItemValidityDays = 365
	}

	if cfg.Library.MaxActiveLoans <= 0 {
		cfg.Library.MaxActiveLoans = 5
	}
	if cfg.Library.LoanPeriodDays <= 0 {
		cfg.Library.LoanPeriodDays = 14
	}
	if cfg.Library.DailyFine == "" {
		cfg.Library.DailyFine = "0.50"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 12 * 60
	}

	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "campus.events"
	}
	if cfg.Sweep.Schedule == "" {
		cfg.Sweep.Schedule = "*/15 * * * *"
	}
}

// FacilityOptions converts the campus and library sections into engine options.
func (cfg *Config) FacilityOptions() (facility.Options, error) {
	loc, err := time.LoadLocation(cfg.Campus.Timezone)
	if err != nil {
		return facility.Options{}, fmt.Errorf("campus.timezone: %w", err)
	}

	windows := make([]clock.Window, 0, len(cfg.Campus.MealWindows))
	for i, wc := range cfg.Campus.MealWindows {
		w, err := clock.NewWindow(wc.Kind, wc.Label, wc.Start, wc.End)
		if err != nil {
			return facility.Options{}, fmt.Errorf("campus.meal_windows[%d]: %w", i, err)
		}
		windows = append(windows, w)
	}

	hours, err := clock.NewOperatingHours(cfg.Campus.GateOpen, cfg.Campus.GateClose)
	if err != nil {
		return facility.Options{}, fmt.Errorf("campus gate hours: %w", err)
	}

	fine, err := decimal.NewFromString(cfg.Library.DailyFine)
	if err != nil || fine.IsNegative() {
		return facility.Options{}, fmt.Errorf("library.daily_fine %q is not a non-negative amount", cfg.Library.DailyFine)
	}

	return facility.Options{
		Location:           loc,
		MealWindows:        windows,
		GateHours:          hours,
		ViolationThreshold: cfg.Campus.ViolationThreshold,
		MaxActiveLoans:     cfg.Library.MaxActiveLoans,
		LoanPeriod:         time.Duration(cfg.Library.LoanPeriodDays) * 24 * time.Hour,
		DailyFine:          fine,
		ItemValidity:       time.Duration(cfg.Campus.ItemValidityDays) * 24 * time.Hour,
	}, nil
}

// TokenTTL returns the staff token lifetime.
func (cfg *Config) TokenTTL() time.Duration {
	return time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
}

// CacheTTL returns the GET response cache lifetime; zero disables caching.
func (sc ServerConfig) CacheTTL() time.Duration {
	return time.Duration(sc.CacheTTLSeconds) * time.Second
}
