package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Meals        MealConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SeedDemoUsers         bool
}

// MealConfig drives the submission rules.
type MealConfig struct {
	Types                []domain.MealType
	CutoffHour           int
	Location             *time.Location
	EnforceUniquePerDate bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom             string
	WebhookURL            string
	DigestIntervalMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	meals, err := loadMeals()
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreMemory))
	switch driver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "mealtrackpro"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver:     driver,
			SQLitePath: getEnv("SQLITE_PATH", "mealtrack.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SeedDemoUsers:         getEnvAsBool("SEED_DEMO_USERS", true),
		},
		Meals: meals,
		Notification: NotificationConfig{
			EmailFrom:             getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			DigestIntervalMinutes: getEnvAsInt("NOTIFY_DIGEST_INTERVAL_MINUTES", 0),
		},
	}

	if cfg.Store.Driver == StorePostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN required for STORE_DRIVER=%s", StorePostgres)
	}

	return cfg, nil
}

func loadMeals() (MealConfig, error) {
	types, err := ParseMealTypes(getEnv("MEAL_TYPES", "breakfast,lunch,dinner"))
	if err != nil {
		return MealConfig{}, err
	}

	cutoff, err := strconv.Atoi(getEnv("MEAL_CUTOFF_HOUR", "22"))
	if err != nil || cutoff < 0 || cutoff > 23 {
		return MealConfig{}, fmt.Errorf("invalid MEAL_CUTOFF_HOUR: must be 0-23")
	}

	loc, err := time.LoadLocation(getEnv("MEAL_TIMEZONE", "Local"))
	if err != nil {
		return MealConfig{}, fmt.Errorf("invalid MEAL_TIMEZONE: %w", err)
	}

	return MealConfig{
		Types:                types,
		CutoffHour:           cutoff,
		Location:             loc,
		EnforceUniquePerDate: getEnvAsBool("MEAL_ENFORCE_UNIQUE_PER_DATE", true),
	}, nil
}

// ParseMealTypes splits a comma list into distinct, ordered meal types.
func ParseMealTypes(raw string) ([]domain.MealType, error) {
	seen := make(map[domain.MealType]struct{})
	var types []domain.MealType
	for _, part := range strings.Split(raw, ",") {
		name := domain.MealType(strings.ToLower(strings.TrimSpace(part)))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate meal type %q", name)
		}
		seen[name] = struct{}{}
		types = append(types, name)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("MEAL_TYPES must list at least one meal type")
	}
	return types, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DigestInterval returns the digest period; zero disables the digest worker.
func (n NotificationConfig) DigestInterval() time.Duration {
	if n.DigestIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(n.DigestIntervalMinutes) * time.Minute
}

// AccessTokenTTL returns the token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
