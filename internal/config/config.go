package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrUnknownDriver    = errors.New("unknown store driver")
)

// Config application settings
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	Auth   AuthConfig
	Store  StoreConfig
	Redis  RedisConfig
	Dance  DanceConfig
	Log    LogConfig
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// StaticDir is the built frontend; empty disables static serving.
	StaticDir string
}

// CORSConfig CORS settings
type CORSConfig struct {
	AllowOrigins string
}

// AuthConfig token and password settings
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	BcryptCost  int
	RateLimit   int
	RateWindow  time.Duration
}

// StoreConfig document store settings
type StoreConfig struct {
	Driver string

	// postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string

	// sqlite
	SQLitePath string

	// mongo
	MongoURI string
}

// RedisConfig Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DanceConfig dance repository behaviour
type DanceConfig struct {
	// EnforceInvariants makes the server keep every formation's position set
	// in sync with the dancer count and refuse deleting the last formation.
	EnforceInvariants bool
}

// LogConfig logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         normalizePort(getEnv("PORT", "3000")),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
			StaticDir:    getEnv("STATIC_DIR", ""),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			TokenExpiry: getDuration("TOKEN_EXPIRY", 24*time.Hour),
			BcryptCost:  getInt("BCRYPT_COST", 10),
			RateLimit:   getInt("AUTH_RATE_LIMIT", 10),
			RateWindow:  getDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Store: storeFromEnv(),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Dance: DanceConfig{
			EnforceInvariants: getBool("DANCE_ENFORCE_INVARIANTS", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore reads only the store settings, for maintenance tools that never
// issue tokens.
func LoadStore() (*StoreConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}
	store := storeFromEnv()
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return &store, nil
}

func storeFromEnv() StoreConfig {
	store := StoreConfig{
		Driver:     getEnv("STORE_DRIVER", ""),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       getEnv("DB_PORT", "5432"),
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "choreo"),
		SSLMode:    getEnv("DB_SSLMODE", "disable"),
		TimeZone:   getEnv("DB_TIMEZONE", "UTC"),
		SQLitePath: getEnv("SQLITE_PATH", "choreo.db"),
		MongoURI:   mongoURI(),
	}
	if store.Driver == "" {
		store.Driver = DriverSQLite
		if store.MongoURI != "" {
			store.Driver = DriverMongo
		}
	}
	return store
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// Validate checks the driver and its connection settings.
func (s StoreConfig) Validate() error {
	switch s.Driver {
	case DriverPostgres, DriverSQLite:
		return nil
	case DriverMongo:
		if s.MongoURI == "" {
			return fmt.Errorf("%w: mongo requires MONGO_URI or MONGO_USER/MONGO_PWD/MONGO_CLUSTER", ErrUnknownDriver)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
}

// PostgresDSN builds the gorm postgres DSN.
func (s StoreConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		s.Host, s.Port, s.User, s.Password, s.DBName, s.SSLMode, s.TimeZone,
	)
}

// mongoURI prefers MONGO_URI and falls back to an Atlas SRV URI built from parts.
func mongoURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	user, pwd, cluster := os.Getenv("MONGO_USER"), os.Getenv("MONGO_PWD"), os.Getenv("MONGO_CLUSTER")
	if user == "" || pwd == "" || cluster == "" {
		return ""
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority",
		url.QueryEscape(user), url.QueryEscape(pwd), cluster, getEnv("DB_NAME", "choreo"))
}

func normalizePort(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// getEnv returns the variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration accepts Go durations; bare numbers are seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
