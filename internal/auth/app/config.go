package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
)

// DefaultSecretKey is the placeholder HS256 secret used when SECRET_KEY is
// unset. It is refused when ENV=prod.
const DefaultSecretKey = "secretjwtkey"

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

var (
	ErrInsecureSecret = errors.New("app: SECRET_KEY must be set in prod")
	ErrUnknownDriver  = errors.New("app: unknown store driver")
)

type Config struct {
	SecretKey string        // HS256 signing secret (default: DefaultSecretKey)
	AccessTTL time.Duration // Access token lifetime (default: 25m)
	Issuer    string        // iss claim (default: medmigrate-auth)

	StoreDriver          string // Credential store: mongo or sqlite (default: mongo)
	MongoURI             string // Mongo connection string (default: mongodb://localhost:27017)
	MongoDB              string // Mongo database (default: medical)
	MongoUsersCollection string // Principal collection (default: users)
	DatabaseFile         string // SQLite file (default: auth.db)
	PepperFile           string // Pepper file, empty disables peppering (default: pepper)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Limits httpx.Limits // RATELIMIT_{STRICT,LENIENT,PUBLIC}_* overrides
}

func LoadConfig() Config {
	ttlMinutes := getEnvIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", int(jwtx.DefaultAccessTokenTTL/time.Minute))
	if ttlMinutes <= 0 {
		ttlMinutes = int(jwtx.DefaultAccessTokenTTL / time.Minute)
	}

	pepperFile, ok := os.LookupEnv("AUTH_PEPPER_FILE")
	if !ok {
		pepperFile = "pepper"
	}

	return Config{
		SecretKey: getEnvOrDefault("SECRET_KEY", DefaultSecretKey),
		AccessTTL: time.Duration(ttlMinutes) * time.Minute,
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "medmigrate-auth"),

		StoreDriver:          getEnvOrDefault("AUTH_STORE_DRIVER", DriverMongo),
		MongoURI:             getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:              getEnvOrDefault("MONGO_DB", "medical"),
		MongoUsersCollection: getEnvOrDefault("MONGO_USERS_COLLECTION", "users"),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           pepperFile,

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Limits: httpx.LimitsFromEnv(),
	}
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	if c.Env == "prod" && c.SecretKey == DefaultSecretKey {
		return ErrInsecureSecret
	}
	if len(c.SecretKey) < jwtx.MinSecretLength {
		return fmt.Errorf("app: SECRET_KEY: %w", jwtx.ErrWeakSecret)
	}
	switch c.StoreDriver {
	case DriverMongo, DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.StoreDriver)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
