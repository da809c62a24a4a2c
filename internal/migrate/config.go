package migrate

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	MongoURI       string        // Mongo connection string (default: mongodb://localhost:27017)
	MongoDB        string        // Database (default: medical)
	Collection     string        // Patient collection (default: patients)
	CSVPath        string        // Import source (default: data/healthcare_dataset.csv)
	ExportPath     string        // Export target (default: data/exported_patients.csv)
	BatchSize      int           // Documents per insert (default: 1000)
	ConnectTimeout time.Duration // Mongo connect and ping timeout (default: 10s)

	Env       string // Environment (default: dev)
	LogLevel  string // Log level (default: info)
	LogFormat string // Log format (default: text)
}

// LoadConfig reads the loader settings from the environment. Command line
// flags override the CSV, export and batch settings.
func LoadConfig() Config {
	return Config{
		MongoURI:       getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnvOrDefault("MONGO_DB", "medical"),
		Collection:     getEnvOrDefault("MONGO_COLLECTION", "patients"),
		CSVPath:        getEnvOrDefault("CSV_PATH", "data/healthcare_dataset.csv"),
		ExportPath:     getEnvOrDefault("EXPORT_PATH", "data/exported_patients.csv"),
		BatchSize:      getEnvIntOrDefault("MIGRATE_BATCH_SIZE", DefaultBatchSize),
		ConnectTimeout: getEnvDurationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
