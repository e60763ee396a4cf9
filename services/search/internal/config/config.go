package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DuunitoriURL   string
	TEAPIURL       string
	SourceTimeout  time.Duration
	SourcePageSize int
	SourceRate     float64
	SourceBurst    int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	NATSURL         string
	NATSConnTimeout time.Duration

	OTelCollectorURL string
}

// LoadConfig reads the environment, after loading an optional .env file
// from the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		HTTPAddr:        getEnvString("HTTP_ADDR", ":10000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DuunitoriURL:   getEnvString("DUUNITORI_URL", "https://duunitori.fi/tyopaikat"),
		TEAPIURL:       getEnvString("TE_API_URL", "https://paikat.te-palvelut.fi/tpt-api/v1/search"),
		SourceTimeout:  getEnvDuration("SOURCE_TIMEOUT", 10*time.Second),
		SourcePageSize: getEnvInt("SOURCE_PAGE_SIZE", 20),
		SourceRate:     getEnvFloat("SOURCE_RATE_LIMIT", 5),
		SourceBurst:    getEnvInt("SOURCE_RATE_BURST", 5),

		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		NATSURL:         getEnvString("NATS_URL", ""),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		OTelCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
