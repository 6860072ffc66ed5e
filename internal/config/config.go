package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment.
// Kafka and redis sinks are optional: they are wired only when their
// address is configured.
type Config struct {
	Port         string
	KafkaBrokers []string
	KafkaTopic   string
	RedisAddr    string
	EventStream  string
	LogLevel     string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "ledger.events"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		EventStream: getEnv("EVENT_STREAM", "ledger.events"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
