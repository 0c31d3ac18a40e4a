package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Queue
	SyncMode        string        // "sem" or "cond"
	InitialCapacity int
	ResizeStep      int           // slots added/removed per interactive resize command
	ShrinkWait      time.Duration // 0 = wait until cancellation

	// Workers
	MaxProducers     int
	MaxConsumers     int
	ProducerDelayMin time.Duration
	ProducerDelayMax time.Duration
	ConsumerDelayMin time.Duration
	ConsumerDelayMax time.Duration

	// Servers
	MetricsAddr    string
	GatewayAddr    string
	StatusInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SyncMode:        getEnv("QUEUE_STRATEGY", "sem"),
		InitialCapacity: getEnvInt("QUEUE_CAPACITY", 10),
		ResizeStep:      getEnvInt("QUEUE_RESIZE_STEP", 1),
		ShrinkWait:      getEnvDuration("QUEUE_SHRINK_WAIT", 0),

		MaxProducers:     getEnvInt("MAX_PRODUCERS", 10),
		MaxConsumers:     getEnvInt("MAX_CONSUMERS", 10),
		ProducerDelayMin: getEnvDuration("PRODUCER_DELAY_MIN", 100*time.Millisecond),
		ProducerDelayMax: getEnvDuration("PRODUCER_DELAY_MAX", 500*time.Millisecond),
		ConsumerDelayMin: getEnvDuration("CONSUMER_DELAY_MIN", 200*time.Millisecond),
		ConsumerDelayMax: getEnvDuration("CONSUMER_DELAY_MAX", 600*time.Millisecond),

		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:    getEnv("GATEWAY_ADDR", ":8080"),
		StatusInterval: getEnvDuration("STATUS_INTERVAL", time.Second),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid value for %s: %q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
