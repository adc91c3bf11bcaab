package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	AdminPrincipal string
	// AdminKeyHash is a bcrypt hash of the admin API key. Empty disables the
	// key path; admin JWTs still work.
	AdminKeyHash  string
	JWTSigningKey string
	// PostgresURL selects the postgres store when set; otherwise the service
	// runs on the in-memory store.
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	// DonationsPerMinute bounds donation submissions per caller. Zero
	// disables rate limiting.
	DonationsPerMinute int
}

// RedisConfig carries connection settings for the rate limiter backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries event publishing settings. Empty brokers disable the
// Kafka notifier; events still go to the log.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GIVEPOOL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	admin := os.Getenv("GIVEPOOL_ADMIN_PRINCIPAL")
	if admin == "" {
		admin = "admin"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_EVENTS_TOPIC")
	if topic == "" {
		topic = "givepool.events"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:           addr,
		AdminPrincipal: admin,
		AdminKeyHash:   os.Getenv("GIVEPOOL_ADMIN_KEY_HASH"),
		JWTSigningKey:  jwtSigningKey,
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		DonationsPerMinute: envInt("DONATIONS_PER_MINUTE", 60),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
