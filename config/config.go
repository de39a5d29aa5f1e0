package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Observ  ObservabilityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type BackendConfig struct {
	URL            string
	TimeoutSeconds int
}

type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	SessionTTLSeconds int
	CacheTTLSeconds   int
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicOrders   string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_TTL_SECONDS", "1800"))
	cacheTTL, _ := strconv.Atoi(getEnv("CATALOG_CACHE_TTL_SECONDS", "300"))
	backendTimeout, _ := strconv.Atoi(getEnv("BACKEND_TIMEOUT_SECONDS", "10"))
	kafkaEnabled, _ := strconv.ParseBool(getEnv("KAFKA_ENABLED", "true"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			URL:            getEnv("BACKEND_URL", "http://localhost:9000"),
			TimeoutSeconds: backendTimeout,
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "localhost:6379"),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                redisDB,
			SessionTTLSeconds: sessionTTL,
			CacheTTLSeconds:   cacheTTL,
		},
		Kafka: KafkaConfig{
			Enabled:       kafkaEnabled,
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrders:   getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-service-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, backend=%s", cfg.Server.Env, cfg.Server.Port, cfg.Backend.URL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
