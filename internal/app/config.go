package app

import (
	"os"
	"strings"
	"time"
)

// Config описывает настройки запуска приложения, читаемые из окружения.
type Config struct {
	// HTTPAddr — адрес REST API.
	HTTPAddr string
	// MetricsAddr — адрес сервера метрик и health-проб.
	MetricsAddr string
	// PostgresDSN — строка подключения; пустая включает in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров; пустой отключает публикацию событий.
	KafkaBrokers []string
	// SeedUsers включает создание демо-пользователей при старте.
	SeedUsers bool
	// CacheTTL — время жизни кэша списков заказов.
	CacheTTL time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		SeedUsers:   true,
		CacheTTL:    30 * time.Second,
	}
}

// LoadConfig собирает конфигурацию из переменных окружения поверх значений
// по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("OMS_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if addr := os.Getenv("OMS_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitBrokers(brokers)
	}
	if seed := os.Getenv("OMS_SEED_USERS"); seed != "" {
		cfg.SeedUsers = seed != "false" && seed != "0"
	}
	if ttl := os.Getenv("OMS_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil && parsed > 0 {
			cfg.CacheTTL = parsed
		}
	}

	return cfg
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
