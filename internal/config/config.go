package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig is the full runtime configuration, read from the environment.
type AppConfig struct {
	HTTPAddr string

	// DatabaseURL selects the postgres store when set; otherwise the server
	// runs on the seeded in-memory store.
	DatabaseURL string

	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Collection names in the backing store.
	WalletCollection  string
	SavingsCollection string
	HistoryCollection string

	// Operator credentials and session parameters.
	User          string
	PIN           string
	SessionSecret string
	SessionTTL    time.Duration
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "movement_recorded"),
		WalletCollection:  getEnv("WALLET_COLLECTION", "Wallet"),
		SavingsCollection: getEnv("SAVINGS_COLLECTION", "Savings"),
		HistoryCollection: getEnv("HISTORY_COLLECTION", "Expenses/Income"),
		User:              getEnv("OPERATOR_USER", "operator"),
		PIN:               getEnv("OPERATOR_PIN", "0000"),
		SessionSecret:     getEnv("SESSION_SECRET", "dev-only-secret"),
		SessionTTL:        getDuration("SESSION_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
