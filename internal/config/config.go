package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	LogLevel         string
	OpenRouterAPIKey string
	DefaultModel     string
	Referer          string
	AppTitle         string
}

func Load() Config {
	return Config{
		Port:             envInt("PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		OpenRouterAPIKey: envStr("OPENROUTER_API_KEY", ""),
		DefaultModel:     envStr("COLLECTIQ_MODEL", ""),
		Referer:          envStr("COLLECTIQ_REFERER", "http://localhost:3000"),
		AppTitle:         envStr("COLLECTIQ_TITLE", "CollectIQ - Loan Collection Intelligence"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
