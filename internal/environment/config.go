// Package environment reads ambient process configuration. Values come from
// the process environment, optionally seeded from a .env file in the working
// directory.
package environment

import (
	"os"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	NatsURL     string
	NatsSubject string
	LogLevel    string
}

// ReadEnvConfig loads the environment. A missing .env file is fine; these
// are defaults for flags, not required settings.
func ReadEnvConfig() *EnvConfig {
	_ = godotenv.Load()

	return &EnvConfig{
		NatsURL:     os.Getenv("CLIGRADE_NATS_URL"),
		NatsSubject: getenvDefault("CLIGRADE_NATS_SUBJECT", "cligrade.results"),
		LogLevel:    getenvDefault("CLIGRADE_LOG_LEVEL", "info"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
