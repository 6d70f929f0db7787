package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig configures the standalone HTTP server.
type ServerConfig struct {
	HTTPAddr        string        `env:"BLUFF_HTTP_ADDR"        envDefault:":8080"`
	DBDriver        string        `env:"BLUFF_DB_DRIVER"        envDefault:"sqlite"`
	DBDSN           string        `env:"BLUFF_DB_DSN"           envDefault:"bluff.db"`
	AllowedOrigins  []string      `env:"BLUFF_ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`
	InviteSecret    string        `env:"BLUFF_INVITE_SECRET"`
	InviteIssuer    string        `env:"BLUFF_INVITE_ISSUER"    envDefault:"bluff"`
	GameConfigPath  string        `env:"BLUFF_GAME_CONFIG"`
	LogLevel        string        `env:"BLUFF_LOG_LEVEL"        envDefault:"info"`
	OTelEndpoint    string        `env:"BLUFF_OTEL_ENDPOINT"`
	ShutdownTimeout time.Duration `env:"BLUFF_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServerConfig reads ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var c ServerConfig
	if err := ParseEnv(&c); err != nil {
		return ServerConfig{}, err
	}
	return c, nil
}
