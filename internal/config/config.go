package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to each component; nothing
// reads the environment after Load returns.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8000"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://app.db"`

	SecretKey      string        `env:"SECRET_KEY"`
	TokenAlgorithm string        `env:"TOKEN_ALGORITHM" envDefault:"HS256"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"192h"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost,http://localhost:8080,http://localhost:3000"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuthEventsTopic string   `env:"AUTH_EVENTS_TOPIC" envDefault:"auth_events"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	FirstAdminUsername string `env:"FIRST_ADMIN_USERNAME" envDefault:"admin"`
	FirstAdminEmail    string `env:"FIRST_ADMIN_EMAIL" envDefault:"admin@example.com"`
	FirstAdminPassword string `env:"FIRST_ADMIN_PASSWORD" envDefault:"admin"`
}

func Load() (Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SecretKey == "" {
		// Tokens signed with a generated key do not survive a restart.
		cfg.SecretKey = randomSecret()
		slog.Warn("SECRET_KEY is not set, generated a random one; issued tokens expire on restart")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
