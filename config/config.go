// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is used when JWT_SECRET is unset outside production.
// Never rely on it in a real deployment.
const DevJWTSecret = "dev-secret-change-me"

const EnvProduction = "production"

type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	JWTSecret   string
	// InsecureSecret is set when JWTSecret is the development fallback.
	InsecureSecret bool
	BcryptCost     int
	LogLevel       string
	LogQueries     bool
	NATSEnabled    bool
	NATSPort       int
	CORSOrigins    []string
}

// Production reports whether the server runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_QUERIES", false)
	v.SetDefault("NATS_ENABLED", true)
	v.SetDefault("NATS_PORT", 4233)
	v.SetDefault("CORS_ORIGINS", "*")
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:         strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		Port:        v.GetString("PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		BcryptCost:  v.GetInt("BCRYPT_COST"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogQueries:  v.GetBool("LOG_QUERIES"),
		NATSEnabled: v.GetBool("NATS_ENABLED"),
		NATSPort:    v.GetInt("NATS_PORT"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return nil, fmt.Errorf("JWT_SECRET must be set when ENV=%s", EnvProduction)
		}
		cfg.JWTSecret = DevJWTSecret
		cfg.InsecureSecret = true
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT must not be empty")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
