package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Settlement struct {
		PrizeShares         []string `yaml:"prize_shares"`
		AutoPublishInterval string   `yaml:"auto_publish_interval"`
	} `yaml:"settlement"`
}

// LoadEnv reads a .env file into the process environment. A missing file is
// not an error; variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// Load reads YAML config from path. JWT_SECRET and DATABASE_URL from the
// environment override the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	return cfg, nil
}

// PrizeShares parses settlement.prize_shares. It returns nil when none are
// configured so callers fall back to their default.
func (c Config) PrizeShares() ([]decimal.Decimal, error) {
	if len(c.Settlement.PrizeShares) == 0 {
		return nil, nil
	}
	shares := make([]decimal.Decimal, len(c.Settlement.PrizeShares))
	for i, raw := range c.Settlement.PrizeShares {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		shares[i] = d
	}
	return shares, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
