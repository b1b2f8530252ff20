package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (tick leases); optional
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Dispatch engine
	RatePerMin         int    // max sends dispatched per tick per campaign
	UnsubscribeBaseURL string // base for per-recipient unsubscribe links
	OfferLink          string // static offer link merged into templates
	TickInterval       int    // worker tick cadence in seconds

	// AWS SES
	AWSRegion    string
	SESFromEmail string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		DBHost:    "localhost",
		DBPort:    5432,
		DBUser:    "outreach",
		DBName:    "outreach",
		DBSSLMode: "disable",

		RedisHost: "localhost",
		RedisPort: 6379,

		RatePerMin:         60,
		UnsubscribeBaseURL: "https://outreach.local/unsubscribe",
		OfferLink:          "https://outreach.local/offer",
		TickInterval:       120,

		AWSRegion:    "us-east-1",
		SESFromEmail: "noreply@outreach.local",
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	if rate := os.Getenv("RATE_PER_MIN"); rate != "" {
		r, err := strconv.Atoi(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_PER_MIN: %w", err)
		}
		if r < 1 {
			return nil, fmt.Errorf("RATE_PER_MIN must be positive, got %d", r)
		}
		cfg.RatePerMin = r
	}

	if url := os.Getenv("UNSUBSCRIBE_BASE_URL"); url != "" {
		cfg.UnsubscribeBaseURL = url
	}

	if link := os.Getenv("OFFER_LINK"); link != "" {
		cfg.OfferLink = link
	}

	if interval := os.Getenv("TICK_INTERVAL"); interval != "" {
		i, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		cfg.TickInterval = i
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFromEmail = from
	}

	return cfg, nil
}
