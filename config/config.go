package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// PlatformFeeBPS is the platform's cut of distributed entry fees in
	// basis points (10000 = 100%).
	PlatformFeeBPS int64
	// MinRegistrationPeriod is the minimum gap between registration end and
	// tournament start.
	MinRegistrationPeriod time.Duration
	// PlatformEmail identifies the account that receives the platform cut.
	PlatformEmail string
	// PlatformPassword is only used the first time the platform account is
	// created; later changes to it have no effect.
	PlatformPassword string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	platformEmail := os.Getenv("PLATFORM_EMAIL")
	if platformEmail == "" {
		return nil, fmt.Errorf("PLATFORM_EMAIL environment variable is not set")
	}

	platformPassword := os.Getenv("PLATFORM_PASSWORD")
	if platformPassword == "" {
		return nil, fmt.Errorf("PLATFORM_PASSWORD environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	feeBPS, err := intFromEnv("PLATFORM_FEE_BPS", 250)
	if err != nil {
		return nil, err
	}
	if feeBPS < 0 || feeBPS > 10000 {
		return nil, fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", feeBPS)
	}

	minRegPeriod := 15 * time.Minute
	if raw := os.Getenv("MIN_REGISTRATION_PERIOD"); raw != "" {
		minRegPeriod, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MIN_REGISTRATION_PERIOD environment variable: %w", err)
		}
		if minRegPeriod < 0 {
			return nil, fmt.Errorf("MIN_REGISTRATION_PERIOD must not be negative")
		}
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		JWTSecretKey:          jwtKey,
		ServerPort:            port,
		PlatformFeeBPS:        int64(feeBPS),
		MinRegistrationPeriod: minRegPeriod,
		PlatformEmail:         platformEmail,
		PlatformPassword:      platformPassword,
		R2AccountID:           os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:         os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:          os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:       os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// R2Configured reports whether all banner storage settings are present.
// Banner uploads are disabled when they are not.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func intFromEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
